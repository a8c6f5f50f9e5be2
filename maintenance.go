/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package orderrelay

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jerry-enebeli/orderrelay/model"
)

const dayLayout = "2006-01-02"

// ParseFromDate resolves the start day of a cancellation. An empty value is
// today, a bare number is that day of the current month, anything else must
// be YYYY-MM-DD. The result is midnight in loc.
func ParseFromDate(value string, now time.Time, loc *time.Location) (time.Time, error) {
	now = now.In(loc)
	value = strings.TrimSpace(value)

	if value == "" {
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc), nil
	}

	if day, err := strconv.Atoi(value); err == nil {
		lastDay := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, loc).Day()
		if day < 1 || day > lastDay {
			return time.Time{}, fmt.Errorf("day %d is out of range for %s", day, now.Month())
		}
		return time.Date(now.Year(), now.Month(), day, 0, 0, 0, 0, loc), nil
	}

	t, err := time.ParseInLocation(dayLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", value, err)
	}
	return t, nil
}

// CancelPlan describes the pending entries of a batch that a cancellation
// covers.
type CancelPlan struct {
	Batch   *model.Batch `json:"batch"`
	From    time.Time    `json:"from"`
	Pending int64        `json:"pending"`
}

// PlanCancel checks the batch exists and counts what CancelBatchFrom would
// cancel.
func (r *Relay) PlanCancel(ctx context.Context, batchID string, from time.Time) (*CancelPlan, error) {
	batch, err := r.datasource.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	pending, err := r.datasource.CountPendingFromDate(ctx, batchID, from)
	if err != nil {
		return nil, err
	}

	return &CancelPlan{Batch: batch, From: from, Pending: pending}, nil
}

// CancelBatchFrom cancels the pending entries of a batch scheduled on or
// after from. Entries already claimed are never touched.
func (r *Relay) CancelBatchFrom(ctx context.Context, batchID string, from time.Time) (int64, error) {
	ctx, span := tracer.Start(ctx, "CancelBatchFrom")
	defer span.End()

	if _, err := r.datasource.GetBatch(ctx, batchID); err != nil {
		return 0, err
	}

	cancelled, err := r.datasource.CancelPendingFromDate(ctx, batchID, from)
	if err != nil {
		return 0, err
	}

	logrus.WithFields(logrus.Fields{
		"batch_id":  batchID,
		"from":      from.Format(dayLayout),
		"cancelled": cancelled,
	}).Info("cancelled pending orders")

	if r.statsCache != nil && cancelled > 0 {
		if err := r.statsCache.Delete(ctx, statsCacheKey(batchID)); err != nil {
			logrus.WithError(err).Warn("failed to invalidate batch stats")
		}
	}
	return cancelled, nil
}

// PurgeCancelled deletes cancelled entries in chunks of
// processing.purge_chunk_size.
func (r *Relay) PurgeCancelled(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "PurgeCancelled")
	defer span.End()

	deleted, err := r.datasource.PurgeCancelled(ctx, r.cnf.Processing.PurgeChunkSize)
	if err != nil {
		return deleted, err
	}

	logrus.WithField("deleted", deleted).Info("purged cancelled orders")
	return deleted, nil
}

func statsCacheKey(batchID string) string {
	return "batch_stats:" + batchID
}

// BatchStats aggregates a batch. With a stats cache the answer may be up to
// processing.stats_cache_ttl_sec old; cache faults fall back to the store.
func (r *Relay) BatchStats(ctx context.Context, batchID string) (*model.BatchStats, error) {
	key := statsCacheKey(batchID)
	if r.statsCache != nil {
		var cached []byte
		found, err := r.statsCache.Get(ctx, key, &cached)
		if err != nil {
			logrus.WithError(err).Warn("failed to read cached batch stats")
		}
		if found {
			var stats model.BatchStats
			if err := json.Unmarshal(cached, &stats); err == nil {
				return &stats, nil
			}
		}
	}

	stats, err := r.datasource.GetBatchStats(ctx, batchID)
	if err != nil {
		return nil, err
	}

	if r.statsCache != nil {
		data, err := json.Marshal(stats)
		if err == nil {
			err = r.statsCache.Set(ctx, key, data, r.cnf.Processing.StatsCacheTTLDuration())
		}
		if err != nil {
			logrus.WithError(err).Warn("failed to cache batch stats")
		}
	}
	return stats, nil
}

// EntryDetails is a queue entry with its attempt history.
type EntryDetails struct {
	Entry   *model.QueueEntry    `json:"order"`
	Results []model.ResultRecord `json:"results"`
}

func (r *Relay) EntryWithResults(ctx context.Context, id int64) (*EntryDetails, error) {
	entry, err := r.datasource.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}

	results, err := r.datasource.GetResultsByEntry(ctx, id)
	if err != nil {
		return nil, err
	}

	return &EntryDetails{Entry: entry, Results: results}, nil
}
