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

package database

import (
	"context"
	"time"

	"github.com/jerry-enebeli/orderrelay/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	queue       // Interface for the order queue state machine
	results     // Interface for processing attempt records
	maintenance // Interface for operator maintenance over batches
	Close() error
}

// queue defines the claim and finalize operations on orders_queue.
type queue interface {
	FetchEligibleEntries(ctx context.Context, now time.Time, limit int) ([]model.QueueEntry, error) // Pending entries due at now, by order_index
	ClaimEntry(ctx context.Context, id int64) (bool, error)                                        // Moves pending to processing, false when already claimed
	FinalizeEntry(ctx context.Context, id int64, f model.Finalization) error                       // Moves processing to a terminal status
	GetEntry(ctx context.Context, id int64) (*model.QueueEntry, error)                             // Retrieves an entry by ID
}

// results defines methods for the append-only order_results table.
type results interface {
	RecordResult(ctx context.Context, result *model.ResultRecord) error                        // Inserts one attempt record
	GetResultsByEntry(ctx context.Context, orderQueueID int64) ([]model.ResultRecord, error) // Attempt records of one entry
}

// maintenance defines batch level operations used by the CLI and API.
type maintenance interface {
	GetBatch(ctx context.Context, id string) (*model.Batch, error)
	CountPendingFromDate(ctx context.Context, batchID string, from time.Time) (int64, error)
	CancelPendingFromDate(ctx context.Context, batchID string, from time.Time) (int64, error)
	PurgeCancelled(ctx context.Context, chunkSize int) (int64, error)
	GetBatchStats(ctx context.Context, batchID string) (*model.BatchStats, error)
}
