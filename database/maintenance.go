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
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jerry-enebeli/orderrelay/internal/apierror"
	"github.com/jerry-enebeli/orderrelay/model"
)

func (d Datasource) GetBatch(ctx context.Context, id string) (*model.Batch, error) {
	ctx, span := tracer.Start(ctx, "Fetching order batch")
	defer span.End()

	batch := model.Batch{}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT id, start_date, end_date, total_orders, status, created_at
		FROM order_batches
		WHERE id = $1
	`, id).Scan(&batch.ID, &batch.StartDate, &batch.EndDate, &batch.TotalOrders, &batch.Status, &batch.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Batch with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve batch", err)
	}

	return &batch, nil
}

// CountPendingFromDate counts pending entries of a batch scheduled at or after from.
func (d Datasource) CountPendingFromDate(ctx context.Context, batchID string, from time.Time) (int64, error) {
	ctx, span := tracer.Start(ctx, "Counting pending batch orders")
	defer span.End()

	var count int64
	err := d.Conn.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM orders_queue
		WHERE batch_id = $1 AND status = $2 AND scheduled_time >= $3
	`, batchID, model.StatusPending.String(), from).Scan(&count)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to count pending orders", err)
	}

	return count, nil
}

// CancelPendingFromDate cancels pending entries of a batch scheduled at or
// after from and returns how many were cancelled.
func (d Datasource) CancelPendingFromDate(ctx context.Context, batchID string, from time.Time) (int64, error) {
	ctx, span := tracer.Start(ctx, "Cancelling pending batch orders")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE orders_queue
		SET status = $1, updated_at = NOW()
		WHERE batch_id = $2 AND status = $3 AND scheduled_time >= $4
	`, model.StatusCancelled.String(), batchID, model.StatusPending.String(), from)
	if err != nil {
		span.RecordError(err)
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to cancel orders", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read cancel result", err)
	}

	return affected, nil
}

// PurgeCancelled deletes cancelled entries chunkSize rows at a time until a
// chunk comes back short, and returns the total deleted.
func (d Datasource) PurgeCancelled(ctx context.Context, chunkSize int) (int64, error) {
	ctx, span := tracer.Start(ctx, "Purging cancelled orders")
	defer span.End()

	if chunkSize <= 0 {
		return 0, apierror.NewAPIError(apierror.ErrInvalidInput, "chunk size must be positive", nil)
	}

	var total int64
	for {
		result, err := d.Conn.ExecContext(ctx, `
			DELETE FROM orders_queue
			WHERE id IN (
				SELECT id FROM orders_queue WHERE status = $1 LIMIT $2
			)
		`, model.StatusCancelled.String(), chunkSize)
		if err != nil {
			span.RecordError(err)
			return total, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to delete cancelled orders", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return total, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read delete result", err)
		}
		total += affected

		if affected < int64(chunkSize) {
			return total, nil
		}
	}
}

// GetBatchStats groups the entries of a batch by status.
func (d Datasource) GetBatchStats(ctx context.Context, batchID string) (*model.BatchStats, error) {
	ctx, span := tracer.Start(ctx, "Fetching batch stats")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM orders_queue
		WHERE batch_id = $1
		GROUP BY status
	`, batchID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve batch stats", err)
	}
	defer rows.Close()

	stats := &model.BatchStats{BatchID: batchID}
	for rows.Next() {
		var status model.Status
		var count int64
		var revenue decimal.Decimal
		if err := rows.Scan(&status, &count, &revenue); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan batch stats", err)
		}
		stats.Add(status, count, revenue)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over batch stats", err)
	}

	return stats, nil
}
