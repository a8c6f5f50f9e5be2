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
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/jerry-enebeli/orderrelay/internal/apierror"
	"github.com/jerry-enebeli/orderrelay/model"
)

var tracer = otel.Tracer("orderrelay.database")

const entryColumns = `id, COALESCE(batch_id, ''), COALESCE(customer_id, 0), COALESCE(customer_name, ''),
	COALESCE(customer_phone, ''), order_index, order_data, scheduled_time, status, COALESCE(bill_id, ''),
	COALESCE(total_amount, 0), COALESCE(error_message, ''), processed_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (model.QueueEntry, error) {
	var entry model.QueueEntry
	var orderData []byte
	var processedAt sql.NullTime
	err := row.Scan(&entry.ID, &entry.BatchID, &entry.CustomerID, &entry.CustomerName, &entry.CustomerPhone,
		&entry.OrderIndex, &orderData, &entry.ScheduledTime, &entry.Status, &entry.BillID, &entry.TotalAmount,
		&entry.ErrorMessage, &processedAt, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return entry, err
	}
	entry.OrderData = orderData
	if processedAt.Valid {
		t := processedAt.Time
		entry.ProcessedAt = &t
	}
	return entry, nil
}

// FetchEligibleEntries returns at most limit pending entries whose
// scheduled_time is not after now, in ascending order_index.
func (d Datasource) FetchEligibleEntries(ctx context.Context, now time.Time, limit int) ([]model.QueueEntry, error) {
	ctx, span := tracer.Start(ctx, "Fetching eligible queue entries")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM orders_queue
		WHERE status = $1 AND scheduled_time <= $2
		ORDER BY order_index ASC
		LIMIT $3
	`, model.StatusPending.String(), now, limit)
	if err != nil {
		span.RecordError(err)
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to fetch pending orders", err)
	}
	defer rows.Close()

	entries := []model.QueueEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan queue entry", err)
		}
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over queue entries", err)
	}

	return entries, nil
}

// ClaimEntry moves an entry from pending to processing. It reports false,
// without error, when the entry was no longer pending.
func (d Datasource) ClaimEntry(ctx context.Context, id int64) (bool, error) {
	ctx, span := tracer.Start(ctx, "Claiming queue entry")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE orders_queue
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, model.StatusProcessing.String(), id, model.StatusPending.String())
	if err != nil {
		span.RecordError(err)
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to claim order", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read claim result", err)
	}

	return affected == 1, nil
}

// FinalizeEntry writes the terminal status of a processing entry. Columns
// whose Finalization field is nil are left as they are.
func (d Datasource) FinalizeEntry(ctx context.Context, id int64, f model.Finalization) error {
	ctx, span := tracer.Start(ctx, "Finalizing queue entry")
	defer span.End()

	if !f.Status.IsTerminal() {
		return apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("status %q is not terminal", f.Status), nil)
	}

	args := []interface{}{f.Status.String(), f.ProcessedAt}
	sets := []string{"status = $1", "processed_at = $2", "updated_at = NOW()"}
	if f.BillID != nil {
		args = append(args, *f.BillID)
		sets = append(sets, fmt.Sprintf("bill_id = $%d", len(args)))
	}
	if f.TotalAmount != nil {
		args = append(args, *f.TotalAmount)
		sets = append(sets, fmt.Sprintf("total_amount = $%d", len(args)))
	}
	if f.ErrorMessage != nil {
		args = append(args, *f.ErrorMessage)
		sets = append(sets, fmt.Sprintf("error_message = $%d", len(args)))
	}
	args = append(args, id, model.StatusProcessing.String())

	query := fmt.Sprintf(`UPDATE orders_queue SET %s WHERE id = $%d AND status = $%d`,
		strings.Join(sets, ", "), len(args)-1, len(args))

	result, err := d.Conn.ExecContext(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to finalize order", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read finalize result", err)
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Order %d is not processing", id), nil)
	}

	return nil
}

func (d Datasource) GetEntry(ctx context.Context, id int64) (*model.QueueEntry, error) {
	ctx, span := tracer.Start(ctx, "Fetching queue entry")
	defer span.End()

	row := d.Conn.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM orders_queue WHERE id = $1`, id)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Order with ID '%d' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve order", err)
	}

	return &entry, nil
}
