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

	"github.com/jerry-enebeli/orderrelay/internal/apierror"
	"github.com/jerry-enebeli/orderrelay/model"
)

// RecordResult appends one attempt record and fills its ID and CreatedAt.
func (d Datasource) RecordResult(ctx context.Context, result *model.ResultRecord) error {
	ctx, span := tracer.Start(ctx, "Saving order result to db")
	defer span.End()

	response := result.APIResponse
	if len(response) == 0 {
		response = model.EmptyResponse
	}

	err := d.Conn.QueryRowContext(ctx, `
		INSERT INTO order_results (order_queue_id, order_index, bill_id, api_response, success, error_message)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, result.OrderQueueID, result.OrderIndex, nullString(result.BillID), []byte(response), result.Success, nullString(result.ErrorMessage),
	).Scan(&result.ID, &result.CreatedAt)
	if err != nil {
		span.RecordError(err)
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record order result", err)
	}

	return nil
}

func (d Datasource) GetResultsByEntry(ctx context.Context, orderQueueID int64) ([]model.ResultRecord, error) {
	ctx, span := tracer.Start(ctx, "Fetching order results")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, order_queue_id, order_index, COALESCE(bill_id, ''), api_response, success, COALESCE(error_message, ''), created_at
		FROM order_results
		WHERE order_queue_id = $1
		ORDER BY id ASC
	`, orderQueueID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve order results", err)
	}
	defer rows.Close()

	records := []model.ResultRecord{}
	for rows.Next() {
		var record model.ResultRecord
		var response []byte
		err = rows.Scan(&record.ID, &record.OrderQueueID, &record.OrderIndex, &record.BillID, &response, &record.Success, &record.ErrorMessage, &record.CreatedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan order result", err)
		}
		record.APIResponse = response
		records = append(records, record)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over order results", err)
	}

	return records, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
