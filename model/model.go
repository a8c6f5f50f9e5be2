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

package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GenerateUUIDWithSuffix generates a UUID with a given module name as a suffix.
// It is used for invocation identifiers such as "inv_<uuid>".
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	return fmt.Sprintf("%s_%s", module, id.String())
}

// QueueEntry is one row of orders_queue: an order waiting to be submitted
// to the external order API.
type QueueEntry struct {
	ID            int64           `json:"id"`
	BatchID       string          `json:"batch_id,omitempty"`
	CustomerID    int64           `json:"customer_id,omitempty"`
	CustomerName  string          `json:"customer_name,omitempty"`
	CustomerPhone string          `json:"customer_phone,omitempty"`
	OrderIndex    int64           `json:"order_index"`
	OrderData     json.RawMessage `json:"order_data"`
	ScheduledTime time.Time       `json:"scheduled_time"`
	Status        Status          `json:"status"`
	BillID        string          `json:"bill_id,omitempty"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	ProcessedAt   *time.Time      `json:"processed_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Finalization holds the field updates applied to a queue entry once its
// attempt has resolved. Nil fields are left untouched in the store.
type Finalization struct {
	Status       Status
	ProcessedAt  time.Time
	BillID       *string
	TotalAmount  *decimal.Decimal
	ErrorMessage *string
}

// NewFinalization builds the field updates for an attempt outcome. The total
// amount is only carried when it is strictly positive so that an existing
// value on the entry is preserved otherwise.
func NewFinalization(success bool, processedAt time.Time, billID string, totalAmount decimal.NullDecimal, errorMessage string) Finalization {
	f := Finalization{Status: StatusFailed, ProcessedAt: processedAt}
	if success {
		f.Status = StatusCompleted
	}
	if billID != "" {
		f.BillID = &billID
	}
	if totalAmount.Valid && totalAmount.Decimal.IsPositive() {
		amount := totalAmount.Decimal
		f.TotalAmount = &amount
	}
	if !success && errorMessage != "" {
		f.ErrorMessage = &errorMessage
	}
	return f
}

// ResultRecord is an immutable audit row for one processing attempt.
type ResultRecord struct {
	ID           int64           `json:"id"`
	OrderQueueID int64           `json:"order_queue_id"`
	OrderIndex   int64           `json:"order_index"`
	BillID       string          `json:"bill_id,omitempty"`
	APIResponse  json.RawMessage `json:"api_response"`
	Success      bool            `json:"success"`
	ErrorMessage string          `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// EmptyResponse is stored as api_response when no response was captured.
var EmptyResponse = json.RawMessage(`{}`)

// Batch is a producer batch from order_batches.
type Batch struct {
	ID          string    `json:"id"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	TotalOrders int64     `json:"total_orders"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// BatchStats aggregates the queue entries of one batch.
type BatchStats struct {
	BatchID          string          `json:"batch_id"`
	TotalOrders      int64           `json:"total_orders"`
	PendingOrders    int64           `json:"pending_orders"`
	ProcessingOrders int64           `json:"processing_orders"`
	CompletedOrders  int64           `json:"completed_orders"`
	FailedOrders     int64           `json:"failed_orders"`
	CancelledOrders  int64           `json:"cancelled_orders"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	CompletedRevenue decimal.Decimal `json:"completed_revenue"`
}

// Add folds one status group into the stats.
func (s *BatchStats) Add(status Status, count int64, revenue decimal.Decimal) {
	s.TotalOrders += count
	s.TotalRevenue = s.TotalRevenue.Add(revenue)
	switch status {
	case StatusPending:
		s.PendingOrders += count
	case StatusProcessing:
		s.ProcessingOrders += count
	case StatusCompleted:
		s.CompletedOrders += count
		s.CompletedRevenue = s.CompletedRevenue.Add(revenue)
	case StatusFailed:
		s.FailedOrders += count
	case StatusCancelled:
		s.CancelledOrders += count
	}
}
