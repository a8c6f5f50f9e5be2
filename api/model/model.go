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
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const dayLayout = "2006-01-02"

// CancelBatch is the body of POST /batches/:id/cancel. An empty from_date
// means today.
type CancelBatch struct {
	FromDate string `json:"from_date"`
	DryRun   bool   `json:"dry_run"`
}

func (c *CancelBatch) ValidateCancelBatch() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.FromDate, validation.Date(dayLayout).Error("please format from_date as 'YYYY-MM-DD' (e.g., 2024-04-22)")),
	)
}

// ErrorResponse is returned for invocation level failures.
type ErrorResponse struct {
	Status  string `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// CancelResponse reports a cancellation or, for a dry run, what it covers.
type CancelResponse struct {
	BatchID   string `json:"batch_id"`
	FromDate  string `json:"from_date"`
	DryRun    bool   `json:"dry_run"`
	Pending   int64  `json:"pending,omitempty"`
	Cancelled int64  `json:"cancelled"`
}
