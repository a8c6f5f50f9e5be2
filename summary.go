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
	"fmt"

	"github.com/jerry-enebeli/orderrelay/model"
)

// OutcomeSkipped marks an entry this invocation did not own.
const OutcomeSkipped = "skipped"

// EntryOutcome is the final state of one fetched entry as seen by this
// invocation.
type EntryOutcome struct {
	OrderID    int64
	OrderIndex int64
	Status     model.Status
	Skipped    bool
	BillID     string
	Error      string
	Kind       ErrorKind
}

// Success reports whether the entry completed.
func (o EntryOutcome) Success() bool {
	return !o.Skipped && o.Status == model.StatusCompleted
}

type EntryResult struct {
	OrderID    int64  `json:"order_id"`
	OrderIndex int64  `json:"order_index"`
	Status     string `json:"status"`
	BillID     string `json:"bill_id,omitempty"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

// BatchSummary is the JSON answer of one invocation.
type BatchSummary struct {
	Status    string        `json:"status"`
	Message   string        `json:"message"`
	Processed int           `json:"processed"`
	Success   int           `json:"success"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Results   []EntryResult `json:"results,omitempty"`
}

const summaryStatusOK = "ok"

func emptySummary(message string) *BatchSummary {
	return &BatchSummary{Status: summaryStatusOK, Message: message}
}

// Summarize counts outcomes in the order given. Skipped entries are listed
// but not counted as processed.
func Summarize(outcomes []EntryOutcome) *BatchSummary {
	summary := &BatchSummary{Status: summaryStatusOK, Results: make([]EntryResult, 0, len(outcomes))}

	for _, o := range outcomes {
		result := EntryResult{
			OrderID:    o.OrderID,
			OrderIndex: o.OrderIndex,
			Status:     o.Status.String(),
			BillID:     o.BillID,
			Success:    o.Success(),
			Error:      o.Error,
		}
		switch {
		case o.Skipped:
			result.Status = OutcomeSkipped
			summary.Skipped++
		case o.Success():
			summary.Success++
		default:
			summary.Failed++
		}
		summary.Results = append(summary.Results, result)
	}

	summary.Processed = summary.Success + summary.Failed
	summary.Message = fmt.Sprintf("Processed %d orders", summary.Processed)
	if summary.Skipped > 0 {
		summary.Message = fmt.Sprintf("%s, skipped %d", summary.Message, summary.Skipped)
	}
	return summary
}
