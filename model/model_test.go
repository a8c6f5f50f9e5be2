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
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestGenerateUUIDWithSuffix(t *testing.T) {
	id := GenerateUUIDWithSuffix("inv")
	assert.True(t, strings.HasPrefix(id, "inv_"))
	assert.Len(t, id, len("inv_")+36)
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		allowed  bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusProcessing, StatusPending, false},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusPending, false},
		{StatusCancelled, StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestStatusIsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusProcessing.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, Status("unknown").IsValid())
}

func TestNewFinalization_Success(t *testing.T) {
	now := time.Now()
	f := NewFinalization(true, now, "555", decimal.NewNullDecimal(decimal.NewFromInt(250000)), "")

	assert.Equal(t, StatusCompleted, f.Status)
	assert.Equal(t, now, f.ProcessedAt)
	if assert.NotNil(t, f.BillID) {
		assert.Equal(t, "555", *f.BillID)
	}
	if assert.NotNil(t, f.TotalAmount) {
		assert.True(t, f.TotalAmount.Equal(decimal.NewFromInt(250000)))
	}
	assert.Nil(t, f.ErrorMessage)
}

func TestNewFinalization_PreservesTotalAmount(t *testing.T) {
	tests := []struct {
		name   string
		amount decimal.NullDecimal
	}{
		{"missing", decimal.NullDecimal{}},
		{"zero", decimal.NewNullDecimal(decimal.Zero)},
		{"negative", decimal.NewNullDecimal(decimal.NewFromInt(-10))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFinalization(true, time.Now(), "555", tt.amount, "")
			assert.Nil(t, f.TotalAmount)
		})
	}
}

func TestNewFinalization_Failure(t *testing.T) {
	f := NewFinalization(false, time.Now(), "", decimal.NullDecimal{}, "Network error: timeout")

	assert.Equal(t, StatusFailed, f.Status)
	assert.Nil(t, f.BillID)
	if assert.NotNil(t, f.ErrorMessage) {
		assert.Equal(t, "Network error: timeout", *f.ErrorMessage)
	}
}

func TestBatchStatsAdd(t *testing.T) {
	stats := BatchStats{BatchID: "batch_1"}
	stats.Add(StatusCompleted, 2, decimal.NewFromInt(300))
	stats.Add(StatusPending, 3, decimal.NewFromInt(100))
	stats.Add(StatusFailed, 1, decimal.NewFromInt(50))

	assert.Equal(t, int64(6), stats.TotalOrders)
	assert.Equal(t, int64(2), stats.CompletedOrders)
	assert.Equal(t, int64(3), stats.PendingOrders)
	assert.Equal(t, int64(1), stats.FailedOrders)
	assert.True(t, stats.TotalRevenue.Equal(decimal.NewFromInt(450)))
	assert.True(t, stats.CompletedRevenue.Equal(decimal.NewFromInt(300)))
}

func TestOrderPayloadItemCount(t *testing.T) {
	p := OrderPayload{Products: []OrderProduct{{ID: 1, Quantity: 2}, {ID: 2, Quantity: 1}}}
	assert.Equal(t, int64(3), p.ItemCount())
}
