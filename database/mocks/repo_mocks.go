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

package mocks

import (
	"context"
	"time"

	"github.com/jerry-enebeli/orderrelay/model"
	"github.com/stretchr/testify/mock"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// Queue methods

func (m *MockDataSource) FetchEligibleEntries(ctx context.Context, now time.Time, limit int) ([]model.QueueEntry, error) {
	args := m.Called(ctx, now, limit)
	entries, _ := args.Get(0).([]model.QueueEntry)
	return entries, args.Error(1)
}

func (m *MockDataSource) ClaimEntry(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockDataSource) FinalizeEntry(ctx context.Context, id int64, f model.Finalization) error {
	args := m.Called(ctx, id, f)
	return args.Error(0)
}

func (m *MockDataSource) GetEntry(ctx context.Context, id int64) (*model.QueueEntry, error) {
	args := m.Called(ctx, id)
	entry, _ := args.Get(0).(*model.QueueEntry)
	return entry, args.Error(1)
}

// Result methods

func (m *MockDataSource) RecordResult(ctx context.Context, result *model.ResultRecord) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockDataSource) GetResultsByEntry(ctx context.Context, orderQueueID int64) ([]model.ResultRecord, error) {
	args := m.Called(ctx, orderQueueID)
	records, _ := args.Get(0).([]model.ResultRecord)
	return records, args.Error(1)
}

// Maintenance methods

func (m *MockDataSource) GetBatch(ctx context.Context, id string) (*model.Batch, error) {
	args := m.Called(ctx, id)
	batch, _ := args.Get(0).(*model.Batch)
	return batch, args.Error(1)
}

func (m *MockDataSource) CountPendingFromDate(ctx context.Context, batchID string, from time.Time) (int64, error) {
	args := m.Called(ctx, batchID, from)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDataSource) CancelPendingFromDate(ctx context.Context, batchID string, from time.Time) (int64, error) {
	args := m.Called(ctx, batchID, from)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDataSource) PurgeCancelled(ctx context.Context, chunkSize int) (int64, error) {
	args := m.Called(ctx, chunkSize)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDataSource) GetBatchStats(ctx context.Context, batchID string) (*model.BatchStats, error) {
	args := m.Called(ctx, batchID)
	stats, _ := args.Get(0).(*model.BatchStats)
	return stats, args.Error(1)
}

func (m *MockDataSource) Close() error {
	return nil
}
