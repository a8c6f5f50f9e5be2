package orderrelay

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jerry-enebeli/orderrelay/internal/apierror"
	"github.com/jerry-enebeli/orderrelay/model"
)

// memStore is an in-memory queue store that records the order of side
// effects and can inject store failures.
type memStore struct {
	mu      sync.Mutex
	entries map[int64]*model.QueueEntry
	records []model.ResultRecord
	events  []string
	nextID  int64

	fetchErr       error
	claimErr       map[int64]error
	stolen         map[int64]bool
	recordFailures int
	recordPanics   int
	finalizeFails  int
	fetchCalls     int
}

func newMemStore(entries ...model.QueueEntry) *memStore {
	s := &memStore{
		entries:  map[int64]*model.QueueEntry{},
		claimErr: map[int64]error{},
		stolen:   map[int64]bool{},
	}
	for i := range entries {
		e := entries[i]
		if e.Status == "" {
			e.Status = model.StatusPending
		}
		s.entries[e.ID] = &e
	}
	return s
}

func (s *memStore) event(name string) {
	s.events = append(s.events, name)
}

func (s *memStore) entry(id int64) model.QueueEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.entries[id]
}

func (s *memStore) recordsFor(id int64) []model.ResultRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ResultRecord
	for _, r := range s.records {
		if r.OrderQueueID == id {
			out = append(out, r)
		}
	}
	return out
}

func (s *memStore) FetchEligibleEntries(_ context.Context, now time.Time, limit int) ([]model.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchCalls++
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}

	var due []model.QueueEntry
	for _, e := range s.entries {
		if e.Status == model.StatusPending && !e.ScheduledTime.After(now) {
			due = append(due, *e)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].OrderIndex < due[j].OrderIndex })
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *memStore) ClaimEntry(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.claimErr[id]; err != nil {
		return false, err
	}
	e := s.entries[id]
	if s.stolen[id] {
		e.Status = model.StatusProcessing
	}
	if e.Status != model.StatusPending {
		return false, nil
	}
	e.Status = model.StatusProcessing
	s.event("claim")
	return true, nil
}

func (s *memStore) FinalizeEntry(_ context.Context, id int64, f model.Finalization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalizeFails > 0 {
		s.finalizeFails--
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to finalize order", errors.New("connection reset"))
	}
	e := s.entries[id]
	if e.Status != model.StatusProcessing {
		return apierror.NewAPIError(apierror.ErrConflict, "Order is not processing", nil)
	}
	e.Status = f.Status
	processedAt := f.ProcessedAt
	e.ProcessedAt = &processedAt
	if f.BillID != nil {
		e.BillID = *f.BillID
	}
	if f.TotalAmount != nil {
		e.TotalAmount = *f.TotalAmount
	}
	if f.ErrorMessage != nil {
		e.ErrorMessage = *f.ErrorMessage
	}
	s.event("finalize")
	return nil
}

func (s *memStore) GetEntry(_ context.Context, id int64) (*model.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "Order not found", nil)
	}
	cp := *e
	return &cp, nil
}

func (s *memStore) RecordResult(_ context.Context, result *model.ResultRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recordPanics > 0 {
		s.recordPanics--
		panic("result store crashed")
	}
	if s.recordFailures > 0 {
		s.recordFailures--
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record order result", errors.New("disk full"))
	}
	s.nextID++
	result.ID = s.nextID
	result.CreatedAt = time.Now()
	s.records = append(s.records, *result)
	s.event("record")
	return nil
}

func (s *memStore) GetResultsByEntry(_ context.Context, id int64) ([]model.ResultRecord, error) {
	return s.recordsFor(id), nil
}

func (s *memStore) GetBatch(_ context.Context, id string) (*model.Batch, error) {
	return &model.Batch{ID: id}, nil
}

func (s *memStore) CountPendingFromDate(_ context.Context, batchID string, from time.Time) (int64, error) {
	return 0, nil
}

func (s *memStore) CancelPendingFromDate(_ context.Context, batchID string, from time.Time) (int64, error) {
	return 0, nil
}

func (s *memStore) PurgeCancelled(_ context.Context, chunkSize int) (int64, error) {
	return 0, nil
}

func (s *memStore) GetBatchStats(_ context.Context, batchID string) (*model.BatchStats, error) {
	return &model.BatchStats{BatchID: batchID, TotalRevenue: decimal.Zero}, nil
}

func (s *memStore) Close() error {
	return nil
}
