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
	"context"
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	redlock "github.com/jerry-enebeli/orderrelay/internal/lock"
	"github.com/jerry-enebeli/orderrelay/internal/orderapi"
	"github.com/jerry-enebeli/orderrelay/model"
)

var tracer = otel.Tracer("orderrelay")

const (
	noOrdersMessage = "No orders to process"
	lockHeldMessage = "Another invocation is in progress"
)

// ProcessPending runs one invocation: fetch the due batch, then claim,
// submit, record and finalize every entry. Only *InvocationError is
// returned; entry failures are reported in the summary.
func (r *Relay) ProcessPending(ctx context.Context) (*BatchSummary, error) {
	ctx, span := tracer.Start(ctx, "ProcessPending")
	defer span.End()

	invocationID := model.GenerateUUIDWithSuffix("inv")
	log := logrus.WithField("invocation_id", invocationID)
	span.SetAttributes(attribute.String("invocation.id", invocationID))

	if err := r.cnf.OrderAPI.Validate(); err != nil {
		return nil, r.fatal(ctx, &InvocationError{Kind: KindConfiguration, Err: err})
	}

	var lock Locker
	if r.newLocker != nil {
		lock = r.newLocker()
		err := lock.Lock(ctx, r.cnf.Processing.LockTTL())
		if errors.Is(err, redlock.ErrLockHeld) {
			log.Info(lockHeldMessage)
			return emptySummary(lockHeldMessage), nil
		}
		if err != nil {
			return nil, r.fatal(ctx, &InvocationError{Kind: KindLock, Err: err})
		}
		defer func() {
			if err := lock.Unlock(context.WithoutCancel(ctx)); err != nil {
				log.WithError(err).Warn("failed to release invocation lock")
			}
		}()
	}

	entries, err := r.datasource.FetchEligibleEntries(ctx, r.now().UTC(), r.cnf.Processing.BatchSize)
	if err != nil {
		return nil, r.fatal(ctx, &InvocationError{Kind: KindBatchFetch, Err: err})
	}
	if len(entries) == 0 {
		log.Debug(noOrdersMessage)
		return emptySummary(noOrdersMessage), nil
	}

	log.WithField("batch_size", len(entries)).Info("processing orders")
	summary := Summarize(r.processBatch(ctx, entries, invocationID, lock))

	log.WithFields(logrus.Fields{
		"processed": summary.Processed,
		"success":   summary.Success,
		"failed":    summary.Failed,
		"skipped":   summary.Skipped,
	}).Info(summary.Message)
	span.SetAttributes(
		attribute.Int("orders.success", summary.Success),
		attribute.Int("orders.failed", summary.Failed),
		attribute.Int("orders.skipped", summary.Skipped),
	)

	return summary, nil
}

func (r *Relay) fatal(ctx context.Context, err *InvocationError) error {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	logrus.WithField("kind", err.Kind).Error(err)
	if r.notifier != nil {
		r.notifier.NotifyError(err)
	}
	return err
}

// processBatch keeps outcomes in fetch order whatever the concurrency.
func (r *Relay) processBatch(ctx context.Context, entries []model.QueueEntry, invocationID string, lock Locker) []EntryOutcome {
	outcomes := make([]EntryOutcome, len(entries))

	concurrency := r.cnf.Processing.Concurrency
	if concurrency <= 1 {
		for i, entry := range entries {
			outcomes[i] = r.processEntry(ctx, entry, invocationID)
			r.extendLock(ctx, lock)
		}
		return outcomes
	}

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i := range entries {
		g.Go(func() error {
			outcomes[i] = r.processEntry(ctx, entries[i], invocationID)
			r.extendLock(ctx, lock)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (r *Relay) extendLock(ctx context.Context, lock Locker) {
	if lock == nil {
		return
	}
	if err := lock.ExtendLock(ctx, r.cnf.Processing.LockTTL()); err != nil {
		logrus.WithError(err).Warn("failed to extend invocation lock")
	}
}

// attempt is the resolved answer for one claimed entry.
type attempt struct {
	success     bool
	billID      string
	totalAmount decimal.NullDecimal
	response    json.RawMessage
	message     string
	kind        ErrorKind
}

func failedAttempt(err *EntryError) attempt {
	return attempt{message: err.Error(), kind: err.Kind, response: model.EmptyResponse}
}

func attemptFromResponse(resp *orderapi.Response) attempt {
	raw := resp.Raw
	if len(raw) == 0 {
		raw = model.EmptyResponse
	}
	if resp.Success {
		return attempt{success: true, billID: resp.BillID, totalAmount: resp.TotalAmount, response: raw}
	}
	return attempt{message: resp.Message, response: raw}
}

// processEntry is the fault boundary of one entry. Nothing it encounters,
// panics included, escapes to the batch.
func (r *Relay) processEntry(ctx context.Context, entry model.QueueEntry, invocationID string) (outcome EntryOutcome) {
	ctx, span := tracer.Start(ctx, "ProcessEntry", trace.WithAttributes(
		attribute.Int64("order.id", entry.ID),
		attribute.Int64("order.index", entry.OrderIndex),
	))
	defer span.End()

	log := logrus.WithFields(logrus.Fields{
		"invocation_id": invocationID,
		"order_id":      entry.ID,
		"order_index":   entry.OrderIndex,
	})
	outcome = EntryOutcome{OrderID: entry.ID, OrderIndex: entry.OrderIndex}

	// Once an entry is claimed its writes must land even if ctx is cancelled.
	storeCtx := context.WithoutCancel(ctx)
	resolving := false
	var a attempt

	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		log.WithField("panic", rec).Error("order processing panicked")
		if resolving {
			message := unexpected("%v", rec).Error()
			outcome = EntryOutcome{
				OrderID:    entry.ID,
				OrderIndex: entry.OrderIndex,
				Status:     model.StatusFailed,
				BillID:     a.billID,
				Error:      message,
				Kind:       KindUnexpected,
			}
			r.finalizeAfterPanic(storeCtx, log, entry, a.billID, message)
			return
		}
		outcome = r.resolve(storeCtx, log, entry, failedAttempt(unexpected("%v", rec)))
	}()

	order, payloadErr := NormalizeOrderData(entry.OrderData)

	if err := ctx.Err(); err != nil {
		log.WithError(err).Warn("invocation cancelled, leaving order pending")
		outcome.Skipped = true
		outcome.Error = "invocation cancelled before claim"
		return outcome
	}

	// A failed claim leaves the entry pending for the next invocation, so
	// nothing is recorded for it.
	claimed, err := r.datasource.ClaimEntry(ctx, entry.ID)
	if err != nil {
		log.WithError(err).Error("failed to claim order, leaving it pending")
		outcome.Skipped = true
		outcome.Kind = KindUnexpected
		outcome.Error = unexpected("claim order: %v", err).Error()
		return outcome
	}
	if !claimed {
		log.Info("order already claimed by another invocation, skipping")
		outcome.Skipped = true
		return outcome
	}
	log.WithField("status", model.StatusProcessing).Debug("order claimed")

	if payloadErr != nil {
		a = failedAttempt(&EntryError{Kind: KindPayload, Err: payloadErr})
		resolving = true
		return r.resolve(storeCtx, log, entry, a)
	}

	log.WithFields(logrus.Fields{
		"depot_id":    order.Payload.DepotID,
		"customer_id": order.Payload.Customer.ID,
		"products":    len(order.Payload.Products),
		"items":       order.Payload.ItemCount(),
		"has_payment": order.Payload.Payment != nil,
	}).Debug("submitting order")

	resp, err := r.submitter.Submit(ctx, order.Raw)
	switch {
	case err != nil:
		var netErr *orderapi.NetworkError
		if errors.As(err, &netErr) {
			a = failedAttempt(&EntryError{Kind: KindNetwork, Err: err})
		} else {
			a = failedAttempt(unexpected("%v", err))
		}
	case resp == nil:
		a = failedAttempt(unexpected("order api returned no response"))
	default:
		a = attemptFromResponse(resp)
	}

	resolving = true
	return r.resolve(storeCtx, log, entry, a)
}

// finalizeAfterPanic moves an entry whose resolution panicked to failed.
// The update is guarded, so an entry already finalized is left as it is.
func (r *Relay) finalizeAfterPanic(ctx context.Context, log *logrus.Entry, entry model.QueueEntry, billID, message string) {
	defer func() {
		if rec := recover(); rec != nil {
			log.WithField("panic", rec).Error("fallback finalization panicked")
		}
	}()

	f := model.NewFinalization(false, r.now().UTC(), billID, decimal.NullDecimal{}, message)
	if err := r.datasource.FinalizeEntry(ctx, entry.ID, f); err != nil {
		log.WithError(err).Error("fallback finalization failed")
	}
}

// resolve writes the result record and the terminal status for an attempt.
// A failed record insert or finalize turns the entry into a failure but a
// bill id already obtained is always kept.
func (r *Relay) resolve(ctx context.Context, log *logrus.Entry, entry model.QueueEntry, a attempt) EntryOutcome {
	record := &model.ResultRecord{
		OrderQueueID: entry.ID,
		OrderIndex:   entry.OrderIndex,
		BillID:       a.billID,
		APIResponse:  a.response,
		Success:      a.success,
		ErrorMessage: a.message,
	}
	if err := r.datasource.RecordResult(ctx, record); err != nil {
		log.WithError(err).Error("failed to record order result")
		a.success = false
		a.kind = KindUnexpected
		a.message = unexpected("record result: %v", err).Error()

		fallback := &model.ResultRecord{
			OrderQueueID: entry.ID,
			OrderIndex:   entry.OrderIndex,
			BillID:       a.billID,
			APIResponse:  model.EmptyResponse,
			ErrorMessage: a.message,
		}
		if err := r.datasource.RecordResult(ctx, fallback); err != nil {
			log.WithError(err).Error("fallback result record failed")
		}
	}

	f := model.NewFinalization(a.success, r.now().UTC(), a.billID, a.totalAmount, a.message)
	if err := r.datasource.FinalizeEntry(ctx, entry.ID, f); err != nil {
		log.WithError(err).Error("failed to finalize order")
		a.success = false
		a.kind = KindUnexpected
		a.message = unexpected("finalize order: %v", err).Error()

		fallback := model.NewFinalization(false, r.now().UTC(), a.billID, a.totalAmount, a.message)
		if err := r.datasource.FinalizeEntry(ctx, entry.ID, fallback); err != nil {
			log.WithError(err).Error("fallback finalization failed")
		}
	}

	outcome := EntryOutcome{
		OrderID:    entry.ID,
		OrderIndex: entry.OrderIndex,
		Status:     model.StatusFailed,
		BillID:     a.billID,
		Kind:       a.kind,
	}
	if a.success {
		outcome.Status = model.StatusCompleted
	} else {
		outcome.Error = a.message
	}

	log.WithFields(logrus.Fields{
		"status":  outcome.Status,
		"bill_id": outcome.BillID,
		"error":   outcome.Error,
	}).Info("order finalized")

	return outcome
}
