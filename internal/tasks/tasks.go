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

package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/jerry-enebeli/orderrelay"
	"github.com/jerry-enebeli/orderrelay/config"
)

const (
	// TypeProcessOrders triggers one ProcessPending invocation.
	TypeProcessOrders = "relay:process"
	QueueName         = "relay"
)

// ProcessPayload travels with every process task for traceability.
type ProcessPayload struct {
	Trigger string `json:"trigger"`
}

// Processor is the part of the relay the worker needs.
type Processor interface {
	ProcessPending(ctx context.Context) (*orderrelay.BatchSummary, error)
}

// NewProcessTask builds a process task. MaxRetry is zero: a trigger that
// fails is simply picked up by the next tick.
func NewProcessTask(trigger string) (*asynq.Task, error) {
	payload, err := json.Marshal(ProcessPayload{Trigger: trigger})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeProcessOrders, payload, asynq.Queue(QueueName), asynq.MaxRetry(0)), nil
}

// Enqueue pushes a single out of band process task.
func Enqueue(ctx context.Context, client *asynq.Client, trigger string) (*asynq.TaskInfo, error) {
	task, err := NewProcessTask(trigger)
	if err != nil {
		return nil, err
	}
	info, err := client.EnqueueContext(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", TypeProcessOrders, err)
	}
	log.Printf(" [*] Successfully enqueued process task %s", info.ID)
	return info, nil
}

type Handler struct {
	relay Processor
}

func NewHandler(relay Processor) *Handler {
	return &Handler{relay: relay}
}

// ProcessTask runs one invocation. Invocation level failures are wrapped
// with asynq.SkipRetry so the queue never replays them.
func (h *Handler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	ctx, span := otel.Tracer("orderrelay.tasks").Start(ctx, "Process Orders From Redis Queue")
	defer span.End()

	var payload ProcessPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logrus.Error(err)
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}

	summary, err := h.relay.ProcessPending(ctx)
	if err != nil {
		var invErr *orderrelay.InvocationError
		if errors.As(err, &invErr) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	logrus.WithFields(logrus.Fields{
		"trigger":   payload.Trigger,
		"processed": summary.Processed,
		"success":   summary.Success,
		"failed":    summary.Failed,
		"skipped":   summary.Skipped,
	}).Info(" [*] ", summary.Message)
	return nil
}

// Register mounts the handler on mux.
func (h *Handler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeProcessOrders, h.ProcessTask)
}

// NewServer builds the worker server. One invocation at a time is enough:
// concurrency inside a batch is configured on the relay.
func NewServer(redisOpt asynq.RedisClientOpt) *asynq.Server {
	return asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 1,
		Queues:      map[string]int{QueueName: 1},
		Logger:      logrus.StandardLogger(),
	})
}

// NewScheduler registers the periodic process task on cnf.Schedule. The
// task is unique for the lock TTL so ticks do not pile up behind a slow run.
func NewScheduler(redisOpt asynq.RedisClientOpt, cnf config.ProcessingConfig) (*asynq.Scheduler, string, error) {
	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Logger: logrus.StandardLogger(),
	})

	task, err := NewProcessTask("schedule")
	if err != nil {
		return nil, "", err
	}

	entryID, err := scheduler.Register(cnf.Schedule, task, asynq.Unique(cnf.LockTTL()))
	if err != nil {
		return nil, "", fmt.Errorf("register schedule %q: %w", cnf.Schedule, err)
	}
	return scheduler, entryID, nil
}
