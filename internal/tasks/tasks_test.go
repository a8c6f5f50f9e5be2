package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jerry-enebeli/orderrelay"
	"github.com/jerry-enebeli/orderrelay/config"
)

type fakeProcessor struct {
	summary *orderrelay.BatchSummary
	err     error
	calls   int
}

func (f *fakeProcessor) ProcessPending(context.Context) (*orderrelay.BatchSummary, error) {
	f.calls++
	return f.summary, f.err
}

func newTask(t *testing.T) *asynq.Task {
	task, err := NewProcessTask("test")
	require.NoError(t, err)
	return task
}

func TestProcessTask_Success(t *testing.T) {
	p := &fakeProcessor{summary: &orderrelay.BatchSummary{Status: "ok", Message: "Processed 2 orders", Processed: 2, Success: 2}}

	err := NewHandler(p).ProcessTask(context.Background(), newTask(t))
	assert.NoError(t, err)
	assert.Equal(t, 1, p.calls)
}

func TestProcessTask_InvocationErrorSkipsRetry(t *testing.T) {
	p := &fakeProcessor{err: &orderrelay.InvocationError{Kind: orderrelay.KindConfiguration, Err: errors.New("order_api app_id not set")}}

	err := NewHandler(p).ProcessTask(context.Background(), newTask(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Contains(t, err.Error(), "Missing required configuration")
}

func TestProcessTask_BadPayload(t *testing.T) {
	p := &fakeProcessor{}
	task := asynq.NewTask(TypeProcessOrders, []byte("not json"))

	err := NewHandler(p).ProcessTask(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Zero(t, p.calls)
}

func TestNewProcessTask(t *testing.T) {
	task := newTask(t)
	assert.Equal(t, TypeProcessOrders, task.Type())

	var payload ProcessPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "test", payload.Trigger)
}

func TestEnqueue(t *testing.T) {
	mr := miniredis.RunT(t)
	opt := asynq.RedisClientOpt{Addr: mr.Addr()}
	client := asynq.NewClient(opt)
	defer client.Close()
	inspector := asynq.NewInspector(opt)
	defer inspector.Close()

	info, err := Enqueue(context.Background(), client, "cli")
	require.NoError(t, err)
	assert.Equal(t, QueueName, info.Queue)
	assert.Equal(t, 0, info.MaxRetry)

	pending, err := inspector.ListPendingTasks(QueueName)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, TypeProcessOrders, pending[0].Type)
}

func TestNewScheduler(t *testing.T) {
	opt := asynq.RedisClientOpt{Addr: miniredis.RunT(t).Addr()}

	scheduler, entryID, err := NewScheduler(opt, config.ProcessingConfig{Schedule: "@every 1m", LockTTLSec: 60})
	require.NoError(t, err)
	assert.NotNil(t, scheduler)
	assert.NotEmpty(t, entryID)

	_, _, err = NewScheduler(opt, config.ProcessingConfig{Schedule: "every minute please", LockTTLSec: 60})
	assert.Error(t, err)
}

func TestRegister(t *testing.T) {
	mux := asynq.NewServeMux()
	NewHandler(&fakeProcessor{summary: &orderrelay.BatchSummary{}}).Register(mux)

	h, pattern := mux.Handler(newTask(t))
	assert.Equal(t, TypeProcessOrders, pattern)
	assert.NoError(t, h.ProcessTask(context.Background(), newTask(t)))
}
