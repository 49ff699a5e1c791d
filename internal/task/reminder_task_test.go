package task

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmolloy/cartminder/internal/domain"
)

// fakeSender records SendReminder calls and returns a configurable error.
type fakeSender struct {
	mu    sync.Mutex
	calls []fakeSenderCall
	err   error
}

type fakeSenderCall struct {
	cartID int64
	step   domain.ReminderStep
}

func (f *fakeSender) SendReminder(ctx context.Context, cartID int64, step domain.ReminderStep) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fakeSenderCall{cartID: cartID, step: step})
	return f.err
}

func (f *fakeSender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewSendReminderTask(t *testing.T) {
	t.Parallel()

	runAt := time.Now().Add(time.Hour)

	t.Run("valid task", func(t *testing.T) {
		t.Parallel()

		task, err := NewSendReminderTask(42, domain.ReminderStepFirst, runAt, &fakeSender{}, testLogger())
		require.NoError(t, err)

		assert.Equal(t, TaskTypeCartReminder, task.Type())
		assert.Equal(t, TaskStatusPending, task.Status())
		assert.Equal(t, runAt.UTC(), task.RunAt())
		assert.NotEqual(t, task.ID().String(), "00000000-0000-0000-0000-000000000000")
	})

	t.Run("constructor validation", func(t *testing.T) {
		t.Parallel()

		_, err := NewSendReminderTask(42, domain.ReminderStepFirst, runAt, nil, testLogger())
		assert.ErrorIs(t, err, ErrNilReminderSender)

		_, err = NewSendReminderTask(42, domain.ReminderStepFirst, runAt, &fakeSender{}, nil)
		assert.ErrorIs(t, err, ErrNilLogger)

		_, err = NewSendReminderTask(0, domain.ReminderStepFirst, runAt, &fakeSender{}, testLogger())
		assert.ErrorIs(t, err, ErrInvalidCartID)

		_, err = NewSendReminderTask(42, domain.ReminderStep("hourly"), runAt, &fakeSender{}, testLogger())
		assert.ErrorIs(t, err, ErrInvalidStep)
	})
}

func TestSendReminderTaskPayload(t *testing.T) {
	t.Parallel()

	runAt := time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)
	task, err := NewSendReminderTask(42, domain.ReminderStepSecond, runAt, &fakeSender{}, testLogger())
	require.NoError(t, err)

	var payload ReminderJobPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))

	assert.Equal(t, int64(42), payload.CartID)
	assert.Equal(t, domain.ReminderStepSecond, payload.Step)
	assert.WithinDuration(t, runAt, payload.RunAt, 0)
}

func TestSendReminderTaskExecute(t *testing.T) {
	t.Parallel()

	t.Run("delegates to the sender", func(t *testing.T) {
		t.Parallel()

		sender := &fakeSender{}
		task, err := NewSendReminderTask(42, domain.ReminderStepFirst, time.Now(), sender, testLogger())
		require.NoError(t, err)

		require.NoError(t, task.Execute(context.Background()))

		require.Len(t, sender.calls, 1)
		assert.Equal(t, int64(42), sender.calls[0].cartID)
		assert.Equal(t, domain.ReminderStepFirst, sender.calls[0].step)
		assert.Equal(t, TaskStatusCompleted, task.Status())
	})

	t.Run("propagates sender failure", func(t *testing.T) {
		t.Parallel()

		sender := &fakeSender{err: errors.New("smtp is down")}
		task, err := NewSendReminderTask(42, domain.ReminderStepFirst, time.Now(), sender, testLogger())
		require.NoError(t, err)

		err = task.Execute(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "smtp is down")
		assert.Equal(t, TaskStatusFailed, task.Status())
	})

	t.Run("fails fast on cancelled context", func(t *testing.T) {
		t.Parallel()

		sender := &fakeSender{}
		task, err := NewSendReminderTask(42, domain.ReminderStepFirst, time.Now(), sender, testLogger())
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		require.Error(t, task.Execute(ctx))
		assert.Zero(t, sender.callCount(), "a cancelled task must not reach the sender")
	})
}

func TestSendReminderTaskFactoryResolveTask(t *testing.T) {
	t.Parallel()

	factory := NewSendReminderTaskFactory(&fakeSender{}, testLogger())

	t.Run("rebuilds a task from its record", func(t *testing.T) {
		t.Parallel()

		runAt := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
		original, err := factory.CreateTask(7, domain.ReminderStepThird, runAt)
		require.NoError(t, err)

		record := JobRecord{
			ID:      original.ID(),
			Type:    TaskTypeCartReminder,
			Payload: original.Payload(),
			Status:  TaskStatusPending,
			RunAt:   runAt,
		}

		rebuilt, err := factory.ResolveTask(record)
		require.NoError(t, err)

		assert.Equal(t, original.ID(), rebuilt.ID(), "identity must survive the round trip")
		assert.Equal(t, runAt, rebuilt.RunAt())
		assert.Equal(t, original.Payload(), rebuilt.Payload())
	})

	t.Run("rejects foreign job types", func(t *testing.T) {
		t.Parallel()

		_, err := factory.ResolveTask(JobRecord{Type: "newsletter"})
		assert.Error(t, err)
	})

	t.Run("rejects corrupt payloads", func(t *testing.T) {
		t.Parallel()

		_, err := factory.ResolveTask(JobRecord{
			Type:    TaskTypeCartReminder,
			Payload: []byte("{not json"),
		})
		assert.Error(t, err)
	})
}
