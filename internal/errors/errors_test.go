package errors

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandler_Handle(t *testing.T) {
	h := NewHandler(testLogger(), false)
	ctx := context.Background()

	t.Run("nil error", func(t *testing.T) {
		assert.Nil(t, h.Handle(ctx, nil))
	})

	t.Run("app error passes through", func(t *testing.T) {
		appErr := NewNoRolesError("U1")
		got := h.Handle(ctx, appErr)
		assert.Same(t, appErr, got)
		assert.Equal(t, CodeNoRoles, got.Code)
	})

	t.Run("wrapped app error", func(t *testing.T) {
		wrapped := errors.Join(errors.New("context"), NewIncompleteRequestError("missing pending"))
		got := h.Handle(ctx, wrapped)
		assert.Equal(t, CodeIncomplete, got.Code)
	})

	t.Run("unknown error becomes internal", func(t *testing.T) {
		got := h.Handle(ctx, errors.New("boom"))
		assert.Equal(t, CodeInternal, got.Code)
		assert.NotEmpty(t, got.UserMessage)
		assert.Equal(t, "errors.internal", got.Key)
	})
}

func TestWithRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("retryable error is retried until success", func(t *testing.T) {
		calls := 0
		err := WithRetry(ctx, func() error {
			calls++
			if calls < 3 {
				return NewStorageError(errors.New("disk busy"))
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("non-retryable error stops immediately", func(t *testing.T) {
		calls := 0
		err := WithRetry(ctx, func() error {
			calls++
			return NewValidationError("bad duration", nil)
		})
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		err := WithRetry(ctx, func() error {
			calls++
			return NewStorageError(errors.New("disk gone"))
		})
		assert.True(t, IsCode(err, CodeStorage))
		assert.Equal(t, MaxRetries+1, calls)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		err := WithRetry(cancelled, func() error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})
}
