package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/leave-bot/internal/domain"
)

func TestCleaner_Sweep(t *testing.T) {
	storage := NewMemoryStorage(0)
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	storage.now = func() time.Time { return start }
	ctx := context.Background()

	stale, err := NewAwaitingRole("stale", domain.VacationDays)
	require.NoError(t, err)
	require.NoError(t, storage.Set(ctx, stale))

	storage.now = func() time.Time { return start.Add(20 * time.Minute) }
	fresh, err := NewAwaitingRole("fresh", domain.VacationMinutes)
	require.NoError(t, err)
	require.NoError(t, storage.Set(ctx, fresh))

	cleaner := NewCleaner(storage, testLogger(), 15*time.Minute, time.Minute)
	cleaner.now = func() time.Time { return start.Add(25 * time.Minute) }

	assert.Equal(t, 1, cleaner.Sweep(ctx))

	_, err = storage.Get(ctx, "stale")
	assert.ErrorIs(t, err, ErrStateNotFound)
	_, err = storage.Get(ctx, "fresh")
	assert.NoError(t, err)

	assert.Equal(t, 0, cleaner.Sweep(ctx))
}

func TestCleaner_RunStopsOnCancel(t *testing.T) {
	cleaner := NewCleaner(NewMemoryStorage(0), testLogger(), time.Minute, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		cleaner.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleaner did not stop after cancellation")
	}
}
