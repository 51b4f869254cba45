package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/leave-bot/internal/domain"
)

func TestMemoryStorage_SetGetDelete(t *testing.T) {
	storage := NewMemoryStorage(time.Hour)
	ctx := context.Background()

	p, err := NewAwaitingRole("U1", domain.VacationDays)
	require.NoError(t, err)
	require.NoError(t, storage.Set(ctx, p))

	got, err := storage.Get(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingRole, got.State)

	got.RoleID = "mutated"
	again, err := storage.Get(ctx, "U1")
	require.NoError(t, err)
	assert.Empty(t, again.RoleID, "storage must hand out copies")

	require.NoError(t, storage.Delete(ctx, "U1"))
	_, err = storage.Get(ctx, "U1")
	assert.ErrorIs(t, err, ErrStateNotFound)

	assert.NoError(t, storage.Delete(ctx, "missing"))
}

func TestMemoryStorage_LazyExpiry(t *testing.T) {
	storage := NewMemoryStorage(time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	storage.now = func() time.Time { return now }
	ctx := context.Background()

	p, err := NewAwaitingRole("U1", domain.VacationMinutes)
	require.NoError(t, err)
	require.NoError(t, storage.Set(ctx, p))

	now = now.Add(30 * time.Second)
	_, err = storage.Get(ctx, "U1")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = storage.Get(ctx, "U1")
	assert.ErrorIs(t, err, ErrStateNotFound)

	all, err := storage.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestPendingRequest_Transitions(t *testing.T) {
	_, err := NewAwaitingRole("U1", domain.VacationType("weeks"))
	assert.ErrorIs(t, err, ErrIncomplete)

	p, err := NewAwaitingRole("U1", domain.VacationDays)
	require.NoError(t, err)

	_, err = p.WithRole("  ")
	assert.ErrorIs(t, err, ErrIncomplete)

	form, err := p.WithRole("Member")
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingForm, form.State)
	assert.Equal(t, StateAwaitingRole, p.State, "WithRole must not mutate the receiver")

	reselected, err := form.WithRole("Admin")
	require.NoError(t, err)
	assert.Equal(t, "Admin", reselected.RoleID)

	var missing *PendingRequest
	_, err = missing.WithRole("Member")
	assert.ErrorIs(t, err, ErrStateNotFound)

	broken := &PendingRequest{UserID: "U1", State: StateIdle}
	_, err = broken.WithRole("Member")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
