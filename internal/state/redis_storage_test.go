package state

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/leave-bot/internal/domain"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = client.Close()
	})

	return client, mr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRedisStorage_SetAndGet(t *testing.T) {
	client, _ := setupTestRedis(t)
	storage := NewRedisStorage(client, testLogger(), time.Hour)
	ctx := context.Background()

	pending, err := NewAwaitingRole("123", domain.VacationDays)
	require.NoError(t, err)
	pending, err = pending.WithRole("Member")
	require.NoError(t, err)

	require.NoError(t, storage.Set(ctx, pending))

	result, err := storage.Get(ctx, "123")
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingForm, result.State)
	assert.Equal(t, domain.VacationDays, result.VacationType)
	assert.Equal(t, "Member", result.RoleID)
	assert.False(t, result.UpdatedAt.IsZero())
}

func TestRedisStorage_GetNotFound(t *testing.T) {
	client, _ := setupTestRedis(t)
	storage := NewRedisStorage(client, testLogger(), time.Hour)

	p, err := storage.Get(context.Background(), "999")
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestRedisStorage_DeleteAndList(t *testing.T) {
	client, _ := setupTestRedis(t)
	storage := NewRedisStorage(client, testLogger(), time.Hour)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		p, err := NewAwaitingRole(id, domain.VacationMinutes)
		require.NoError(t, err)
		require.NoError(t, storage.Set(ctx, p))
	}

	all, err := storage.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, storage.Delete(ctx, "a"))

	_, err = storage.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrStateNotFound)

	all, err = storage.List(ctx)
	require.NoError(t, err)
	if assert.Len(t, all, 1) {
		assert.Equal(t, "b", all[0].UserID)
	}
}

func TestRedisStorage_ExpiresWithTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	storage := NewRedisStorage(client, testLogger(), time.Minute)
	ctx := context.Background()

	p, err := NewAwaitingRole("42", domain.VacationDays)
	require.NoError(t, err)
	require.NoError(t, storage.Set(ctx, p))

	mr.FastForward(2 * time.Minute)

	_, err = storage.Get(ctx, "42")
	assert.ErrorIs(t, err, ErrStateNotFound)
}
