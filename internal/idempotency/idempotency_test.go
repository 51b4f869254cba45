package idempotency

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type failingStore struct{}

func (failingStore) Claim(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("unavailable")
}

func TestManager_RedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	m := NewManager(NewRedisStore(client, testLogger()), time.Minute, testLogger())
	ctx := context.Background()

	assert.True(t, m.First(ctx, "cb:1"))
	assert.False(t, m.First(ctx, "cb:1"))
	assert.True(t, m.First(ctx, "cb:2"))

	mr.FastForward(2 * time.Minute)
	assert.True(t, m.First(ctx, "cb:1"))
}

func TestManager_MemoryStoreAndSweep(t *testing.T) {
	store := NewMemoryStore()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	store.now = func() time.Time { return now }

	m := NewManager(store, time.Minute, testLogger())
	ctx := context.Background()

	assert.True(t, m.First(ctx, "msg:1:1"))
	assert.False(t, m.First(ctx, "msg:1:1"))

	now = start.Add(2 * time.Minute)
	assert.Equal(t, 1, store.Sweep())
	assert.True(t, m.First(ctx, "msg:1:1"))
}

func TestManager_FailOpen(t *testing.T) {
	m := NewManager(failingStore{}, 0, testLogger())
	assert.True(t, m.First(context.Background(), "cb:1"))

	var nilManager *Manager
	assert.True(t, nilManager.First(context.Background(), "cb:1"))
}

func TestGenerateKey(t *testing.T) {
	require.Equal(t, GenerateKey("cb", 1), GenerateKey("cb", 1))
	assert.NotEqual(t, GenerateKey("cb", 1), GenerateKey("cb", 2))
	assert.Len(t, GenerateKey("x"), 64)
}
