package state

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker_SerialisesSameUser(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		inside  int32
		maxSeen int32
	)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			unlock, err := locker.Lock(ctx, "U1")
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			defer unlock()

			n := atomic.AddInt32(&inside, 1)
			for {
				seen := atomic.LoadInt32(&maxSeen)
				if n <= seen || atomic.CompareAndSwapInt32(&maxSeen, seen, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}

	wg.Wait()
	assert.Equal(t, int32(1), maxSeen)
	assert.Empty(t, locker.locks, "lock entries must be released")
}

func TestMemoryLocker_ContextCancelled(t *testing.T) {
	locker := NewMemoryLocker()

	unlock, err := locker.Lock(context.Background(), "U1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = locker.Lock(ctx, "U1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()

	other, err := locker.Lock(context.Background(), "U2")
	require.NoError(t, err)
	other()
}

func TestRedisLocker_Lock(t *testing.T) {
	client, _ := setupTestRedis(t)
	locker := NewRedisLocker(client, testLogger(), time.Second)
	ctx := context.Background()

	var wg sync.WaitGroup
	errCh := make(chan error, 2)
	release := make(chan struct{})

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, "77")
			errCh <- err
			if err == nil {
				<-release
				unlock()
			}
		}()
	}

	var success, locked int
	for i := 0; i < 2; i++ {
		err := <-errCh
		switch {
		case err == nil:
			success++
		case errors.Is(err, ErrStateLocked):
			locked++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	close(release)
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Equal(t, 1, locked)

	unlock, err := locker.Lock(ctx, "77")
	require.NoError(t, err, "lock must be free after release")
	unlock()
}
