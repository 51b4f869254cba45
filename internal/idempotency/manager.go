// Package idempotency drops Telegram updates that are delivered more than once.
package idempotency

import (
	"context"
	"log/slog"
	"time"
)

const DefaultTTL = 24 * time.Hour

// Manager decides whether an update key is being processed for the first time.
type Manager struct {
	store Store
	ttl   time.Duration
	log   *slog.Logger
}

func NewManager(store Store, ttl time.Duration, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Manager{
		store: store,
		ttl:   ttl,
		log:   log,
	}
}

// First reports whether key has not been seen before. Store failures let the update through.
func (m *Manager) First(ctx context.Context, key string) bool {
	if m == nil || m.store == nil || key == "" {
		return true
	}

	claimed, err := m.store.Claim(ctx, key, m.ttl)
	if err != nil {
		m.log.Warn("duplicate check failed, processing update", slog.String("key", key), slog.Any("error", err))
		return true
	}

	return claimed
}
