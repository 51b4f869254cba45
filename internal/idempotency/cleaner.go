package idempotency

import (
	"context"
	"log/slog"
	"time"
)

// Cleaner periodically sweeps expired keys out of a MemoryStore. Redis keys expire on their own.
type Cleaner struct {
	store    *MemoryStore
	log      *slog.Logger
	interval time.Duration
}

func NewCleaner(store *MemoryStore, log *slog.Logger, interval time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}

	return &Cleaner{
		store:    store,
		log:      log,
		interval: interval,
	}
}

func (c *Cleaner) Run(ctx context.Context) {
	if c == nil || c.store == nil || c.interval <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := c.store.Sweep(); removed > 0 {
				c.log.Debug("expired update keys removed", slog.Int("count", removed))
			}
		}
	}
}
