package state

import (
	"context"
	"log/slog"
	"time"
)

// Cleaner removes abandoned pending requests on a schedule.
type Cleaner struct {
	storage  Storage
	log      *slog.Logger
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

// NewCleaner constructs a Cleaner instance.
func NewCleaner(storage Storage, log *slog.Logger, ttl, interval time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}

	return &Cleaner{
		storage:  storage,
		log:      log,
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
	}
}

// Run starts the cleanup loop until the context is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	if c == nil || c.storage == nil || c.interval <= 0 || c.ttl <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("pending request cleaner stopped", slog.Any("reason", ctx.Err()))
			return
		case <-ticker.C:
			c.Sweep(ctx)
		}
	}
}

// Sweep deletes every pending request idle for longer than the TTL and returns how many were removed.
func (c *Cleaner) Sweep(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}

	pending, err := c.storage.List(ctx)
	if err != nil {
		c.log.Error("pending request cleaner list failed", slog.Any("error", err))
		return 0
	}

	now := c.now()
	removed := 0
	for _, p := range pending {
		if !p.Expired(c.ttl, now) {
			continue
		}

		if err := c.storage.Delete(ctx, p.UserID); err != nil {
			c.log.Error("pending request cleaner failed to delete", slog.String("user_id", p.UserID), slog.Any("error", err))
			continue
		}

		RecordTransition(p.State, StateIdle)
		c.log.Info("abandoned pending request discarded",
			slog.String("user_id", p.UserID),
			slog.String("state", string(p.State)),
			slog.Duration("idle", now.Sub(p.UpdatedAt)),
		)
		removed++
	}

	return removed
}
