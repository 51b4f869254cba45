// Package handlers holds the asynq task handlers.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/leave-bot/internal/jobs"
	"github.com/Proton-105/leave-bot/internal/ratelimit"
)

// PendingSweeper is satisfied by state.Cleaner.
type PendingSweeper interface {
	Sweep(ctx context.Context) int
}

type PendingSweepHandler struct {
	sweeper PendingSweeper
	log     *slog.Logger
}

func NewPendingSweepHandler(sweeper PendingSweeper, log *slog.Logger) *PendingSweepHandler {
	if log == nil {
		log = slog.Default()
	}
	return &PendingSweepHandler{sweeper: sweeper, log: log}
}

func (h *PendingSweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	removed := h.sweeper.Sweep(ctx)
	h.log.DebugContext(ctx, "pending sweep finished", slog.String("task_type", t.Type()), slog.Int("removed", removed))
	return nil
}

type RateLimitSweepHandler struct {
	sweeper ratelimit.Sweeper
	log     *slog.Logger
}

func NewRateLimitSweepHandler(sweeper ratelimit.Sweeper, log *slog.Logger) *RateLimitSweepHandler {
	if log == nil {
		log = slog.Default()
	}
	return &RateLimitSweepHandler{sweeper: sweeper, log: log}
}

func (h *RateLimitSweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.RateLimitSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.log.ErrorContext(ctx, "rate limit sweep: failed to decode payload", slog.String("task_type", t.Type()), slog.Any("error", err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	removed, err := h.sweeper.Sweep(ctx, payload.MaxAge)
	if err != nil {
		return err
	}

	h.log.DebugContext(ctx, "rate limit sweep finished", slog.Int("removed", removed))
	return nil
}
