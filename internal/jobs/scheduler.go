package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

type Scheduler interface {
	RegisterTasks(pendingEvery, rateLimitEvery, rateLimitMaxAge time.Duration) error
	Run()
	Shutdown()
}

type scheduler struct {
	asynqScheduler *asynq.Scheduler
	log            *slog.Logger
}

func NewScheduler(redisOpt asynq.RedisConnOpt, log *slog.Logger) Scheduler {
	if log == nil {
		log = slog.Default()
	}

	return &scheduler{
		asynqScheduler: asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{Location: time.UTC}),
		log:            log,
	}
}

// RegisterTasks schedules the sweeps at fixed intervals. A non-positive pendingEvery leaves
// the pending sweep to the local process.
func (s *scheduler) RegisterTasks(pendingEvery, rateLimitEvery, rateLimitMaxAge time.Duration) error {
	if pendingEvery > 0 {
		if _, err := s.asynqScheduler.Register(everySpec(pendingEvery), NewPendingSweepTask()); err != nil {
			return fmt.Errorf("register pending sweep: %w", err)
		}
	}

	task, err := NewRateLimitSweepTask(rateLimitMaxAge)
	if err != nil {
		return err
	}
	if _, err := s.asynqScheduler.Register(everySpec(rateLimitEvery), task); err != nil {
		return fmt.Errorf("register rate limit sweep: %w", err)
	}

	s.log.InfoContext(context.Background(), "scheduler: registered sweep tasks",
		slog.Duration("pending_every", pendingEvery),
		slog.Duration("ratelimit_every", rateLimitEvery),
	)

	return nil
}

func (s *scheduler) Run() {
	s.log.InfoContext(context.Background(), "scheduler: starting")

	go func() {
		if err := s.asynqScheduler.Run(); err != nil {
			s.log.ErrorContext(context.Background(), "scheduler: run failed", slog.Any("error", err))
		}
	}()
}

func (s *scheduler) Shutdown() {
	s.log.InfoContext(context.Background(), "scheduler: shutting down")
	s.asynqScheduler.Shutdown()
}

func everySpec(d time.Duration) string {
	if d < time.Second {
		d = time.Second
	}
	return "@every " + d.String()
}
