// Package jobs runs the periodic sweeps through asynq when Redis is shared between instances,
// so only one instance sweeps at a time.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TaskTypePendingSweep   = "pending:sweep"
	TaskTypeRateLimitSweep = "ratelimit:sweep"
)

const (
	QueueDefault = "default"
	QueueLow     = "low"
)

// Queues is the queue priority table workers are started with.
var Queues = map[string]int{
	QueueDefault: 6,
	QueueLow:     1,
}

type RateLimitSweepPayload struct {
	MaxAge time.Duration `json:"max_age"`
}

// NewPendingSweepTask builds the task that discards abandoned pending requests.
func NewPendingSweepTask() *asynq.Task {
	return asynq.NewTask(TaskTypePendingSweep, nil, asynq.Queue(QueueDefault), asynq.MaxRetry(0))
}

// NewRateLimitSweepTask builds the task that drops rate-limit windows idle for maxAge.
func NewRateLimitSweepTask(maxAge time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(RateLimitSweepPayload{MaxAge: maxAge})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeRateLimitSweep, payload, asynq.Queue(QueueLow), asynq.MaxRetry(0)), nil
}
