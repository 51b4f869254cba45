package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Proton-105/leave-bot/internal/state"
)

var (
	eventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leave_events_total",
			Help: "Total number of workflow events handled labeled by step and status",
		},
		[]string{"step", "status"},
	)
	eventDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leave_event_duration_seconds",
			Help:    "Duration of workflow event handling in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"step"},
	)
	stateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leave_state_transitions_total",
			Help: "Total number of pending request state transitions",
		},
		[]string{"from", "to"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leave_errors_total",
			Help: "Total number of errors split by code and severity",
		},
		[]string{"code", "severity"},
	)
	storeWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leave_store_writes_total",
			Help: "Total number of leave store write-backs by result",
		},
		[]string{"result"},
	)
	pendingRequests = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "leave_pending_requests",
			Help: "Number of in-flight leave requests per state",
		},
		[]string{"state"},
	)
	updatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leave_telegram_updates_total",
			Help: "Total number of Telegram updates routed by kind and status",
		},
		[]string{"kind", "status"},
	)
	updateDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leave_telegram_update_duration_seconds",
			Help:    "Duration of Telegram update handling in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
	droppedUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leave_telegram_updates_dropped_total",
			Help: "Total number of Telegram updates dropped before reaching a handler",
		},
		[]string{"reason"},
	)
	submittedRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "leave_submitted_requests",
			Help: "Number of leave requests currently held by the store",
		},
	)
)

var trackedStates = []state.State{
	state.StateAwaitingRole,
	state.StateAwaitingForm,
}

func init() {
	state.RegisterTransitionRecorder(RecordStateTransition)
}

// RecordUpdate records a routed Telegram update.
func RecordUpdate(kind, status string, duration time.Duration) {
	if kind == "" {
		kind = "unknown"
	}
	updatesTotal.WithLabelValues(kind, status).Inc()
	updateDurationSeconds.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordDroppedUpdate counts an update rejected by rate limiting or duplicate detection.
func RecordDroppedUpdate(reason string) {
	droppedUpdatesTotal.WithLabelValues(reason).Inc()
}

// RecordEvent increments event counters and records handling duration.
func RecordEvent(step, status string, duration time.Duration) {
	if step == "" {
		step = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	eventsTotal.WithLabelValues(step, status).Inc()
	eventDurationSeconds.WithLabelValues(step).Observe(duration.Seconds())
}

// RecordStateTransition tracks pending request transitions.
func RecordStateTransition(from, to string) {
	if from == "" {
		from = "unknown"
	}
	if to == "" {
		to = "unknown"
	}

	stateTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordError increments error counters with metadata.
func RecordError(code, severity string) {
	if code == "" {
		code = "unknown"
	}
	if severity == "" {
		severity = "unknown"
	}

	errorsTotal.WithLabelValues(code, severity).Inc()
}

// RecordStoreWrite counts store write-backs.
func RecordStoreWrite(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}

	storeWritesTotal.WithLabelValues(result).Inc()
}

// SetSubmittedRequests updates the gauge of persisted records.
func SetSubmittedRequests(count int) {
	submittedRequests.Set(float64(count))
}

// PendingCollector periodically counts pending requests and emits gauge metrics.
type PendingCollector struct {
	storage  state.Storage
	interval time.Duration
}

// NewPendingCollector builds a collector bound to the pending request storage.
func NewPendingCollector(storage state.Storage, interval time.Duration) *PendingCollector {
	if interval <= 0 {
		interval = 10 * time.Second
	}

	return &PendingCollector{storage: storage, interval: interval}
}

// Run polls the storage until ctx is cancelled.
func (c *PendingCollector) Run(ctx context.Context) {
	if c == nil || c.storage == nil {
		return
	}

	for {
		_ = c.collect(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.interval):
		}
	}
}

func (c *PendingCollector) collect(ctx context.Context) error {
	pending, err := c.storage.List(ctx)
	if err != nil {
		return err
	}

	counts := make(map[state.State]int, len(trackedStates))
	for _, p := range pending {
		if p != nil {
			counts[p.State]++
		}
	}

	pendingRequests.Reset()
	for _, tracked := range trackedStates {
		pendingRequests.WithLabelValues(string(tracked)).Set(float64(counts[tracked]))
	}

	return nil
}
