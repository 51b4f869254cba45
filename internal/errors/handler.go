package errors

import (
	"context"
	"errors"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/Proton-105/leave-bot/pkg/logger"
	"github.com/Proton-105/leave-bot/pkg/metrics"
)

// Handler is the single place errors surfaced by event handling are logged and reported.
type Handler struct {
	log           *slog.Logger
	sentryEnabled bool
}

func NewHandler(log *slog.Logger, sentryEnabled bool) *Handler {
	return &Handler{
		log:           log,
		sentryEnabled: sentryEnabled,
	}
}

// Handle logs err and returns the AppError whose user message should be shown.
// Errors that are not AppErrors are reported as internal failures.
func (h *Handler) Handle(ctx context.Context, err error) *AppError {
	if err == nil {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	log := slog.Default()
	if h != nil && h.log != nil {
		log = h.log
	}

	var appErr *AppError
	if !errors.As(err, &appErr) || appErr == nil {
		appErr = NewInternalError(err)
	}

	attrs := []slog.Attr{
		slog.String("code", appErr.Code),
		slog.String("message", err.Error()),
		slog.String("severity", string(appErr.Severity)),
		slog.Bool("retryable", appErr.Retryable),
	}

	if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
		attrs = append(attrs, slog.String("correlation_id", correlationID))
	}

	level := slog.LevelWarn
	if appErr.Severity == SeverityHigh || appErr.Severity == SeverityCritical {
		level = slog.LevelError
	}
	log.LogAttrs(ctx, level, "event handling failed", attrs...)

	metrics.RecordError(appErr.Code, string(appErr.Severity))

	if h != nil && h.sentryEnabled && (appErr.Severity == SeverityCritical || appErr.Severity == SeverityHigh) {
		h.sendToSentry(err, appErr)
	}

	if appErr.UserMessage == "" {
		appErr.UserMessage = NewInternalError(nil).UserMessage
	}

	return appErr
}

func (h *Handler) sendToSentry(err error, appErr *AppError) {
	sentry.WithScope(func(scope *sentry.Scope) {
		if appErr.Code != "" {
			scope.SetTag("code", appErr.Code)
		}

		if appErr.Severity != "" {
			scope.SetTag("severity", string(appErr.Severity))
		}

		sentry.CaptureException(err)
	})
}
