package bot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/leave-bot/internal/bot/handlers"
	errors "github.com/Proton-105/leave-bot/internal/errors"
	"github.com/Proton-105/leave-bot/internal/i18n"
	"github.com/Proton-105/leave-bot/pkg/logger"
)

const defaultUpdateTimeout = 30 * time.Second

// ContextMiddleware attaches a context with a correlation id and a deadline to every update.
func ContextMiddleware(timeout time.Duration) handlers.Middleware {
	if timeout <= 0 {
		timeout = defaultUpdateTimeout
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			ctx, cancel := context.WithTimeout(logger.WithCorrelationID(context.Background()), timeout)
			defer cancel()

			handlers.SetContext(c, ctx)
			return next(c)
		}
	}
}

// RecoveryMiddleware catches panics raised outside the workflow engine, reports them via the
// centralized handler, and notifies the user privately.
func RecoveryMiddleware(log *slog.Logger, errHandler *errors.Handler, texts *i18n.Manager, notifier handlers.Notifier) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic recovered in handler", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))

					appErr := errHandler.Handle(handlers.Context(c), errors.NewInternalError(fmt.Errorf("panic recovered: %v", r)))
					if sendErr := notifier.Notify(c, userMessage(texts, handlers.Lang(c), appErr)); sendErr != nil {
						log.Error("failed to notify user about panic", slog.Any("error", sendErr))
					}

					err = nil
				}
			}()

			return next(c)
		}
	}
}

// ErrorHandlingMiddleware reports delivery failures returned by handlers and tries once to tell
// the user privately. Errors never propagate back to telebot.
func ErrorHandlingMiddleware(errHandler *errors.Handler, texts *i18n.Manager, notifier handlers.Notifier) handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			appErr := errHandler.Handle(handlers.Context(c), err)
			_ = notifier.Notify(c, userMessage(texts, handlers.Lang(c), appErr))

			return nil
		}
	}
}

// LoggingMiddleware logs basic telemetry about incoming updates.
func LoggingMiddleware(log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			start := time.Now()
			userID := handlers.UserID(c)
			correlationID := logger.CorrelationIDFromContext(handlers.Context(c))

			action := c.Text()
			if cb := c.Callback(); cb != nil {
				action = cb.Data
			}

			log.Debug("handling update",
				slog.String("user_id", userID),
				slog.String("action", action),
				slog.String("correlation_id", correlationID),
			)
			err := next(c)
			log.Info("handled update",
				slog.String("user_id", userID),
				slog.String("action", action),
				slog.String("correlation_id", correlationID),
				slog.Duration("duration", time.Since(start)),
				slog.Any("error", err),
			)

			return err
		}
	}
}

func userMessage(texts *i18n.Manager, lang string, appErr *errors.AppError) string {
	if texts != nil && appErr.Key != "" {
		if translated := texts.Translator(lang).Tf(appErr.Key, appErr.Params...); translated != appErr.Key {
			return translated
		}
	}
	return appErr.UserMessage
}
