package middleware

import (
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/leave-bot/internal/bot/handlers"
	"github.com/Proton-105/leave-bot/internal/idempotency"
	"github.com/Proton-105/leave-bot/pkg/metrics"
)

// Idempotency drops updates Telegram delivers more than once, e.g. after a webhook retry.
func Idempotency(manager *idempotency.Manager, log *slog.Logger) handlers.Middleware {
	if manager == nil {
		return func(next handlers.Handler) handlers.Handler {
			return next
		}
	}
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			key := extractIdempotencyKey(c)
			if key == "" {
				return next(c)
			}

			if !manager.First(handlers.Context(c), idempotency.GenerateKey(key)) {
				log.Info("duplicate update dropped", slog.String("key", key))
				metrics.RecordDroppedUpdate("duplicate")
				if c.Callback() != nil {
					return c.Respond()
				}
				return nil
			}

			return next(c)
		}
	}
}

func extractIdempotencyKey(c telebot.Context) string {
	if c == nil {
		return ""
	}

	if cb := c.Callback(); cb != nil {
		if cb.ID != "" {
			return fmt.Sprintf("cb:%s", cb.ID)
		}
	}

	if msg := c.Message(); msg != nil && msg.ID != 0 {
		chatID := int64(0)
		if msg.Chat != nil {
			chatID = msg.Chat.ID
		}
		return fmt.Sprintf("msg:%d:%d", chatID, msg.ID)
	}

	if id := c.Update().ID; id != 0 {
		return fmt.Sprintf("update:%d", id)
	}

	return ""
}
