package middleware

import (
	"strings"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/leave-bot/internal/bot/handlers"
	"github.com/Proton-105/leave-bot/internal/bot/keyboard"
	"github.com/Proton-105/leave-bot/pkg/metrics"
)

// Metrics measures execution time and status for routed updates, reporting them to Prometheus.
func Metrics(next handlers.Handler) handlers.Handler {
	return func(c telebot.Context) error {
		start := time.Now()
		err := next(c)

		status := "ok"
		if err != nil {
			status = "error"
		}

		metrics.RecordUpdate(updateKind(c), status, time.Since(start))

		return err
	}
}

// updateKind keeps label cardinality bounded: callbacks are labelled by their unique
// identifier, commands by name, and anything else as text.
func updateKind(c telebot.Context) string {
	if c == nil {
		return "unknown"
	}

	if cb := c.Callback(); cb != nil {
		if unique, _, err := keyboard.DecodeCallback(cb.Data); err == nil {
			return "callback:" + unique
		}
		return "callback"
	}

	text := c.Text()
	if strings.HasPrefix(text, "/") {
		cmd, _, _ := strings.Cut(text, " ")
		cmd, _, _ = strings.Cut(cmd, "@")
		return "command:" + strings.ToLower(cmd)
	}

	if text != "" {
		return "text"
	}

	return "unknown"
}
