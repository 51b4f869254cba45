package middleware

import (
	"fmt"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/leave-bot/internal/bot/handlers"
	errors "github.com/Proton-105/leave-bot/internal/errors"
	"github.com/Proton-105/leave-bot/internal/i18n"
	"github.com/Proton-105/leave-bot/internal/ratelimit"
	"github.com/Proton-105/leave-bot/pkg/metrics"
)

// RateLimitMiddleware enforces per-user rate limits for incoming Telegram updates.
type RateLimitMiddleware struct {
	limiter ratelimit.Limiter
	rules   *ratelimit.Rules
	texts   *i18n.Manager
	log     *slog.Logger
	now     func() time.Time
}

// NewRateLimitMiddleware constructs a rate-limit middleware component.
func NewRateLimitMiddleware(limiter ratelimit.Limiter, rules *ratelimit.Rules, texts *i18n.Manager, log *slog.Logger) *RateLimitMiddleware {
	if log == nil {
		log = slog.Default()
	}

	return &RateLimitMiddleware{
		limiter: limiter,
		rules:   rules,
		texts:   texts,
		log:     log,
		now:     time.Now,
	}
}

// Handle returns a middleware enforcing the per-user limit. Rejections are reported through
// notifier; limiter failures let the update through.
func (m *RateLimitMiddleware) Handle(notifier handlers.Notifier) handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		return m.wrap(next, notifier)
	}
}

func (m *RateLimitMiddleware) wrap(next handlers.Handler, notifier handlers.Notifier) handlers.Handler {
	return func(c telebot.Context) error {
		if m == nil || m.limiter == nil || !m.rules.Enabled() {
			return next(c)
		}

		sender := c.Sender()
		if sender == nil || m.rules.IsWhitelisted(sender.ID) {
			return next(c)
		}

		limit, window, err := m.rules.PerUser()
		if err != nil {
			m.log.Error("failed to load per-user rate limit", slog.Int64("user_id", sender.ID), slog.Any("error", err))
			return next(c)
		}

		key := fmt.Sprintf("user:%d", sender.ID)
		result, err := m.limiter.Check(handlers.Context(c), key, limit, window)
		if err != nil {
			m.log.Warn("rate limiter error", slog.Int64("user_id", sender.ID), slog.Any("error", err))
			return next(c)
		}

		if result.Allowed {
			return next(c)
		}

		m.log.Warn("rate limit exceeded", slog.Int64("user_id", sender.ID))
		metrics.RecordDroppedUpdate("rate_limited")

		appErr := errors.NewRateLimitError(result.RetryAfter(m.now()))
		text := appErr.UserMessage
		if translated := m.texts.Translator(handlers.Lang(c)).Tf(appErr.Key, appErr.Params...); translated != appErr.Key {
			text = translated
		}

		return notifier.Notify(c, text)
	}
}
