package ratelimit

import (
	"errors"
	"time"

	"github.com/Proton-105/leave-bot/pkg/config"
)

// Rules exposes the configured per-user limit.
type Rules struct {
	config config.RateLimitConfig
}

func NewRules(cfg config.RateLimitConfig) *Rules {
	return &Rules{config: cfg}
}

// Enabled reports whether rate limiting is switched on.
func (r *Rules) Enabled() bool {
	return r != nil && r.config.Enabled
}

// IsWhitelisted returns true if the userID bypasses rate limits.
func (r *Rules) IsWhitelisted(userID int64) bool {
	for _, id := range r.config.Whitelist {
		if id == userID {
			return true
		}
	}
	return false
}

// PerUser returns the number of updates a user may send per window.
func (r *Rules) PerUser() (int, time.Duration, error) {
	if r.config.Window == "" {
		return r.config.Limit, 0, errors.New("window duration is not set")
	}

	window, err := time.ParseDuration(r.config.Window)
	if err != nil {
		return 0, 0, err
	}
	if window <= 0 {
		return 0, 0, errors.New("window duration must be positive")
	}

	return r.config.Limit, window, nil
}
