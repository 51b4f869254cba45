package roles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/Proton-105/leave-bot/internal/domain"
)

const defaultCacheTTL = 5 * time.Minute

// CachedProvider is a Redis read-through cache in front of another Provider.
// Cache failures are logged and fall through to the wrapped provider.
type CachedProvider struct {
	next   Provider
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

// NewCachedProvider wraps next. A nil client disables caching.
func NewCachedProvider(next Provider, client *redis.Client, ttl time.Duration, log *slog.Logger) *CachedProvider {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if log == nil {
		log = slog.Default()
	}

	return &CachedProvider{
		next:   next,
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

func (c *CachedProvider) AssignableRoles(ctx context.Context, userID string) ([]domain.Role, error) {
	roles, hit, err := c.get(ctx, userID)
	if err != nil {
		c.log.Warn("role cache read failed", slog.String("user_id", userID), slog.Any("error", err))
	}
	if hit {
		return roles, nil
	}

	roles, err = c.next.AssignableRoles(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := c.set(ctx, userID, roles); err != nil {
		c.log.Warn("role cache write failed", slog.String("user_id", userID), slog.Any("error", err))
	}

	return roles, nil
}

// Invalidate drops the cached roles for userID.
func (c *CachedProvider) Invalidate(ctx context.Context, userID string) error {
	if c.client == nil {
		return nil
	}

	if err := c.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete cached roles: %w", err)
	}

	return nil
}

// Flush drops every cached role list. Called after the underlying role source changes.
func (c *CachedProvider) Flush(ctx context.Context) error {
	if c.client == nil {
		return nil
	}

	iter := c.client.Scan(ctx, 0, cacheKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("delete cached roles: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan cached roles: %w", err)
	}

	return nil
}

func (c *CachedProvider) get(ctx context.Context, userID string) ([]domain.Role, bool, error) {
	if c.client == nil {
		return nil, false, nil
	}

	data, err := c.client.Get(ctx, cacheKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get cached roles: %w", err)
	}

	var roles []domain.Role
	if err := json.Unmarshal(data, &roles); err != nil {
		return nil, false, fmt.Errorf("decode cached roles: %w", err)
	}

	return roles, true, nil
}

func (c *CachedProvider) set(ctx context.Context, userID string, roles []domain.Role) error {
	if c.client == nil {
		return nil
	}
	if roles == nil {
		roles = []domain.Role{}
	}

	payload, err := json.Marshal(roles)
	if err != nil {
		return fmt.Errorf("encode roles for cache: %w", err)
	}

	if err := c.client.Set(ctx, cacheKey(userID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached roles: %w", err)
	}

	return nil
}

func cacheKey(userID string) string {
	return fmt.Sprintf("leave:roles:%s", userID)
}
