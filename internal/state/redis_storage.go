package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	pendingKeyPrefix   = "leave:pending:"
	pendingScanPattern = pendingKeyPrefix + "*"
	pendingScanCount   = 100
)

// RedisStorage persists pending requests in Redis so they survive restarts and can be
// shared by several bot replicas. Keys expire after ttl.
type RedisStorage struct {
	client *redis.Client
	log    *slog.Logger
	ttl    time.Duration
}

// NewRedisStorage initializes a Redis-backed Storage implementation.
func NewRedisStorage(client *redis.Client, log *slog.Logger, ttl time.Duration) *RedisStorage {
	if log == nil {
		log = slog.Default()
	}

	return &RedisStorage{
		client: client,
		log:    log,
		ttl:    ttl,
	}
}

// Get returns the stored request or ErrStateNotFound when absent.
func (s *RedisStorage) Get(ctx context.Context, userID string) (*PendingRequest, error) {
	data, err := s.client.Get(ctx, pendingKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrStateNotFound
		}

		s.log.Error("failed to get pending request from redis", "user_id", userID, "error", err)
		return nil, err
	}

	var p PendingRequest
	if err := json.Unmarshal(data, &p); err != nil {
		s.log.Error("failed to decode pending request", "user_id", userID, "error", err)
		return nil, err
	}

	return &p, nil
}

// Set saves the request with the configured TTL.
func (s *RedisStorage) Set(ctx context.Context, p *PendingRequest) error {
	if p == nil {
		return ErrStateNotFound
	}

	p.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(p)
	if err != nil {
		s.log.Error("failed to encode pending request", "user_id", p.UserID, "error", err)
		return err
	}

	if err := s.client.Set(ctx, pendingKey(p.UserID), data, s.ttl).Err(); err != nil {
		s.log.Error("failed to save pending request in redis", "user_id", p.UserID, "error", err)
		return err
	}

	return nil
}

// Delete removes the stored request for the given user.
func (s *RedisStorage) Delete(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, pendingKey(userID)).Err(); err != nil {
		s.log.Error("failed to delete pending request", "user_id", userID, "error", err)
		return err
	}

	return nil
}

// List retrieves every stored request by scanning Redis keys.
func (s *RedisStorage) List(ctx context.Context) ([]*PendingRequest, error) {
	var (
		cursor uint64
		result []*PendingRequest
	)

	for {
		keys, nextCursor, err := s.client.Scan(ctx, cursor, pendingScanPattern, pendingScanCount).Result()
		if err != nil {
			s.log.Error("failed to scan pending requests", "error", err)
			return nil, err
		}

		for _, key := range keys {
			p, err := s.Get(ctx, strings.TrimPrefix(key, pendingKeyPrefix))
			if err != nil {
				if errors.Is(err, ErrStateNotFound) {
					continue
				}
				return nil, err
			}

			result = append(result, p)
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return result, nil
}

func pendingKey(userID string) string {
	return fmt.Sprintf("%s%s", pendingKeyPrefix, userID)
}
