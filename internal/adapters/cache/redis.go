package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fairwork/escrow-settlement-service/internal/domain"
	"github.com/fairwork/escrow-settlement-service/internal/ports"
)

func Connect(_ context.Context, redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") {
		opt, parseErr := redis.ParseURL(redisURL)
		if parseErr != nil {
			return nil, fmt.Errorf("parse redis url: %w", parseErr)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

const (
	idempotencyKeyPrefix = "escrow:idem:"
	pauseKey             = "escrow:ops:paused"
)

// RedisIdempotencyStore keeps idempotency records in Redis hashes with the
// record TTL enforced by key expiry.
type RedisIdempotencyStore struct {
	client *redis.Client
}

func NewRedisIdempotencyStore(client *redis.Client) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client}
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string, _ time.Time) (*ports.IdempotencyRecord, error) {
	data, err := s.client.HGetAll(ctx, idempotencyKeyPrefix+key).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	rec := &ports.IdempotencyRecord{Key: key, RequestHash: data["request_hash"]}
	if raw, ok := data["response_code"]; ok && raw != "" {
		if n, convErr := strconv.Atoi(raw); convErr == nil {
			rec.ResponseCode = n
		}
	}
	if raw, ok := data["response_body"]; ok && raw != "" {
		rec.ResponseBody = []byte(raw)
	}
	if ttl, ttlErr := s.client.TTL(ctx, idempotencyKeyPrefix+key).Result(); ttlErr == nil && ttl > 0 {
		rec.ExpiresAt = time.Now().UTC().Add(ttl)
	}
	return rec, nil
}

func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error {
	redisKey := idempotencyKeyPrefix + key
	ok, err := s.client.HSetNX(ctx, redisKey, "request_hash", requestHash).Result()
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrConflict
	}
	return s.client.ExpireAt(ctx, redisKey, expiresAt).Err()
}

func (s *RedisIdempotencyStore) Complete(ctx context.Context, key string, responseCode int, responseBody []byte, _ time.Time) error {
	redisKey := idempotencyKeyPrefix + key
	exists, err := s.client.Exists(ctx, redisKey).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return domain.ErrNotFound
	}
	return s.client.HSet(ctx, redisKey,
		"response_code", responseCode,
		"response_body", string(responseBody),
	).Err()
}

// RedisPauseGate reads the operational pause flag. Missing key means the
// service is not paused.
type RedisPauseGate struct {
	client *redis.Client
}

func NewRedisPauseGate(client *redis.Client) *RedisPauseGate {
	return &RedisPauseGate{client: client}
}

func (g *RedisPauseGate) IsPaused(ctx context.Context) (bool, error) {
	raw, err := g.client.Get(ctx, pauseKey).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "paused":
		return true, nil
	default:
		return false, nil
	}
}
