package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// RevocationStore remembers revoked token ids until the token would have
// expired anyway.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

const revokedPrefix = "revoked:"

// RedisRevocations keeps revoked token ids in Redis so every API instance
// sees a logout.
type RedisRevocations struct {
	client *redis.Client
	prefix string
}

// NewRedisRevocations connects to redisURL and verifies the connection.
func NewRedisRevocations(redisURL string) (*RedisRevocations, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisRevocationsWithClient(client), nil
}

// NewRedisRevocationsWithClient wraps an existing client.
func NewRedisRevocationsWithClient(client *redis.Client) *RedisRevocations {
	return &RedisRevocations{client: client, prefix: revokedPrefix}
}

func (s *RedisRevocations) key(tokenID string) string {
	return s.prefix + tokenID
}

// Revoke marks tokenID revoked until the given time. A token that has
// already expired is not stored.
func (s *RedisRevocations) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, s.key(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether tokenID has been revoked.
func (s *RedisRevocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := s.client.Get(ctx, s.key(tokenID)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup revoked token: %w", err)
	}
	return true, nil
}

// Ping checks if Redis is reachable.
func (s *RedisRevocations) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisRevocations) Close() error {
	return s.client.Close()
}

// MemoryRevocations is the single-instance fallback used when no Redis URL
// is configured. Revocations are lost on restart.
type MemoryRevocations struct {
	c *cache.Cache
}

func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{c: cache.New(cache.NoExpiration, 10*time.Minute)}
}

func (s *MemoryRevocations) Revoke(_ context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	s.c.Set(tokenID, struct{}{}, ttl)
	return nil
}

func (s *MemoryRevocations) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	_, ok := s.c.Get(tokenID)
	return ok, nil
}

var (
	_ RevocationStore = (*RedisRevocations)(nil)
	_ RevocationStore = (*MemoryRevocations)(nil)
)
