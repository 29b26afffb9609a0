package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "inkwell:revoked:"

// RedisSet keeps revoked jtis in Redis with a TTL matching the token's
// remaining lifetime, so entries clean themselves up.
type RedisSet struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisSet connects using a redis:// URL and pings the server.
func NewRedisSet(ctx context.Context, url string) (*RedisSet, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("revocation: parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("revocation: ping redis: %w", err)
	}
	return NewRedisSetFromClient(client), nil
}

func NewRedisSetFromClient(client *redis.Client) *RedisSet {
	return &RedisSet{client: client, now: time.Now}
}

func (s *RedisSet) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl < time.Second {
		// Already expired tokens still need a short lived marker so a
		// concurrent consumer loses the race.
		ttl = time.Second
	}

	ok, err := s.client.SetNX(ctx, redisKeyPrefix+jti, 1, ttl).Result()
	if err != nil {
		return fmt.Errorf("revocation: setnx: %w", err)
	}
	if !ok {
		return ErrAlreadyRevoked
	}
	return nil
}

func (s *RedisSet) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, redisKeyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("revocation: exists: %w", err)
	}
	return n > 0, nil
}

// Ping checks the Redis connection for readiness probes.
func (s *RedisSet) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisSet) Close() error {
	return s.client.Close()
}
