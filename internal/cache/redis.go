package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const claimPrefix = "guardtip:claim:"

// ClaimStore hands out exclusive, expiring claims backed by Redis SETNX.
type ClaimStore struct {
	client *redis.Client
}

// Connect opens a Redis client for addr and pings it.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "",
		DB:       0,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect Redis: %w", err)
	}
	logrus.Infof("Redis connected at %s", addr)
	return client, nil
}

func NewClaimStore(client *redis.Client) *ClaimStore {
	return &ClaimStore{client: client}
}

// Claim reports whether the caller now holds key. An existing claim is left
// untouched until it expires or is released.
func (s *ClaimStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, claimPrefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim %s: %w", key, err)
	}
	return ok, nil
}

func (s *ClaimStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, claimPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release %s: %w", key, err)
	}
	return nil
}
