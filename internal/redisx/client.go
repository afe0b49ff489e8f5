package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// Claim sets key to value only if it is absent and reports whether it did.
func Claim(ctx context.Context, rdb *redis.Client, key, value string, ttl time.Duration) (bool, error) {
	ok, err := rdb.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return ok, nil
}

// FirstSeen marks key with ttl and reports whether it was not set before.
func FirstSeen(ctx context.Context, rdb *redis.Client, key string, ttl time.Duration) (bool, error) {
	return Claim(ctx, rdb, key, "1", ttl)
}

func Lookup(ctx context.Context, rdb *redis.Client, key string) (string, bool, error) {
	v, err := rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}
