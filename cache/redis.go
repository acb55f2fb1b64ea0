// Package cache holds the shared Redis client and the best-effort view
// counter built on it.
package cache

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	redisOnce   sync.Once
	redisClient *redis.Client
	redisErr    error
)

// GetRedisClient returns a singleton Redis client configured from environment
// variables. REDIS_ADDR defaults to localhost:6379 when unset. REDIS_DB and
// REDIS_PASSWORD are optional.
func GetRedisClient() (*redis.Client, error) {
	redisOnce.Do(func() {
		addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
		if addr == "" {
			addr = "localhost:6379"
		}
		password := os.Getenv("REDIS_PASSWORD")
		db := 0
		if rawDB := strings.TrimSpace(os.Getenv("REDIS_DB")); rawDB != "" {
			if parsed, err := strconv.Atoi(rawDB); err == nil {
				db = parsed
			}
		}

		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := client.Ping(ctx).Err(); err != nil {
			redisErr = fmt.Errorf("cache: ping redis %s failed: %w", addr, err)
			_ = client.Close()
			return
		}

		redisClient = client
	})

	return redisClient, redisErr
}

// Close releases the cached Redis connection. Mainly useful for tests.
func Close() error {
	if redisClient == nil {
		return nil
	}
	return redisClient.Close()
}

// ViewCounter tracks per-model view counts in Redis. Every operation is
// best-effort: a nil counter or an unreachable Redis never fails the caller.
type ViewCounter struct {
	client *redis.Client
}

// NewViewCounterFromEnv builds a ViewCounter on the shared client, or nil
// when Redis is not reachable.
func NewViewCounterFromEnv() *ViewCounter {
	client, err := GetRedisClient()
	if err != nil || client == nil {
		return nil
	}
	return &ViewCounter{client: client}
}

func viewKey(modelID uint64) string {
	return fmt.Sprintf("models:%d:views", modelID)
}

// Increment bumps the view count for a model and returns the new total.
func (v *ViewCounter) Increment(ctx context.Context, modelID uint64) int64 {
	if v == nil || v.client == nil {
		return 0
	}
	opCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	total, err := v.client.Incr(opCtx, viewKey(modelID)).Result()
	if err != nil {
		return 0
	}
	return total
}

// Get reads the current view count for a model.
func (v *ViewCounter) Get(ctx context.Context, modelID uint64) int64 {
	if v == nil || v.client == nil {
		return 0
	}
	opCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	raw, err := v.client.Get(opCtx, viewKey(modelID)).Result()
	if err != nil {
		return 0
	}
	total, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return total
}

// Forget drops the counter for a deleted model.
func (v *ViewCounter) Forget(ctx context.Context, modelID uint64) {
	if v == nil || v.client == nil {
		return
	}
	opCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	_ = v.client.Del(opCtx, viewKey(modelID)).Err()
}
