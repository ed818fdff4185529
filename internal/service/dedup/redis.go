package dedup

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is the shared backing. Each key holds the last-seen unix
// milliseconds and expires after RetentionWindow.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis creates a Redis-backed deduplicator.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, prefix: "dedup:"}
}

func (r *Redis) key(k Key) string {
	return r.prefix + k.String()
}

// Check implements Deduplicator.
func (r *Redis) Check(ctx context.Context, key Key, now time.Time) (Decision, error) {
	val, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return accept, nil
	}
	if err != nil {
		return accept, fmt.Errorf("dedup get %s: %w", key, err)
	}
	ms, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return accept, fmt.Errorf("dedup parse %s: %w", key, err)
	}
	return decide(key.Kind, time.UnixMilli(ms), true, now), nil
}

// Record implements Deduplicator.
func (r *Redis) Record(ctx context.Context, key Key, now time.Time) error {
	if err := r.client.Set(ctx, r.key(key), now.UnixMilli(), RetentionWindow).Err(); err != nil {
		return fmt.Errorf("dedup set %s: %w", key, err)
	}
	return nil
}

// Sweep is a no-op; key expiry bounds memory.
func (r *Redis) Sweep(context.Context, time.Time) (int, error) {
	return 0, nil
}
