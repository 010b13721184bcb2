package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "fragmentia:session:"
	// DefaultTTL bounds how long a snapshot outlives its session.
	DefaultTTL = 10 * time.Minute
)

// SnapshotCache stores the latest serialized state of each live session and
// relays its events to out-of-process listeners.
type SnapshotCache interface {
	// Save stores the snapshot for a session code.
	Save(ctx context.Context, code string, snapshot []byte) error
	// Load returns the stored snapshot, or (nil, nil) when none exists.
	Load(ctx context.Context, code string) ([]byte, error)
	// Delete drops the snapshot for a session code.
	Delete(ctx context.Context, code string) error
	// Publish sends an event payload on the session's channel.
	Publish(ctx context.Context, code string, payload []byte) error
	// Close releases the connection.
	Close() error
}

// RedisCache implements SnapshotCache on Redis.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ SnapshotCache = (*RedisCache)(nil)

// NewRedisCache connects to the Redis server at redisURL (redis://host:port/db).
// A zero ttl uses DefaultTTL.
func NewRedisCache(ctx context.Context, redisURL string, ttl time.Duration) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{rdb: rdb, ttl: ttl}, nil
}

// SnapshotKey returns the key a session's snapshot is stored under.
func SnapshotKey(code string) string {
	return keyPrefix + code
}

// EventChannel returns the pub/sub channel a session's events go to.
func EventChannel(code string) string {
	return keyPrefix + code + ":events"
}

func (c *RedisCache) Save(ctx context.Context, code string, snapshot []byte) error {
	if err := c.rdb.Set(ctx, SnapshotKey(code), snapshot, c.ttl).Err(); err != nil {
		return fmt.Errorf("save snapshot %s: %w", code, err)
	}
	return nil
}

func (c *RedisCache) Load(ctx context.Context, code string) ([]byte, error) {
	data, err := c.rdb.Get(ctx, SnapshotKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", code, err)
	}
	return data, nil
}

func (c *RedisCache) Delete(ctx context.Context, code string) error {
	if err := c.rdb.Del(ctx, SnapshotKey(code)).Err(); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", code, err)
	}
	return nil
}

func (c *RedisCache) Publish(ctx context.Context, code string, payload []byte) error {
	if err := c.rdb.Publish(ctx, EventChannel(code), payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", code, err)
	}
	return nil
}

// Subscribe listens on a session's event channel. The caller closes the
// returned PubSub.
func (c *RedisCache) Subscribe(ctx context.Context, code string) *redis.PubSub {
	return c.rdb.Subscribe(ctx, EventChannel(code))
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
