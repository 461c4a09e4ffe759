package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps the standard redis client
type Client struct {
	rdb *redis.Client
}

// NewRedis connects to the Redis server
func NewRedis(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Redis exposes the underlying client for packages that need raw commands.
func (c *Client) Redis() *redis.Client {
	return c.rdb
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// RedisCache is a Cache backed by Redis. Keys are hashed so arbitrary messages
// (newlines, long stack text) map to bounded, printable Redis keys.
// Values are stored without a TTL.
type RedisCache struct {
	client *Client
	prefix string
}

// NewRedisCache creates a Redis-backed Cache. prefix namespaces every key.
func NewRedisCache(client *Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (r *RedisCache) key(k string) string {
	sum := sha256.Sum256([]byte(k))
	return r.prefix + hex.EncodeToString(sum[:])
}

func (r *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.rdb.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *RedisCache) Add(ctx context.Context, key, value string) (string, error) {
	rk := r.key(key)
	set, err := r.client.rdb.SetNX(ctx, rk, value, 0).Result()
	if err != nil {
		return value, err
	}
	if set {
		return value, nil
	}
	existing, err := r.client.rdb.Get(ctx, rk).Result()
	if err != nil {
		return value, err
	}
	return existing, nil
}
