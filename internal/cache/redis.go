// Package cache holds the Redis-backed match post cache and the auth rate
// limiter.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options tunes the Redis client. Zero fields take the defaults below.
//
// Both users of the client degrade without Redis: post reads fall back to
// Postgres and the rate limiter fails open. Timeouts are therefore short so
// a slow Redis costs a request little.
type Options struct {
	PoolSize    int
	DialTimeout time.Duration
	// OpTimeout bounds each read and write on a connection.
	OpTimeout time.Duration
}

const (
	defaultPoolSize    = 20
	defaultDialTimeout = 2 * time.Second
	defaultOpTimeout   = 500 * time.Millisecond
)

func (o Options) withDefaults() Options {
	if o.PoolSize <= 0 {
		o.PoolSize = defaultPoolSize
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = defaultDialTimeout
	}
	if o.OpTimeout <= 0 {
		o.OpTimeout = defaultOpTimeout
	}
	return o
}

// Cache wraps the Redis client shared by the post cache and the rate limiter.
type Cache struct {
	client *redis.Client
}

// New parses redisURL, applies opts and pings the server.
func New(ctx context.Context, redisURL string, opts Options) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts = opts.withDefaults()
	opt.PoolSize = opts.PoolSize
	opt.MinIdleConns = opts.PoolSize / 5
	opt.DialTimeout = opts.DialTimeout
	opt.ReadTimeout = opts.OpTimeout
	opt.WriteTimeout = opts.OpTimeout
	opt.PoolTimeout = opts.OpTimeout + time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Ping reports whether Redis answers. Used by the readiness probe.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client exposes the raw client for test setup.
func (c *Cache) Client() *redis.Client {
	return c.client
}
