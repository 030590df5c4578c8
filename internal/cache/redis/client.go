// Package redis implements the price cache, per-position locks, and the
// feed rate limiter on go-redis/v9. Everything here is ephemeral
// coordination state; the durable record of truth stays in PostgreSQL.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Config holds connection parameters for the Redis client.
type Config struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int // 0 uses the driver default
	MaxRetries int
	TLSEnabled bool
}

// Client is the shared connection the cache, lock, and rate limiter
// constructors in this package build on.
type Client struct {
	rdb *redis.Client
}

// New connects to Redis and verifies the connection with a ping. The bot
// cannot run safely without Redis, so a failed ping aborts startup rather
// than degrading silently.
func New(ctx context.Context, cfg Config) (*Client, error) {
	opts := &redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		PoolSize:   cfg.PoolSize,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Addr, err)
	}
	return &Client{rdb: rdb}, nil
}

// Ping checks the connection.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}
