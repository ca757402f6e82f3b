// Package redis wraps go-redis with the narrow surface engine/registry's
// optional change notifier and the flowd rate limiter actually need —
// trimmed from the teacher's 400-line CAS/stream/transaction client, whose
// AddToStream/ReadFromStreamGroup/Transaction/Pipeline machinery served the
// Redis-choreographed coordinator this design doesn't carry forward.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Logger is the minimal structured-logging surface this package depends on.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// Client wraps redis.Client with logging around the handful of operations
// the registry notifier and rate limiter use.
type Client struct {
	redis  *redis.Client
	logger Logger
}

// NewClient creates a new Redis client wrapper.
func NewClient(redisClient *redis.Client, logger Logger) *Client {
	return &Client{
		redis:  redisClient,
		logger: logger,
	}
}

// GetUnderlying returns the underlying redis.Client for operations this
// wrapper doesn't expose (e.g. running the rate-limit Lua script).
func (c *Client) GetUnderlying() *redis.Client {
	return c.redis
}

// Get retrieves a value by key.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", fmt.Errorf("key not found: %s", key)
	}
	if err != nil {
		c.logger.Error("redis GET failed", "key", key, "error", err)
		return "", fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return val, nil
}

// Set sets a key with optional expiration (0 = no expiration).
func (c *Client) Set(ctx context.Context, key, value string, expiry time.Duration) error {
	if err := c.redis.Set(ctx, key, value, expiry).Err(); err != nil {
		c.logger.Error("redis SET failed", "key", key, "error", err)
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Delete removes one or more keys.
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		c.logger.Error("redis DEL failed", "keys", keys, "error", err)
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}

// PublishEvent publishes a message to a channel — used by
// engine/registry's change notifier to tell other flowd instances a
// workflow definition changed.
func (c *Client) PublishEvent(ctx context.Context, channel string, message string) error {
	if err := c.redis.Publish(ctx, channel, message).Err(); err != nil {
		c.logger.Error("redis PUBLISH failed", "channel", channel, "error", err)
		return fmt.Errorf("failed to publish to channel %s: %w", channel, err)
	}
	return nil
}

// Subscribe subscribes to one or more channels and returns the underlying
// PubSub handle for the caller to range over Channel().
func (c *Client) Subscribe(ctx context.Context, channels ...string) *redis.PubSub {
	return c.redis.Subscribe(ctx, channels...)
}
