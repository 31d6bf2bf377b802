package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Logger interface for logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// Client wraps redis.Client with common operations and instrumentation
type Client struct {
	redis  *redis.Client
	logger Logger
}

// NewClient creates a new Redis client wrapper
func NewClient(redisClient *redis.Client, logger Logger) *Client {
	return &Client{
		redis:  redisClient,
		logger: logger,
	}
}

// GetUnderlying returns the underlying redis.Client for advanced operations
func (c *Client) GetUnderlying() *redis.Client {
	return c.redis
}

// SetWithExpiry sets a key with expiration
func (c *Client) SetWithExpiry(ctx context.Context, key, value string, expiry time.Duration) error {
	err := c.redis.Set(ctx, key, value, expiry).Err()
	if err != nil {
		c.logger.Error("redis SET failed", "key", key, "error", err)
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	c.logger.Debug("redis SET", "key", key, "expiry", expiry)
	return nil
}

// Get retrieves a value by key
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		c.logger.Debug("redis GET key not found", "key", key)
		return "", fmt.Errorf("key not found: %s", key)
	}
	if err != nil {
		c.logger.Error("redis GET failed", "key", key, "error", err)
		return "", fmt.Errorf("failed to get key %s: %w", key, err)
	}
	c.logger.Debug("redis GET", "key", key)
	return val, nil
}

// Delete removes a key
func (c *Client) Delete(ctx context.Context, key string) error {
	if err := c.redis.Del(ctx, key).Err(); err != nil {
		c.logger.Error("redis DEL failed", "key", key, "error", err)
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// Publish sends a message on a channel (used for snapshot invalidation
// fan-out across instances)
func (c *Client) Publish(ctx context.Context, channel, payload string) error {
	if err := c.redis.Publish(ctx, channel, payload).Err(); err != nil {
		c.logger.Error("redis PUBLISH failed", "channel", channel, "error", err)
		return fmt.Errorf("failed to publish on %s: %w", channel, err)
	}
	c.logger.Debug("redis PUBLISH", "channel", channel, "size", len(payload))
	return nil
}

// Subscribe listens on a channel and invokes handler for every message until
// the context is cancelled
func (c *Client) Subscribe(ctx context.Context, channel string, handler func(payload string)) error {
	pubsub := c.redis.Subscribe(ctx, channel)
	defer pubsub.Close()

	// Wait for confirmation that subscription was successful
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	c.logger.Info("redis subscription confirmed", "channel", channel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("redis subscriber stopping", "channel", channel)
			return nil

		case msg := <-ch:
			if msg == nil {
				continue
			}
			c.logger.Debug("redis message received", "channel", msg.Channel, "size", len(msg.Payload))
			handler(msg.Payload)
		}
	}
}

// Health checks the Redis connection
func (c *Client) Health(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}
