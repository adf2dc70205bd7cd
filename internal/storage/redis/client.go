package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "login_attempts:"

// Client is a fixed-window login throttle: INCR on the first attempt starts
// the window with EXPIRE.
type Client struct {
	cli         *redis.Client
	maxAttempts int
	window      time.Duration
}

func New(ctx context.Context, url string, maxAttempts int, window time.Duration) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{cli: cli, maxAttempts: maxAttempts, window: window}, nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}

func (c *Client) Allow(ctx context.Context, key string) (bool, error) {
	k := keyPrefix + key
	n, err := c.cli.Incr(ctx, k).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		if err := c.cli.Expire(ctx, k, c.window).Err(); err != nil {
			return false, err
		}
	}
	return n <= int64(c.maxAttempts), nil
}

func (c *Client) Reset(ctx context.Context, key string) error {
	return c.cli.Del(ctx, keyPrefix+key).Err()
}
