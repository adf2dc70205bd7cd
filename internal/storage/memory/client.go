package memory

import (
	"context"
	"sync"
	"time"
)

// Client is an in-process sliding-window login throttle.
type Client struct {
	mu          sync.Mutex
	attempts    map[string][]time.Time
	maxAttempts int
	window      time.Duration
	now         func() time.Time
}

func New(maxAttempts int, window time.Duration) *Client {
	return &Client{
		attempts:    make(map[string][]time.Time),
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
	}
}

func (c *Client) Close() error { return nil }

func (c *Client) Allow(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	cut := now.Add(-c.window)
	var kept []time.Time
	for _, t := range c.attempts[key] {
		if t.After(cut) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= c.maxAttempts {
		c.attempts[key] = kept
		return false, nil
	}
	c.attempts[key] = append(kept, now)
	return true, nil
}

func (c *Client) Reset(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.attempts, key)
	return nil
}
