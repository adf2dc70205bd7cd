package storage

import "context"

// LoginThrottle counts login attempts per key (normalized email) inside a window.
// Implementations: redis.Client, memory.Client (no Redis configured).
type LoginThrottle interface {
	// Allow records one attempt and reports whether it is within the budget.
	Allow(ctx context.Context, key string) (bool, error)
	// Reset forgets the attempts for key, called after a successful login.
	Reset(ctx context.Context, key string) error
	Close() error
}
