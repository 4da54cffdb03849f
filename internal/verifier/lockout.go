package verifier

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lockout counts failed PIN attempts per staff member in redis and trips once
// the limit is reached within the window. Counters reset on success.
type Lockout struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

// NewLockout constructs a Lockout with the given attempt limit and window.
func NewLockout(client *redis.Client, limit int64, window time.Duration) *Lockout {
	if limit <= 0 {
		limit = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &Lockout{client: client, limit: limit, window: window}
}

func lockoutKey(staffID string) string {
	return fmt.Sprintf("verifier:unlock:fail:%s", staffID)
}

// TooMany reports whether the staff member has exhausted their attempts.
func (l *Lockout) TooMany(ctx context.Context, staffID string) (bool, error) {
	count, err := l.client.Get(ctx, lockoutKey(staffID)).Int64()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("verifier: lockout read: %w", err)
	}
	return count >= l.limit, nil
}

// RecordFailure increments the counter, starting the window on first failure.
func (l *Lockout) RecordFailure(ctx context.Context, staffID string) error {
	key := lockoutKey(staffID)
	pipe := l.client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("verifier: lockout write: %w", err)
	}
	return nil
}

// Reset clears the counter after a successful unlock.
func (l *Lockout) Reset(ctx context.Context, staffID string) error {
	if err := l.client.Del(ctx, lockoutKey(staffID)).Err(); err != nil {
		return fmt.Errorf("verifier: lockout reset: %w", err)
	}
	return nil
}

var _ AttemptLimiter = (*Lockout)(nil)
