// Package ratelimit guards the auth surface (/register, /login)
// against brute-force attempts with a Redis-backed fixed window,
// exposed as a plain guard function callable from the line-protocol
// dispatcher, which has no HTTP request to attach middleware to.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ruggine/chatcore/internal/apperr"
)

const (
	window     = 120 * time.Second
	maxAttempt = 25
)

// Limiter counts attempts per remote address in a fixed Redis window
// using the INCR+EXPIRE pattern: the window starts at the first
// attempt and the counter resets when its key expires.
type Limiter struct {
	client *redis.Client
}

// New builds a Limiter backed by client.
func New(client *redis.Client) *Limiter {
	return &Limiter{client: client}
}

// Allow increments the attempt counter for (action, remoteAddr) and
// reports apperr.ErrRateLimited once maxAttempt is exceeded inside the
// window. A Redis outage fails open: the caller proceeds rather than
// locking every client out because the counter is unavailable.
func (l *Limiter) Allow(ctx context.Context, action, remoteAddr string) error {
	if l == nil || l.client == nil {
		return nil
	}

	key := fmt.Sprintf("ratelimit:%s:%s", action, remoteAddr)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return nil
	}
	if count == 1 {
		l.client.Expire(ctx, key, window)
	}
	if count > maxAttempt {
		return apperr.ErrRateLimited
	}
	return nil
}
