package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Class names a group of routes sharing one admission budget.
type Class string

const (
	ClassSignup        Class = "signup"
	ClassLogin         Class = "login"
	ClassRefresh       Class = "refresh"
	ClassEmailRequest  Class = "email_request"
	ClassPasswordReset Class = "password_reset"
	ClassConfirm       Class = "confirm"
	ClassContactsRead  Class = "contacts_read"
	ClassContactsWrite Class = "contacts_write"
)

// Policy is one row of the admission table.
type Policy struct {
	Limit  int
	Window time.Duration
}

// DefaultPolicies returns the per-class admission budgets.
func DefaultPolicies() map[Class]Policy {
	return map[Class]Policy{
		ClassSignup:        {Limit: 2, Window: time.Minute},
		ClassLogin:         {Limit: 10, Window: time.Minute},
		ClassRefresh:       {Limit: 10, Window: time.Minute},
		ClassEmailRequest:  {Limit: 2, Window: time.Minute},
		ClassPasswordReset: {Limit: 2, Window: time.Minute},
		ClassConfirm:       {Limit: 10, Window: time.Minute},
		ClassContactsRead:  {Limit: 10, Window: time.Minute},
		ClassContactsWrite: {Limit: 2, Window: time.Minute},
	}
}

// Limiter counts requests per (class, client) pair in fixed windows
// backed by Redis.
type Limiter struct {
	redis    redis.UniversalClient
	policies map[Class]Policy
}

// NewLimiter creates a [Limiter] applying the given policy table.
// A nil table selects [DefaultPolicies].
func NewLimiter(redisClient redis.UniversalClient, policies map[Class]Policy) *Limiter {
	if policies == nil {
		policies = DefaultPolicies()
	}
	return &Limiter{redis: redisClient, policies: policies}
}

// Allow admits or rejects one request from client against the class budget.
// The first request of a window creates the bucket with count 1; requests
// beyond the limit fail with [ErrRateLimited] and do not consume further
// quota: the rejecting INCR leaves the counter above the limit, where the
// exact value no longer matters, and never touches the window TTL, so
// rejected traffic cannot extend a window or delay its rollover.
func (l *Limiter) Allow(ctx context.Context, class Class, client string) error {
	p, ok := l.policies[class]
	if !ok {
		return nil
	}

	count, err := l.redis.Incr(ctx, bucketKey(class, client)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, bucketKey(class, client), p.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	if count > int64(p.Limit) {
		return ErrRateLimited
	}

	return nil
}

func bucketKey(class Class, client string) string {
	return "rl:" + string(class) + ":" + client
}
