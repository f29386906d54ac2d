package rate

import "errors"

var (
	// ErrRateLimited is returned when a request would exceed its class limit.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps counter-store failures so callers can
	// distinguish an outage from a rejection.
	ErrRedisUnavailable = errors.New("rate limit backend unavailable")
)
