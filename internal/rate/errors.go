package rate

import "errors"

var (
	// ErrRateLimited is returned when a counter exceeds its window budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps counter store failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
