package rate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds issuance throttle parameters. A non-positive MaxIssues
// disables the throttle.
type Config struct {
	MaxIssues   int
	IssueWindow time.Duration
}

// Limiter counts OTP issuances per purpose and email in Redis.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// Enabled reports whether issuance throttling is active.
func (l *Limiter) Enabled() bool {
	return l != nil && l.config.MaxIssues > 0 && l.config.IssueWindow > 0
}

// CheckIssue records one issuance for purpose and email and returns
// ErrRateLimited once the window budget is exceeded.
func (l *Limiter) CheckIssue(ctx context.Context, purpose, email string) error {
	if !l.Enabled() {
		return nil
	}

	count, err := l.incrementWithTTL(ctx, issueKey(purpose, email), l.config.IssueWindow)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxIssues) {
		return ErrRateLimited
	}
	return nil
}

// IssueCount returns the current issuance counter. Missing keys return zero.
func (l *Limiter) IssueCount(ctx context.Context, purpose, email string) (int, error) {
	count, err := l.redis.Get(ctx, issueKey(purpose, email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

// releaseIssueLua undoes one CheckIssue without creating or re-expiring the key.
var releaseIssueLua = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
local n = redis.call('DECR', KEYS[1])
if n <= 0 then
  redis.call('DEL', KEYS[1])
  return 0
end
return n
`)

// ReleaseIssue returns one issuance to the window budget. Callers use it
// when the issuance recorded by CheckIssue did not happen.
func (l *Limiter) ReleaseIssue(ctx context.Context, purpose, email string) error {
	if !l.Enabled() {
		return nil
	}
	if err := releaseIssueLua.Run(ctx, l.redis, []string{issueKey(purpose, email)}).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// ResetIssue clears the issuance counter, e.g. after a successful verification.
func (l *Limiter) ResetIssue(ctx context.Context, purpose, email string) error {
	if !l.Enabled() {
		return nil
	}
	if err := l.redis.Del(ctx, issueKey(purpose, email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

func issueKey(purpose, email string) string {
	return "oti:" + purpose + ":" + strings.ToLower(email)
}
