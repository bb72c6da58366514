// Package otp issues and verifies six-digit one-time passcodes stored as
// Redis hashes, one live record per purpose and email.
//
// Verification runs as a single Redis script, so concurrent guesses are
// serialized: at most MaxAttempts wrong codes are ever compared per
// issuance, and a correct code is accepted by exactly one caller.
package otp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/authcore/internal"
	"github.com/MrEthical07/authcore/internal/rate"
	"github.com/MrEthical07/authcore/internal/stores"
	"github.com/redis/go-redis/v9"
)

// Purpose scopes a code to one flow.
type Purpose string

const (
	PurposeRegister Purpose = "register"
	PurposeReset    Purpose = "reset"
)

// Valid reports whether p is a known purpose.
func (p Purpose) Valid() bool {
	return p == PurposeRegister || p == PurposeReset
}

var (
	ErrNotFound         = errors.New("otp not found")
	ErrConsumed         = errors.New("otp already consumed")
	ErrTooManyAttempts  = errors.New("otp too many attempts")
	ErrInvalid          = errors.New("otp invalid")
	ErrRateLimited      = errors.New("otp issuance rate limited")
	ErrStoreUnavailable = errors.New("otp store unavailable")
	ErrUnknownPurpose   = errors.New("otp unknown purpose")
)

// MinTTL is the shortest lifetime a code may be issued with.
const MinTTL = time.Minute

// Config controls code lifetime and attempt budget.
type Config struct {
	TTL         time.Duration
	MaxAttempts int
	KeyPrefix   string
	NoExpire    bool
	IssueLimit  int
	IssueWindow time.Duration
}

// Engine issues and verifies codes.
type Engine struct {
	store    *stores.OTPStore
	issues   *rate.Limiter
	cfg      Config
	now      func() time.Time
	generate func() (string, error)
}

// Snapshot is a diagnostic view of a live record. It never carries the code.
type Snapshot struct {
	Key         string
	Exists      bool
	Attempts    int
	MaxAttempts int
	Consumed    bool
	CreatedAt   time.Time
	TTL         time.Duration
}

// New creates an Engine over redisClient. Zero config fields take defaults
// (10 minute TTL, 5 attempts, prefix "otp").
func New(redisClient redis.UniversalClient, cfg Config) *Engine {
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "otp"
	}
	return &Engine{
		store:    stores.NewOTPStore(redisClient, cfg.KeyPrefix),
		issues:   rate.New(redisClient, rate.Config{MaxIssues: cfg.IssueLimit, IssueWindow: cfg.IssueWindow}),
		cfg:      cfg,
		now:      time.Now,
		generate: internal.NewOTPCode,
	}
}

// WithClock replaces the clock used for createdAt stamps.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	if now != nil {
		e.now = now
	}
	return e
}

// ExpiresIn returns the lifetime applied to newly issued codes, or zero when
// codes never expire.
func (e *Engine) ExpiresIn() time.Duration {
	if e.cfg.NoExpire {
		return 0
	}
	if e.cfg.TTL < MinTTL {
		return MinTTL
	}
	return e.cfg.TTL
}

// Key returns the store key for purpose and email.
func (e *Engine) Key(purpose Purpose, email string) string {
	return e.store.Key(string(purpose), normalizeEmail(email))
}

// Issue generates a fresh code and overwrites any previous record for the
// same purpose and email, resetting the attempt counter. Issuance is only
// throttled when Config.IssueLimit is positive.
func (e *Engine) Issue(ctx context.Context, purpose Purpose, email string) (string, error) {
	if !purpose.Valid() {
		return "", ErrUnknownPurpose
	}
	email = normalizeEmail(email)

	if err := e.issues.CheckIssue(ctx, string(purpose), email); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			return "", ErrRateLimited
		}
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	code, err := e.generate()
	if err != nil {
		_ = e.issues.ReleaseIssue(ctx, string(purpose), email)
		return "", err
	}

	record := &stores.OTPRecord{
		Code:        code,
		MaxAttempts: e.cfg.MaxAttempts,
		CreatedAt:   e.now().Unix(),
	}
	if err := e.store.Save(ctx, string(purpose), email, record, e.ExpiresIn()); err != nil {
		// A code that was never stored must not spend the window budget.
		_ = e.issues.ReleaseIssue(ctx, string(purpose), email)
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return code, nil
}

// Verify checks code against the live record.
//
// The checks run in order: missing record, consumed flag, exhausted attempt
// budget, then code comparison. A wrong code increments the attempt counter
// and a correct code deletes the record, both inside the same script as the
// checks.
func (e *Engine) Verify(ctx context.Context, purpose Purpose, email, code string) error {
	if !purpose.Valid() {
		return ErrUnknownPurpose
	}
	email = normalizeEmail(email)

	res, err := e.store.Verify(ctx, string(purpose), email, code, e.cfg.MaxAttempts)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	switch res {
	case stores.VerifyOK:
	case stores.VerifyMismatch:
		return ErrInvalid
	case stores.VerifyExhausted:
		return ErrTooManyAttempts
	case stores.VerifyConsumed:
		return ErrConsumed
	default:
		return ErrNotFound
	}

	// Best effort: the window expires on its own.
	_ = e.issues.ResetIssue(ctx, string(purpose), email)
	return nil
}

// Inspect returns a snapshot of the record for purpose and email.
func (e *Engine) Inspect(ctx context.Context, purpose Purpose, email string) (*Snapshot, error) {
	if !purpose.Valid() {
		return nil, ErrUnknownPurpose
	}
	email = normalizeEmail(email)
	snap := &Snapshot{Key: e.store.Key(string(purpose), email)}

	record, err := e.store.Load(ctx, string(purpose), email)
	if err != nil {
		if errors.Is(err, stores.ErrOTPNotFound) {
			return snap, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	ttl, err := e.store.TTL(ctx, string(purpose), email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	snap.Exists = true
	snap.Attempts = record.Attempts
	snap.MaxAttempts = record.MaxAttempts
	snap.Consumed = record.Consumed
	snap.CreatedAt = time.Unix(record.CreatedAt, 0)
	snap.TTL = ttl
	return snap, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
