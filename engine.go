package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/internal/stores"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/otp"
	"github.com/MrEthical07/authcore/password"
	"github.com/rs/zerolog"
)

var defaultNow = time.Now

// Engine orchestrates registration, login, token refresh and password
// flows over a UserStore, the OTP engine and the token manager. It is safe
// for concurrent use once built.
type Engine struct {
	config    Config
	users     UserStore
	sender    CodeSender
	otp       *otp.Engine
	tokens    *jwt.Manager
	denylist  *stores.DenylistStore
	hasher    passwordHasher
	dummyHash string
	audit     *audit.Dispatcher
	metrics   *Metrics
	logger    zerolog.Logger
	now       func() time.Time
}

// passwordHasher is the slice of *password.Argon2 the flows use.
type passwordHasher interface {
	CheckLength(pw string) error
	Hash(pw string) (string, error)
	Verify(pw, encodedHash string) (bool, error)
	NeedsUpgrade(encodedHash string) (bool, error)
}

// Close flushes pending audit events and stops the dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events were dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// RevocationEnabled reports whether rotated refresh tokens are denylisted.
func (e *Engine) RevocationEnabled() bool {
	return e != nil && e.denylist != nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// setClock moves every time source of the engine. Tests only.
func (e *Engine) setClock(now func() time.Time) {
	e.now = now
	e.tokens.WithClock(now)
	e.otp.WithClock(now)
}

/*
====================================
LOGIN
====================================
*/

// Login checks email and password and mints a token pair.
//
// An unknown email and a wrong password both return ErrInvalidCredentials,
// and both pay one Argon2 evaluation. A known account that is not ACTIVE
// returns ErrAccountNotActive.
func (e *Engine) Login(ctx context.Context, email, pw string) (*LoginResult, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	defer func() { e.metrics.Observe(MetricLoginLatency, time.Since(start)) }()

	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if pw == "" {
		return nil, &ValidationError{Field: "password", Reason: "is required"}
	}

	identity, err := e.users.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			_, _ = e.hasher.Verify(pw, e.dummyHash)
			e.loginFailed(ctx, "", normalized, ErrInvalidCredentials)
			return nil, ErrInvalidCredentials
		}
		return nil, e.storeErr(err, "get user by email")
	}

	if identity.Status != StatusActive {
		e.loginFailed(ctx, identity.ID, normalized, ErrAccountNotActive)
		return nil, ErrAccountNotActive
	}

	ok, err := e.hasher.Verify(pw, identity.PasswordHash)
	if err != nil && !errors.Is(err, password.ErrTooLong) {
		e.logger.Error().Err(err).Str("user_id", identity.ID).Msg("stored password hash is unreadable")
	}
	if !ok {
		e.loginFailed(ctx, identity.ID, normalized, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	e.maybeUpgradeHash(ctx, identity, pw)

	access, refresh, err := e.mintPair(identity)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, identity.ID, identity.Email, nil, nil)

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		ID:           identity.ID,
		Email:        identity.Email,
		DisplayName:  identity.DisplayName,
	}, nil
}

func (e *Engine) loginFailed(ctx context.Context, userID, email string, err error) {
	e.metricInc(MetricLoginFailure)
	e.logger.Debug().Str("email", email).Str("reason", Describe(err).Symbol).Msg("login rejected")
	e.emitAudit(ctx, auditEventLoginFailure, false, userID, email, err, nil)
}

// maybeUpgradeHash rehashes with the current parameters after a successful
// login. Failure is logged; the login still succeeds.
func (e *Engine) maybeUpgradeHash(ctx context.Context, identity Identity, pw string) {
	if !e.config.Password.UpgradeOnLogin {
		return
	}
	upgrade, err := e.hasher.NeedsUpgrade(identity.PasswordHash)
	if err != nil || !upgrade {
		return
	}
	hash, err := e.hasher.Hash(pw)
	if err != nil {
		return
	}
	if err := e.users.UpdatePasswordHash(ctx, identity.ID, hash); err != nil {
		e.logger.Warn().Err(err).Str("user_id", identity.ID).Msg("password hash upgrade failed")
	}
}

/*
====================================
TOKENS
====================================
*/

// Refresh exchanges a refresh token for a new pair. Roles are re-read from
// the store so that role changes take effect at the next refresh.
//
// When refresh revocation is enabled the presented token is denylisted
// atomically; a second presentation of the same token fails with
// ErrTokenInvalid.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.ParseRefresh(refreshToken)
	if err != nil {
		e.refreshFailed(ctx, "", ErrTokenInvalid)
		return nil, ErrTokenInvalid
	}

	if e.denylist != nil {
		if claims.ID == "" {
			e.refreshFailed(ctx, claims.Subject, ErrTokenInvalid)
			return nil, ErrTokenInvalid
		}
		// Denylisted tokens are refused before the user store is consulted.
		revoked, err := e.denylist.Contains(ctx, claims.ID)
		if err != nil {
			return nil, e.storeErr(err, "check refresh denylist")
		}
		if revoked {
			e.refreshReused(ctx, claims.Subject, "")
			return nil, ErrTokenInvalid
		}
	}

	identity, err := e.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.refreshFailed(ctx, claims.Subject, ErrTokenInvalid)
			return nil, ErrTokenInvalid
		}
		return nil, e.storeErr(err, "get user by id")
	}
	if identity.Status != StatusActive {
		e.refreshFailed(ctx, identity.ID, ErrAccountNotActive)
		return nil, ErrAccountNotActive
	}

	if e.denylist != nil {
		won, err := e.denylist.Revoke(ctx, claims.ID, e.remaining(claims.ExpiresAt.Time))
		if err != nil {
			return nil, e.storeErr(err, "denylist rotated refresh token")
		}
		if !won {
			e.refreshReused(ctx, identity.ID, identity.Email)
			return nil, ErrTokenInvalid
		}
	}

	access, refresh, err := e.mintPair(identity)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, identity.ID, identity.Email, nil, nil)
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (e *Engine) refreshReused(ctx context.Context, userID, email string) {
	e.metricInc(MetricRefreshReuseDetected)
	e.logger.Warn().Str("user_id", userID).Msg("refresh token reuse detected")
	e.emitAudit(ctx, auditEventRefreshReuseDetected, false, userID, email, ErrTokenInvalid, nil)
}

func (e *Engine) refreshFailed(ctx context.Context, userID string, err error) {
	e.metricInc(MetricRefreshFailure)
	e.emitAudit(ctx, auditEventRefreshInvalid, false, userID, "", err, nil)
}

// ValidateAccess verifies an access token without touching any store.
func (e *Engine) ValidateAccess(_ context.Context, accessToken string) (*Claims, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	claims, err := e.tokens.ParseAccess(accessToken)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	out := &Claims{
		Subject:     claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.DisplayName,
		Roles:       splitRoles(claims.Roles),
		TokenID:     claims.ID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// RevokeRefreshToken denylists a refresh token until its expiry. Revoking a
// token twice is not an error. It returns ErrRevocationDisabled unless
// Security.RevokeRotatedRefresh is set.
func (e *Engine) RevokeRefreshToken(ctx context.Context, refreshToken string) error {
	if e == nil || e.tokens == nil {
		return ErrEngineNotReady
	}
	if e.denylist == nil {
		return ErrRevocationDisabled
	}

	claims, err := e.tokens.ParseRefresh(refreshToken)
	if err != nil || claims.ID == "" {
		return ErrTokenInvalid
	}
	if _, err := e.denylist.Revoke(ctx, claims.ID, e.remaining(claims.ExpiresAt.Time)); err != nil {
		return e.storeErr(err, "denylist refresh token")
	}

	e.emitAudit(ctx, auditEventRefreshRevoked, true, claims.Subject, "", nil, nil)
	return nil
}

func (e *Engine) mintPair(identity Identity) (string, string, error) {
	access, err := e.tokens.CreateAccess(identity.ID, identity.Email, identity.DisplayName, identity.Roles)
	if err != nil {
		return "", "", fmt.Errorf("create access token: %w", err)
	}
	refresh, err := e.tokens.CreateRefresh(identity.ID, identity.Roles)
	if err != nil {
		return "", "", fmt.Errorf("create refresh token: %w", err)
	}
	return access, refresh, nil
}

func (e *Engine) remaining(expiresAt time.Time) time.Duration {
	return expiresAt.Sub(e.now())
}

/*
====================================
ERROR CLASSIFICATION
====================================
*/

// storeErr passes domain errors from the user store through and wraps
// everything else as ErrStoreUnavailable.
func (e *Engine) storeErr(err error, op string) error {
	switch {
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrEmailTaken):
		return err
	case errors.Is(err, ErrStoreUnavailable):
	default:
		err = fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	e.metricInc(MetricStoreUnavailable)
	e.logger.Error().Err(err).Str("op", op).Msg("store operation failed")
	return err
}

// otpErr maps OTP engine errors into the authcore error space.
func (e *Engine) otpErr(err error, op string) error {
	switch {
	case errors.Is(err, otp.ErrStoreUnavailable):
		return e.storeErr(fmt.Errorf("%w: %v", ErrStoreUnavailable, err), op)
	case errors.Is(err, otp.ErrUnknownPurpose):
		return &ValidationError{Field: "purpose", Reason: "is unknown"}
	case errors.Is(err, otp.ErrTooManyAttempts):
		e.metricInc(MetricOTPAttemptsExceeded)
	}
	return err
}
