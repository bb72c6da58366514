package authcore

import (
	"context"
	"errors"
	"time"
)

// Register creates a PENDING identity and sends a registration code.
//
// An ACTIVE or DISABLED account with the same email yields ErrEmailTaken.
// A PENDING one yields ErrRegistrationPending; the caller should use
// ResendRegistrationOTP instead.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*PendingResult, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}

	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	displayName, err := validateDisplayName(req.DisplayName)
	if err != nil {
		return nil, err
	}
	if err := e.checkNewPassword(req.Password); err != nil {
		return nil, err
	}

	existing, err := e.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, e.registerConflict(ctx, existing)
	case !errors.Is(err, ErrUserNotFound):
		return nil, e.storeErr(err, "get user by email")
	}

	hash, err := e.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	identity, err := e.users.Create(ctx, CreateIdentityInput{
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
		Status:       StatusPending,
		Roles:        e.config.Accounts.DefaultRoles,
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", email, err, nil)
			return nil, ErrEmailTaken
		}
		err = e.storeErr(err, "create user")
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", email, err, nil)
		return nil, err
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, identity.ID, email, nil, nil)

	return e.issueAndSend(ctx, PurposeRegister, identity)
}

func (e *Engine) registerConflict(ctx context.Context, existing Identity) error {
	err := ErrEmailTaken
	if existing.Status == StatusPending {
		err = ErrRegistrationPending
	}
	e.metricInc(MetricRegisterDuplicate)
	e.emitAudit(ctx, auditEventRegisterDuplicate, false, existing.ID, existing.Email, err, nil)
	return err
}

// ResendRegistrationOTP issues a fresh registration code for a PENDING
// account, invalidating the previous one.
func (e *Engine) ResendRegistrationOTP(ctx context.Context, email string) (*PendingResult, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}

	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	identity, err := e.users.GetByEmail(ctx, normalized)
	if err != nil {
		return nil, e.storeErr(err, "get user by email")
	}

	switch identity.Status {
	case StatusActive:
		return nil, ErrAccountAlreadyActive
	case StatusPending:
		return e.issueAndSend(ctx, PurposeRegister, identity)
	default:
		return nil, ErrAccountNotActive
	}
}

// issueAndSend issues a code and hands it to the sender. Delivery failure is
// logged and does not fail the request.
func (e *Engine) issueAndSend(ctx context.Context, purpose OTPPurpose, identity Identity) (*PendingResult, error) {
	code, err := e.otp.Issue(ctx, purpose, identity.Email)
	if err != nil {
		if errors.Is(err, ErrOTPRateLimited) {
			e.metricInc(MetricOTPIssueRateLimited)
			e.emitAudit(ctx, auditEventRateLimitTriggered, false, identity.ID, identity.Email, err, func() map[string]string {
				return map[string]string{"scope": "otp_issue", "purpose": string(purpose)}
			})
		}
		return nil, e.otpErr(err, "issue otp")
	}

	e.metricInc(MetricOTPIssued)
	if e.config.OTP.LogKeys {
		e.logger.Info().Str("key", e.otp.Key(purpose, identity.Email)).Msg("otp issued")
	}
	e.emitAudit(ctx, auditEventOTPIssued, true, identity.ID, identity.Email, nil, func() map[string]string {
		return map[string]string{"purpose": string(purpose)}
	})

	ttl := e.otp.ExpiresIn()
	if err := e.sender.SendOTP(ctx, OTPMessage{
		Purpose:     purpose,
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
		Code:        code,
		TTL:         ttl,
	}); err != nil {
		e.logger.Error().Err(err).
			Str("purpose", string(purpose)).
			Str("email", identity.Email).
			Msg("otp delivery failed")
	}

	return &PendingResult{
		Pending:          true,
		Email:            identity.Email,
		ExpiresInSeconds: int64(ttl / time.Second),
	}, nil
}
