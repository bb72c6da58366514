package authcore

import (
	"context"
	"errors"
)

// VerifyRegistration checks a registration code and activates the account.
// Verifying an account that is already ACTIVE succeeds without a write, so
// two concurrent successes are harmless. A failed verification never
// changes the account status.
func (e *Engine) VerifyRegistration(ctx context.Context, email, code string) (*Profile, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}

	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := validateCode(code); err != nil {
		return nil, err
	}

	if err := e.otp.Verify(ctx, PurposeRegister, normalized, code); err != nil {
		err = e.otpErr(err, "verify registration otp")
		e.metricInc(MetricOTPVerifyFailure)
		e.emitAudit(ctx, auditEventRegistrationVerifyFail, false, "", normalized, err, nil)
		return nil, err
	}
	e.metricInc(MetricOTPVerifySuccess)

	identity, err := e.users.GetByEmail(ctx, normalized)
	if err != nil {
		return nil, e.storeErr(err, "get user by email")
	}

	switch identity.Status {
	case StatusActive:
	case StatusPending:
		if err := e.users.UpdateStatus(ctx, identity.ID, StatusActive); err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return nil, err
			}
			return nil, e.storeErr(err, "activate user")
		}
		identity.Status = StatusActive
	default:
		return nil, ErrAccountNotActive
	}

	e.emitAudit(ctx, auditEventRegistrationVerified, true, identity.ID, identity.Email, nil, nil)
	return profileOf(identity), nil
}
