package authcore

import (
	"context"
)

// RequestPasswordReset sends a reset code to an ACTIVE account.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) (*PendingResult, error) {
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
	if identity.Status != StatusActive {
		return nil, ErrAccountNotActive
	}

	e.metricInc(MetricPasswordResetRequest)
	e.emitAudit(ctx, auditEventPasswordResetRequest, true, identity.ID, identity.Email, nil, nil)
	return e.issueAndSend(ctx, PurposeReset, identity)
}

// ResetPassword replaces the password of an ACTIVE account after checking a
// reset code. The code is checked before the new password is hashed, and the
// hash is written once; on any failure the stored hash is unchanged.
func (e *Engine) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if e == nil || e.users == nil {
		return ErrEngineNotReady
	}

	normalized, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	if err := validateCode(code); err != nil {
		return err
	}
	if err := e.checkNewPassword(newPassword); err != nil {
		return err
	}

	identity, err := e.users.GetByEmail(ctx, normalized)
	if err != nil {
		return e.storeErr(err, "get user by email")
	}
	if identity.Status != StatusActive {
		return ErrAccountNotActive
	}

	if err := e.otp.Verify(ctx, PurposeReset, normalized, code); err != nil {
		err = e.otpErr(err, "verify reset otp")
		e.metricInc(MetricOTPVerifyFailure)
		e.resetFailed(ctx, identity, err)
		return err
	}
	e.metricInc(MetricOTPVerifySuccess)

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		e.resetFailed(ctx, identity, err)
		return err
	}

	if err := e.users.UpdatePasswordHash(ctx, identity.ID, hash); err != nil {
		err = e.storeErr(err, "update password hash")
		e.resetFailed(ctx, identity, err)
		return err
	}

	e.metricInc(MetricPasswordResetSuccess)
	e.emitAudit(ctx, auditEventPasswordResetConfirm, true, identity.ID, identity.Email, nil, nil)
	return nil
}

func (e *Engine) resetFailed(ctx context.Context, identity Identity, err error) {
	e.metricInc(MetricPasswordResetFailure)
	e.emitAudit(ctx, auditEventPasswordResetConfirm, false, identity.ID, identity.Email, err, nil)
}
