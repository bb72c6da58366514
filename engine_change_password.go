package authcore

import (
	"context"
	"errors"

	"github.com/MrEthical07/authcore/password"
)

// ChangePassword replaces the password of an authenticated ACTIVE account.
// The current password must match even though the caller already holds an
// access token. A wrong current password returns ErrInvalidCredentials and
// leaves the stored hash untouched.
func (e *Engine) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if e == nil || e.users == nil {
		return ErrEngineNotReady
	}
	if userID == "" {
		return &ValidationError{Field: "userId", Reason: "is required"}
	}
	if currentPassword == "" {
		return &ValidationError{Field: "currentPassword", Reason: "is required"}
	}
	if err := e.checkNewPassword(newPassword); err != nil {
		return err
	}

	identity, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return e.storeErr(err, "get user by id")
	}
	if identity.Status != StatusActive {
		return ErrAccountNotActive
	}

	ok, err := e.hasher.Verify(currentPassword, identity.PasswordHash)
	if err != nil && !errors.Is(err, password.ErrTooLong) {
		e.logger.Error().Err(err).Str("user_id", identity.ID).Msg("stored password hash is unreadable")
	}
	if !ok {
		e.metricInc(MetricPasswordChangeInvalidOld)
		e.emitAudit(ctx, auditEventPasswordChangeInvalidOld, false, identity.ID, identity.Email, ErrInvalidCredentials, nil)
		return ErrInvalidCredentials
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := e.users.UpdatePasswordHash(ctx, identity.ID, hash); err != nil {
		err = e.storeErr(err, "update password hash")
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, identity.ID, identity.Email, err, nil)
		return err
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChangeSuccess, true, identity.ID, identity.Email, nil, nil)
	return nil
}
