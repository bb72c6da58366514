package authcore

import (
	"context"

	"github.com/MrEthical07/authcore/internal/audit"
)

const (
	auditEventRegisterSuccess          = "register_success"
	auditEventRegisterFailure          = "register_failure"
	auditEventRegisterDuplicate        = "register_duplicate"
	auditEventOTPIssued                = "otp_issued"
	auditEventRegistrationVerified     = "registration_verified"
	auditEventRegistrationVerifyFail   = "registration_verify_failure"
	auditEventLoginSuccess             = "login_success"
	auditEventLoginFailure             = "login_failure"
	auditEventRefreshSuccess           = "refresh_success"
	auditEventRefreshInvalid           = "refresh_invalid"
	auditEventRefreshReuseDetected     = "refresh_reuse_detected"
	auditEventRefreshRevoked           = "refresh_revoked"
	auditEventPasswordResetRequest     = "password_reset_request"
	auditEventPasswordResetConfirm     = "password_reset_confirm"
	auditEventPasswordChangeSuccess    = "password_change_success"
	auditEventPasswordChangeInvalidOld = "password_change_invalid_old"
	auditEventPasswordChangeFailure    = "password_change_failure"
	auditEventAccountStatusChange      = "account_status_change"
	auditEventRolesChange              = "roles_change"
	auditEventRateLimitTriggered       = "rate_limit_triggered"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	email string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := audit.Event{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Email:     email,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if err != nil {
		event.Error = Describe(err).Symbol
	}

	e.audit.Emit(ctx, event)
}

// ObserveRateLimited records an admission-control denial for key. It is
// meant for ratelimit.MiddlewareConfig.OnDeny.
func (e *Engine) ObserveRateLimited(ctx context.Context, key string) {
	if e == nil {
		return
	}
	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, "", "", ErrRateLimited, func() map[string]string {
		return map[string]string{"caller": key}
	})
}
