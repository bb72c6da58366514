package authcore

import (
	"context"
	"time"
)

// OTPStatus is a diagnostic view of a live passcode. It never carries the
// code itself.
type OTPStatus struct {
	Key         string    `json:"key"`
	Exists      bool      `json:"exists"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"maxAttempts"`
	Consumed    bool      `json:"consumed"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
	TTLSeconds  int64     `json:"ttlSeconds"`
}

// InspectOTP reports the state of the code for purpose and email. It returns
// ErrDebugDisabled unless OTP.DebugEnabled is set. TTLSeconds is -1 for a
// code without expiry.
func (e *Engine) InspectOTP(ctx context.Context, purpose OTPPurpose, email string) (*OTPStatus, error) {
	if e == nil || e.otp == nil {
		return nil, ErrEngineNotReady
	}
	if !e.config.OTP.DebugEnabled {
		return nil, ErrDebugDisabled
	}
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	snap, err := e.otp.Inspect(ctx, purpose, normalized)
	if err != nil {
		return nil, e.otpErr(err, "inspect otp")
	}

	status := &OTPStatus{
		Key:         snap.Key,
		Exists:      snap.Exists,
		Attempts:    snap.Attempts,
		MaxAttempts: snap.MaxAttempts,
		Consumed:    snap.Consumed,
	}
	if snap.Exists {
		status.CreatedAt = snap.CreatedAt.UTC()
		status.TTLSeconds = int64(snap.TTL / time.Second)
		if snap.TTL < 0 {
			status.TTLSeconds = -1
		}
	}
	return status, nil
}
