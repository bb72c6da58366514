package authcore

import "time"

// SecurityReport summarizes the security posture of a built Engine for
// startup logs and health endpoints. It carries no secrets.
type SecurityReport struct {
	ProductionMode      bool
	SigningAlgorithm    string
	AccessTTL           time.Duration
	RefreshTTL          time.Duration
	Argon2              PasswordConfigReport
	OTPTTL              time.Duration
	OTPMaxAttempts      int
	OTPExpires          bool
	OTPDebugEnabled     bool
	OTPIssueLimitActive bool
	RefreshRevocation   bool
	RateLimitingActive  bool
	AuditEnabled        bool
}

type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	return SecurityReport{
		ProductionMode:   e.config.Security.ProductionMode,
		SigningAlgorithm: e.config.JWT.SigningMethod,
		AccessTTL:        e.config.JWT.AccessTTL,
		RefreshTTL:       e.config.JWT.RefreshTTL,
		Argon2: PasswordConfigReport{
			Memory:      e.config.Password.Memory,
			Time:        e.config.Password.Time,
			Parallelism: e.config.Password.Parallelism,
			SaltLength:  e.config.Password.SaltLength,
			KeyLength:   e.config.Password.KeyLength,
		},
		OTPTTL:              e.otp.ExpiresIn(),
		OTPMaxAttempts:      e.config.OTP.MaxAttempts,
		OTPExpires:          !e.config.OTP.NoExpire,
		OTPDebugEnabled:     e.config.OTP.DebugEnabled,
		OTPIssueLimitActive: e.config.OTP.IssueLimit > 0,
		RefreshRevocation:   e.RevocationEnabled(),
		RateLimitingActive:  e.config.RateLimit.Enabled,
		AuditEnabled:        e.audit != nil,
	}
}
