package authcore

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/authcore/otp"
	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/ratelimit"
	"github.com/caarlos0/env/v11"
)

// Config is the full Engine configuration. Start from [DefaultConfig] and
// override fields, or use [LoadConfigFromEnv].
type Config struct {
	OTP       OTPConfig       `envPrefix:"OTP_"`
	JWT       JWTConfig       `envPrefix:"JWT_"`
	Password  PasswordConfig  `envPrefix:"PASSWORD_"`
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
	Accounts  AccountsConfig  `envPrefix:"ACCOUNTS_"`
	Security  SecurityConfig  `envPrefix:"SECURITY_"`
	Audit     AuditConfig     `envPrefix:"AUDIT_"`
	Metrics   MetricsConfig   `envPrefix:"METRICS_"`
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig controls passcode lifetime, attempt budget and diagnostics.
// NoExpire and DebugEnabled are for local development and are refused in
// production mode. LogKeys logs the Redis key (never the code) on issuance.
type OTPConfig struct {
	TTL          time.Duration `env:"TTL"`
	MaxAttempts  int           `env:"MAX_ATTEMPTS"`
	KeyPrefix    string        `env:"KEY_PREFIX"`
	NoExpire     bool          `env:"NO_EXPIRE"`
	DebugEnabled bool          `env:"DEBUG_ENABLED"`
	LogKeys      bool          `env:"LOG_KEYS"`
	IssueLimit   int           `env:"ISSUE_LIMIT"`
	IssueWindow  time.Duration `env:"ISSUE_WINDOW"`
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig selects the signing method and token lifetimes. HS256 uses
// Secret; Ed25519 uses the PEM key pair.
type JWTConfig struct {
	SigningMethod string        `env:"SIGNING_METHOD"`
	Secret        string        `env:"SECRET"`
	PrivateKeyPEM string        `env:"PRIVATE_KEY_PEM"`
	PublicKeyPEM  string        `env:"PUBLIC_KEY_PEM"`
	KeyID         string        `env:"KEY_ID"`
	Issuer        string        `env:"ISSUER"`
	Audience      string        `env:"AUDIENCE"`
	AccessTTL     time.Duration `env:"ACCESS_TTL"`
	RefreshTTL    time.Duration `env:"REFRESH_TTL"`
	Leeway        time.Duration `env:"LEEWAY"`
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id parameters.
type PasswordConfig struct {
	Memory         uint32 `env:"MEMORY"` // in KB
	Time           uint32 `env:"TIME"`
	Parallelism    uint8  `env:"PARALLELISM"`
	SaltLength     uint32 `env:"SALT_LENGTH"`
	KeyLength      uint32 `env:"KEY_LENGTH"`
	UpgradeOnLogin bool   `env:"UPGRADE_ON_LOGIN"`
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig configures the per-caller token bucket placed in front of
// the HTTP surface. The Engine itself does not consult it.
type RateLimitConfig struct {
	Enabled      bool          `env:"ENABLED"`
	Capacity     int           `env:"CAPACITY"`
	RefillWindow time.Duration `env:"REFILL_WINDOW"`
	IdleEviction time.Duration `env:"IDLE_EVICTION"`
	MaxBuckets   int           `env:"MAX_BUCKETS"`
	Shards       int           `env:"SHARDS"`
	Prefixes     []string      `env:"PREFIXES" envSeparator:","`
	APIKeyHeader string        `env:"API_KEY_HEADER"`
}

// AccountsConfig holds defaults for new identities.
type AccountsConfig struct {
	DefaultRoles string `env:"DEFAULT_ROLES"`
}

// SecurityConfig holds production guards and the optional refresh denylist.
type SecurityConfig struct {
	ProductionMode       bool   `env:"PRODUCTION_MODE"`
	RevokeRotatedRefresh bool   `env:"REVOKE_ROTATED_REFRESH"`
	DenylistPrefix       string `env:"DENYLIST_PREFIX"`
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool `env:"ENABLED"`
	BufferSize int  `env:"BUFFER_SIZE"`
	DropIfFull bool `env:"DROP_IF_FULL"`
}

// MetricsConfig toggles in-process counters and the login latency histogram.
type MetricsConfig struct {
	Enabled                 bool `env:"ENABLED"`
	EnableLatencyHistograms bool `env:"ENABLE_LATENCY_HISTOGRAMS"`
}

/*
====================================
DEFAULTS
====================================
*/

// DefaultConfig returns the documented defaults: 600s codes with 5 attempts,
// 3600s access and 604800s refresh tokens, and 60 requests per 60 seconds.
// JWT.Secret is empty and must be supplied.
func DefaultConfig() Config {
	return Config{
		OTP: OTPConfig{
			TTL:         600 * time.Second,
			MaxAttempts: 5,
			KeyPrefix:   "otp",
			IssueWindow: 10 * time.Minute,
		},
		JWT: JWTConfig{
			SigningMethod: "hs256",
			Issuer:        "social-service",
			Audience:      "vn-law",
			AccessTTL:     3600 * time.Second,
			RefreshTTL:    604800 * time.Second,
		},
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,
		},
		RateLimit: RateLimitConfig{
			Enabled:      true,
			Capacity:     60,
			RefillWindow: 60 * time.Second,
			IdleEviction: 10 * time.Minute,
			MaxBuckets:   100_000,
			Shards:       16,
			Prefixes:     []string{"/api/qa", "/auth/"},
			APIKeyHeader: "X-API-KEY",
		},
		Accounts: AccountsConfig{
			DefaultRoles: "USER",
		},
		Security: SecurityConfig{
			DenylistPrefix: "ard",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// LoadConfigFromEnv overlays AUTHCORE_* environment variables on
// [DefaultConfig], e.g. AUTHCORE_OTP_TTL=300s or AUTHCORE_JWT_SECRET.
// The result is not validated.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "AUTHCORE_"}); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.RateLimit.Prefixes = append([]string(nil), cfg.RateLimit.Prefixes...)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// MinProductionSecretLength is the shortest HS256 secret accepted in
// production mode.
const MinProductionSecretLength = 32

// Validate checks the configuration for consistency and production safety.
func (c *Config) Validate() error {
	// OTP
	if c.OTP.TTL < otp.MinTTL {
		return errors.New("OTP TTL must be >= 1m")
	}
	if c.OTP.MaxAttempts < 1 {
		return errors.New("OTP MaxAttempts must be >= 1")
	}
	if strings.TrimSpace(c.OTP.KeyPrefix) == "" || strings.Contains(c.OTP.KeyPrefix, ":") {
		return errors.New("OTP KeyPrefix must be non-empty and must not contain ':'")
	}
	if c.OTP.IssueLimit < 0 {
		return errors.New("OTP IssueLimit must be >= 0")
	}
	if c.OTP.IssueLimit > 0 && c.OTP.IssueWindow <= 0 {
		return errors.New("OTP IssueWindow must be > 0 when IssueLimit is set")
	}

	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be >= AccessTTL")
	}
	if strings.TrimSpace(c.JWT.Issuer) == "" || strings.TrimSpace(c.JWT.Audience) == "" {
		return errors.New("JWT Issuer and Audience are required")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be within [0, 2m]")
	}
	switch c.JWT.SigningMethod {
	case "hs256":
		if len(c.JWT.Secret) == 0 {
			return errors.New("hs256 requires Secret")
		}
	case "ed25519":
		if c.JWT.PrivateKeyPEM == "" || c.JWT.PublicKeyPEM == "" {
			return errors.New("ed25519 requires PrivateKeyPEM and PublicKeyPEM")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	// Rate limit
	if c.RateLimit.Enabled {
		if c.RateLimit.Capacity < 1 {
			return errors.New("RateLimit Capacity must be >= 1")
		}
		if c.RateLimit.RefillWindow < time.Second {
			return errors.New("RateLimit RefillWindow must be >= 1s")
		}
		if c.RateLimit.IdleEviction < c.RateLimit.RefillWindow {
			return errors.New("RateLimit IdleEviction must be >= RefillWindow")
		}
		if c.RateLimit.Shards < 1 || c.RateLimit.MaxBuckets < c.RateLimit.Shards {
			return errors.New("RateLimit MaxBuckets must be >= Shards >= 1")
		}
	}

	// Accounts
	if len(splitRoles(c.Accounts.DefaultRoles)) == 0 {
		return errors.New("Accounts DefaultRoles must name at least one role")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	// Security
	if c.Security.RevokeRotatedRefresh && strings.TrimSpace(c.Security.DenylistPrefix) == "" {
		return errors.New("Security DenylistPrefix is required when RevokeRotatedRefresh is enabled")
	}
	if c.Security.ProductionMode {
		if c.OTP.NoExpire {
			return errors.New("OTP NoExpire is not allowed in production mode")
		}
		if c.OTP.DebugEnabled {
			return errors.New("OTP DebugEnabled is not allowed in production mode")
		}
		if c.JWT.SigningMethod == "hs256" && len(c.JWT.Secret) < MinProductionSecretLength {
			return fmt.Errorf("hs256 Secret must be >= %d bytes in production mode", MinProductionSecretLength)
		}
	}

	return nil
}

func (c *Config) passwordConfig() password.Config {
	return password.Config{
		Memory:      c.Password.Memory,
		Time:        c.Password.Time,
		Parallelism: c.Password.Parallelism,
		SaltLength:  c.Password.SaltLength,
		KeyLength:   c.Password.KeyLength,
	}
}

func (c *Config) otpConfig() otp.Config {
	return otp.Config{
		TTL:         c.OTP.TTL,
		MaxAttempts: c.OTP.MaxAttempts,
		KeyPrefix:   c.OTP.KeyPrefix,
		NoExpire:    c.OTP.NoExpire,
		IssueLimit:  c.OTP.IssueLimit,
		IssueWindow: c.OTP.IssueWindow,
	}
}

// Limiter returns the bucket parameters for ratelimit.New.
func (c RateLimitConfig) Limiter() ratelimit.Config {
	return ratelimit.Config{
		Capacity:     c.Capacity,
		RefillWindow: c.RefillWindow,
		IdleEviction: c.IdleEviction,
		MaxBuckets:   c.MaxBuckets,
		Shards:       c.Shards,
	}
}
