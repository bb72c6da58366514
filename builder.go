package authcore

import (
	"context"
	"errors"

	"github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/internal/stores"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/otp"
	"github.com/MrEthical07/authcore/password"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Builder assembles an Engine. A Builder can be used once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	users     UserStore
	sender    CodeSender
	auditSink AuditSink
	logger    zerolog.Logger

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
		logger: zerolog.Nop(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing OTP records, issuance counters and the
// refresh denylist. Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserStore sets identity persistence. Required.
func (b *Builder) WithUserStore(users UserStore) *Builder {
	b.users = users
	return b
}

// WithCodeSender sets passcode delivery. Without one, issued codes are
// announced in the log without their value.
func (b *Builder) WithCodeSender(sender CodeSender) *Builder {
	b.sender = sender
	return b
}

func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the audit destination. Audit.Enabled must also be set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.users == nil {
		return nil, errors.New("user store required")
	}

	logger := b.logger.With().Str("component", "authcore").Logger()

	engine := &Engine{
		config:  cfg,
		users:   b.users,
		sender:  b.sender,
		logger:  logger,
		metrics: NewMetrics(cfg.Metrics),
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		otp: otp.New(b.redis, cfg.otpConfig()),
	}
	engine.now = defaultNow
	if engine.sender == nil {
		engine.sender = logOnlySender{logger: logger}
	}
	if cfg.Security.RevokeRotatedRefresh {
		engine.denylist = stores.NewDenylistStore(b.redis, cfg.Security.DenylistPrefix)
	}

	ph, err := password.NewArgon2(cfg.passwordConfig())
	if err != nil {
		return nil, err
	}
	engine.hasher = ph

	// Login against an unknown email verifies this hash so both paths pay
	// one Argon2 evaluation.
	dummy, err := ph.Hash("authcore-timing-equalizer")
	if err != nil {
		return nil, err
	}
	engine.dummyHash = dummy

	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    signingKey(cfg.JWT),
		PublicKey:     []byte(cfg.JWT.PublicKeyPEM),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		KeyID:         cfg.JWT.KeyID,
	})
	if err != nil {
		return nil, err
	}
	engine.tokens = jm

	b.built = true

	logger.Info().
		Str("signing_method", cfg.JWT.SigningMethod).
		Dur("otp_ttl", cfg.OTP.TTL).
		Bool("refresh_revocation", engine.denylist != nil).
		Bool("production", cfg.Security.ProductionMode).
		Msg("engine built")

	return engine, nil
}

func signingKey(cfg JWTConfig) []byte {
	if cfg.SigningMethod == string(jwt.MethodEd25519) {
		return []byte(cfg.PrivateKeyPEM)
	}
	return []byte(cfg.Secret)
}

// logOnlySender is used when no CodeSender is configured.
type logOnlySender struct {
	logger zerolog.Logger
}

func (s logOnlySender) SendOTP(_ context.Context, msg OTPMessage) error {
	s.logger.Warn().
		Str("purpose", string(msg.Purpose)).
		Str("email", msg.Email).
		Msg("no code sender configured; code not delivered")
	return nil
}
