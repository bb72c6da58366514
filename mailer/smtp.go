package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/authcore"
	"github.com/caarlos0/env/v11"
	"gopkg.in/gomail.v2"
)

// SMTPConfig holds the relay settings. Loaded from AUTHCORE_SMTP_*.
type SMTPConfig struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM"`
	AppName  string `env:"APP_NAME" envDefault:"authcore"`
}

// LoadSMTPConfigFromEnv parses AUTHCORE_SMTP_* variables.
func LoadSMTPConfigFromEnv() (SMTPConfig, error) {
	var cfg SMTPConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "AUTHCORE_SMTP_"}); err != nil {
		return SMTPConfig{}, fmt.Errorf("parse smtp config: %w", err)
	}
	return cfg, nil
}

// Enabled reports whether a relay host is configured.
func (c SMTPConfig) Enabled() bool {
	return strings.TrimSpace(c.Host) != ""
}

func (c SMTPConfig) validate() error {
	if c.Host == "" {
		return errors.New("missing SMTP host")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.New("invalid SMTP port")
	}
	if c.From == "" {
		return errors.New("missing SMTP from address")
	}
	return nil
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender delivers codes by email. Each call opens its own connection.
type SMTPSender struct {
	config SMTPConfig
	dialer dialer
}

// NewSMTPSender validates cfg and returns a sender using gomail's dialer.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.AppName == "" {
		cfg.AppName = "authcore"
	}
	return &SMTPSender{
		config: cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}, nil
}

// SendOTP composes and sends the message for msg.Purpose.
func (s *SMTPSender) SendOTP(ctx context.Context, msg authcore.OTPMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.Email == "" {
		return errors.New("no recipient specified")
	}

	m := s.compose(msg)
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send %s code: %w", msg.Purpose, err)
	}
	return nil
}

func (s *SMTPSender) compose(msg authcore.OTPMessage) *gomail.Message {
	subject, intro := content(s.config.AppName, msg.Purpose)
	minutes := int(msg.TTL.Minutes())

	text := fmt.Sprintf("%s\n\nYour code: %s\n", intro, msg.Code)
	html := fmt.Sprintf("<p>%s</p><p>Your code: <strong>%s</strong></p>", intro, msg.Code)
	if minutes > 0 {
		text += fmt.Sprintf("It expires in %d minutes.\n", minutes)
		html += fmt.Sprintf("<p>It expires in %d minutes.</p>", minutes)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.From)
	m.SetHeader("To", msg.Email)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", html)
	m.AddAlternative("text/plain", text)
	return m
}

func content(app string, purpose authcore.OTPPurpose) (subject, intro string) {
	switch purpose {
	case authcore.PurposeReset:
		return app + " password reset code", "Use this code to reset your password."
	default:
		return app + " verification code", "Use this code to verify your email address."
	}
}

var _ authcore.CodeSender = (*SMTPSender)(nil)
