package mailer

import (
	"context"

	"github.com/MrEthical07/authcore"
	"github.com/rs/zerolog"
)

// LogSender writes deliveries to a zerolog logger instead of sending mail.
// The code is only included when revealCode is set, for local development.
type LogSender struct {
	logger     zerolog.Logger
	revealCode bool
}

func NewLogSender(logger zerolog.Logger, revealCode bool) *LogSender {
	return &LogSender{
		logger:     logger.With().Str("component", "mailer").Logger(),
		revealCode: revealCode,
	}
}

func (s *LogSender) SendOTP(_ context.Context, msg authcore.OTPMessage) error {
	event := s.logger.Info().
		Str("purpose", string(msg.Purpose)).
		Str("email", msg.Email).
		Dur("ttl", msg.TTL)
	if s.revealCode {
		event = event.Str("code", msg.Code)
	}
	event.Msg("otp delivery")
	return nil
}

var _ authcore.CodeSender = (*LogSender)(nil)
