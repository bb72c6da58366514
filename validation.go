package authcore

import (
	"errors"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/MrEthical07/authcore/internal"
	"github.com/MrEthical07/authcore/password"
)

const (
	maxEmailLength       = 254
	minDisplayNameLength = 3
	maxDisplayNameLength = 50
)

// normalizeEmail trims and lower-cases raw and checks it is a bare address.
func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", &ValidationError{Field: "email", Reason: "is required"}
	}
	if len(email) > maxEmailLength {
		return "", &ValidationError{Field: "email", Reason: "is too long"}
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "", &ValidationError{Field: "email", Reason: "is not a valid address"}
	}
	return email, nil
}

func validateDisplayName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(name)
	if n < minDisplayNameLength || n > maxDisplayNameLength {
		return "", &ValidationError{Field: "displayName", Reason: "must be 3 to 50 characters"}
	}
	return name, nil
}

func validateCode(code string) error {
	if !internal.IsOTPCode(code) {
		return &ValidationError{Field: "code", Reason: "must be 6 digits"}
	}
	return nil
}

// checkNewPassword applies the length policy to a password about to be stored.
func (e *Engine) checkNewPassword(pw string) error {
	if err := e.hasher.CheckLength(pw); err != nil {
		if errors.Is(err, password.ErrTooLong) {
			return &ValidationError{Field: "password", Reason: "is too long"}
		}
		return ErrPasswordWeak
	}
	return nil
}
