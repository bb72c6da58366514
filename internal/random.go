package internal

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strconv"
)

const (
	otpFloor = 100000
	otpSpan  = 900000
)

var errOTPGeneration = errors.New("invalid otp generation length")

// NewOTPCode returns a uniformly distributed 6-digit code in [100000, 999999].
// Codes are never zero-padded: the leading digit is always non-zero.
func NewOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpSpan))
	if err != nil {
		return "", err
	}

	code := strconv.FormatInt(otpFloor+n.Int64(), 10)
	if len(code) != 6 {
		return "", errOTPGeneration
	}
	return code, nil
}

// IsOTPCode reports whether s is exactly six ASCII digits.
func IsOTPCode(s string) bool {
	if len(s) != 6 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
