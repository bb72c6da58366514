package internal

import (
	"regexp"
	"testing"
)

var sixDigits = regexp.MustCompile(`^[0-9]{6}$`)

// FuzzIsOTPCode checks IsOTPCode against the reference pattern.
func FuzzIsOTPCode(f *testing.F) {
	f.Add("")
	f.Add("123456")
	f.Add("000000")
	f.Add("12345")
	f.Add("1234567")
	f.Add("12a456")
	f.Add("１２３４５６")
	f.Add(" 123456")

	f.Fuzz(func(t *testing.T, input string) {
		if got, want := IsOTPCode(input), sixDigits.MatchString(input); got != want {
			t.Fatalf("IsOTPCode(%q) = %v, want %v", input, got, want)
		}
	})
}

func TestNewOTPCodeRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		code, err := NewOTPCode()
		if err != nil {
			t.Fatalf("NewOTPCode failed: %v", err)
		}
		if !IsOTPCode(code) || code[0] == '0' {
			t.Fatalf("code %q outside [100000, 999999]", code)
		}
	}
}
