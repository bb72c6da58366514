package authcore

import (
	"errors"
	"net/http"

	"github.com/MrEthical07/authcore/otp"
)

var (
	// ErrValidation marks malformed caller input. Concrete failures are
	// *ValidationError values that unwrap to it.
	ErrValidation = errors.New("validation error")
	// ErrEmailTaken is returned when an ACTIVE or DISABLED account owns the email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUserNotFound is returned when no identity matches.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountAlreadyActive is returned when resending a registration code to an ACTIVE account.
	ErrAccountAlreadyActive = errors.New("account already active")
	// ErrAccountNotActive is returned when the flow requires an ACTIVE account.
	ErrAccountNotActive = errors.New("account not active")
	// ErrInvalidCredentials is returned for an unknown email or a wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRegistrationPending is returned when a PENDING account already owns the email.
	ErrRegistrationPending = errors.New("registration pending verification")
	// ErrPasswordWeak is returned when a new password fails the length policy.
	ErrPasswordWeak = errors.New("password too weak")

	ErrOTPNotFound        = otp.ErrNotFound
	ErrOTPConsumed        = otp.ErrConsumed
	ErrOTPTooManyAttempts = otp.ErrTooManyAttempts
	ErrOTPInvalid         = otp.ErrInvalid
	ErrOTPRateLimited     = otp.ErrRateLimited

	// ErrTokenInvalid covers bad signature, issuer, audience, expiry, token
	// kind and revoked refresh tokens.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrForbidden is returned when a valid caller lacks a required role.
	ErrForbidden = errors.New("forbidden")
	// ErrRateLimited is returned by admission control.
	ErrRateLimited = errors.New("rate limited")
	// ErrStoreUnavailable wraps Redis or user store failures.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrRevocationDisabled is returned by RevokeRefreshToken when the denylist is off.
	ErrRevocationDisabled = errors.New("refresh token revocation disabled")
	// ErrDebugDisabled is returned by InspectOTP unless OTP debugging is enabled.
	ErrDebugDisabled = errors.New("otp debug disabled")
	// ErrEngineNotReady is returned by methods called on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ErrorInfo is the stable boundary representation of an error.
type ErrorInfo struct {
	Code       int    `json:"code"`
	Symbol     string `json:"symbol"`
	HTTPStatus int    `json:"-"`
	Message    string `json:"message"`
}

type errorEntry struct {
	err  error
	info ErrorInfo
}

var errorTable = []errorEntry{
	{ErrEmailTaken, ErrorInfo{2001, "EMAIL_TAKEN", http.StatusConflict, "Email is already registered"}},
	{ErrUserNotFound, ErrorInfo{2002, "USER_NOT_FOUND", http.StatusNotFound, "User not found"}},
	{ErrAccountAlreadyActive, ErrorInfo{2003, "USER_ALREADY_ACTIVE", http.StatusConflict, "User is already active"}},
	{ErrAccountNotActive, ErrorInfo{2004, "USER_NOT_ACTIVE", http.StatusForbidden, "User is not active"}},
	{ErrInvalidCredentials, ErrorInfo{2005, "INVALID_CREDENTIALS", http.StatusUnauthorized, "Invalid email or password"}},
	{ErrRegistrationPending, ErrorInfo{2006, "USER_PENDING", http.StatusConflict, "Registration pending, request a new code"}},
	{ErrPasswordWeak, ErrorInfo{2007, "PASSWORD_WEAK", http.StatusBadRequest, "Password must be at least 8 characters"}},
	{ErrOTPNotFound, ErrorInfo{2101, "OTP_NOT_FOUND", http.StatusBadRequest, "Code not found or expired"}},
	{ErrOTPConsumed, ErrorInfo{2102, "OTP_CONSUMED", http.StatusBadRequest, "Code already used"}},
	{ErrOTPTooManyAttempts, ErrorInfo{2103, "OTP_TOO_MANY_ATTEMPTS", http.StatusTooManyRequests, "Too many attempts, wait for the code to expire"}},
	{ErrOTPInvalid, ErrorInfo{2104, "OTP_INVALID", http.StatusBadRequest, "Invalid code"}},
	{ErrOTPRateLimited, ErrorInfo{2106, "OTP_RATE_LIMITED", http.StatusTooManyRequests, "Too many codes requested"}},
	{ErrTokenInvalid, ErrorInfo{2201, "TOKEN_INVALID", http.StatusUnauthorized, "Invalid or expired token"}},
	{ErrForbidden, ErrorInfo{2202, "FORBIDDEN", http.StatusForbidden, "Forbidden"}},
	{ErrRateLimited, ErrorInfo{2301, "RATE_LIMITED", http.StatusTooManyRequests, "Too many requests"}},
	{ErrRevocationDisabled, ErrorInfo{2401, "REVOCATION_DISABLED", http.StatusNotImplemented, "Token revocation is disabled"}},
	{ErrDebugDisabled, ErrorInfo{2402, "DEBUG_DISABLED", http.StatusNotFound, "Not found"}},
	{ErrStoreUnavailable, ErrorInfo{5001, "STORE_UNAVAILABLE", http.StatusServiceUnavailable, "Service temporarily unavailable"}},
}

var internalErrorInfo = ErrorInfo{5000, "INTERNAL_ERROR", http.StatusInternalServerError, "Internal error"}

// Describe maps err to its stable code, symbol, HTTP status and a message
// safe to show to callers. Unknown errors map to INTERNAL_ERROR and never
// leak their text.
func Describe(err error) ErrorInfo {
	if err == nil {
		return ErrorInfo{Code: 0, Symbol: "OK", HTTPStatus: http.StatusOK, Message: "OK"}
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		return ErrorInfo{1000, "VALIDATION_ERROR", http.StatusBadRequest, verr.Error()}
	}
	if errors.Is(err, ErrValidation) {
		return ErrorInfo{1000, "VALIDATION_ERROR", http.StatusBadRequest, "Invalid request"}
	}

	for _, entry := range errorTable {
		if errors.Is(err, entry.err) {
			return entry.info
		}
	}
	return internalErrorInfo
}
