// Package authcore is the authentication core of a social-platform backend:
// email/password registration confirmed by a one-time passcode, login with
// signed access and refresh tokens, refresh rotation, and password reset and
// change.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config],
// the [UserStore] and [CodeSender] collaborator interfaces, and value types.
// OTP records live in Redis through the otp package, tokens come from the jwt
// package, and hashing from the password package. Per-caller HTTP throttling
// lives in the ratelimit package and sits in front of the Engine, unaware of it.
//
// # What this package must NOT do
//
//   - Log or return OTP codes, passwords or tokens outside their intended result.
//   - Own identity persistence; that belongs to the UserStore implementation.
//   - Import any sub-package that re-imports authcore (no import cycles).
//
// # Consistency
//
// OTP verification is exactly-once: the attempt check, the comparison and
// the resulting counter bump or delete run in one Redis script, so racing
// guesses never exceed OTPConfig.MaxAttempts. OTP issuance is throttled only
// when OTPConfig.IssueLimit is positive.
//
// Refresh tokens are stateless by default: rotation issues a new pair and the
// old refresh token stays valid until it expires. SecurityConfig.RevokeRotatedRefresh
// enables a Redis denylist keyed by token ID.
package authcore
