// Package rate provides Redis-backed fixed-window counters used to throttle
// OTP issuance per (purpose, email) across service instances.
//
// # Window semantics
//
// INCR + conditional EXPIRE on first hit. The window starts at the first
// issuance and the key disappears when it elapses. Key prefix:
//   - oti: — OTP issuance
//
// # What this package must NOT do
//
//   - Implement the per-caller HTTP token bucket (that lives in ratelimit).
//   - Be imported outside the authcore module.
package rate
