// Package internal contains helper utilities that are intentionally private to authcore,
// including secure OTP code generation.
//
// # Sub-packages
//
//   - audit — async event dispatch (Dispatcher + Sink implementations)
//   - rate — Redis-backed fixed-window counters
//   - stores — Redis persistence for OTP records and the refresh-token denylist
//
// # What this package must NOT do
//
//   - Export types that appear in the public authcore API.
//   - Be imported by any package outside the authcore module.
package internal
