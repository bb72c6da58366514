// Package stores provides Redis-backed, short-lived record stores for
// authentication flows: OTP challenges and the refresh-token denylist.
//
// # Design
//
// An OTP record is a Redis hash with a TTL. Issuance overwrites the hash in
// one MULTI block. Verification is one Lua script: it checks existence, the
// consumed flag and the attempt budget, then either bumps the counter or
// deletes the record. Concurrent guesses therefore cannot exceed the budget,
// a correct code is consumed by exactly one caller, and an expiring record is
// never resurrected without a TTL.
//
// The denylist stores revoked token IDs with SET NX and a TTL equal to the
// token's remaining lifetime.
//
// # What this package must NOT do
//
//   - Import authcore or any sibling internal package.
//   - Log or expose OTP codes.
//   - Decide verification outcomes (the otp package owns those).
package stores
