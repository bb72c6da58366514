// Package jwt mints and verifies signed access and refresh tokens.
//
// Both token kinds share issuer, audience and signing key but carry a
// distinct "tku" claim and a random jti, so one kind can never be replayed
// as the other. Verification checks signature, issuer, audience and expiry
// in a single parser call.
package jwt
