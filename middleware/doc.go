// Package middleware adapts access-token verification to net/http.
//
// [Guard] requires a Bearer access token, [Optional] only attaches claims
// when one is present, and [RequireRole] checks the claims Guard stored.
// Token decisions are delegated to the engine; this package only maps them
// to 401/403 responses.
package middleware
