package middleware

import (
	"net/http"

	"github.com/MrEthical07/authcore"
)

// RequireRole must run after Guard. Requests without claims get 401, claims
// lacking every listed role get 403.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				WriteError(w, authcore.ErrTokenInvalid)
				return
			}
			for _, role := range roles {
				if claims.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			WriteError(w, authcore.ErrForbidden)
		})
	}
}
