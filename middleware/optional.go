package middleware

import "net/http"

// Optional attaches claims when a valid Bearer token is present and passes
// every request through unchanged otherwise.
func Optional(validator AccessValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok || validator == nil {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := validator.ValidateAccess(r.Context(), token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}
