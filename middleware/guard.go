package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/MrEthical07/authcore"
)

// AccessValidator verifies an access token. *authcore.Engine satisfies it.
type AccessValidator interface {
	ValidateAccess(ctx context.Context, accessToken string) (*authcore.Claims, error)
}

type claimsContextKey struct{}

// ClaimsFromContext returns the claims stored by Guard or Optional.
func ClaimsFromContext(ctx context.Context) (*authcore.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*authcore.Claims)
	return claims, ok && claims != nil
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *authcore.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// Guard rejects requests without a valid Bearer access token with 401 and
// stores the verified claims in the request context otherwise.
func Guard(validator AccessValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validator == nil {
				WriteError(w, authcore.ErrTokenInvalid)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				WriteError(w, authcore.ErrTokenInvalid)
				return
			}

			claims, err := validator.ValidateAccess(r.Context(), token)
			if err != nil {
				WriteError(w, authcore.ErrTokenInvalid)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// WriteError writes the {code, message, data} envelope for err with the
// status from authcore.Describe.
func WriteError(w http.ResponseWriter, err error) {
	info := authcore.Describe(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(info.HTTPStatus)
	_ = json.NewEncoder(w).Encode(struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    any    `json:"data"`
	}{Code: info.Code, Message: info.Message})
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
