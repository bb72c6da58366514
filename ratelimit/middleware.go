package ratelimit

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultPrefixes are the paths throttled when MiddlewareConfig.Prefixes is empty.
var DefaultPrefixes = []string{"/api/qa", "/auth/"}

// MiddlewareConfig selects the throttled paths and how callers are keyed.
type MiddlewareConfig struct {
	Prefixes     []string
	APIKeyHeader string
	Logger       zerolog.Logger
	// OnDeny, when set, is called for every rejected request.
	OnDeny func(r *http.Request, key string)
}

type deniedBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Middleware admits requests under the configured prefixes through l and
// answers 429 when the caller's bucket is empty. Other paths pass through.
func Middleware(l *Limiter, cfg MiddlewareConfig) func(http.Handler) http.Handler {
	prefixes := cfg.Prefixes
	if len(prefixes) == 0 {
		prefixes = DefaultPrefixes
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !matchesPrefix(r.URL.Path, prefixes) {
				next.ServeHTTP(w, r)
				return
			}

			key := CallerKey(r, cfg.APIKeyHeader)
			allowed, retryAfter := l.Take(key)
			if allowed {
				next.ServeHTTP(w, r)
				return
			}

			cfg.Logger.Debug().
				Str("key", key).
				Str("path", r.URL.Path).
				Msg("rate limited")
			if cfg.OnDeny != nil {
				cfg.OnDeny(r, key)
			}

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(deniedBody{
				Error:   "rate_limited",
				Message: "Too many requests",
			})
		})
	}
}

func matchesPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
