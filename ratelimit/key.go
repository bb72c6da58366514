package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// DefaultAPIKeyHeader is the header consulted first by CallerKey.
const DefaultAPIKeyHeader = "X-API-KEY"

// CallerKey derives the bucket key for r: the API key header when present,
// else the first X-Forwarded-For entry, else the peer address.
//
// Behind a proxy that does not set X-Forwarded-For every request shares
// the proxy's bucket.
func CallerKey(r *http.Request, apiKeyHeader string) string {
	if apiKeyHeader == "" {
		apiKeyHeader = DefaultAPIKeyHeader
	}
	if key := strings.TrimSpace(r.Header.Get(apiKeyHeader)); key != "" {
		return "apikey:" + key
	}
	return "ip:" + ClientIP(r)
}

// ClientIP returns the first X-Forwarded-For entry, else the host part of
// RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return host
}
