package handlers

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// RateLimiter is the minimal interface required to guard sensitive endpoints.
type RateLimiter interface {
	Allow(key string) bool
}

// retryAfterSeconds is advertised to throttled clients.
const retryAfterSeconds = "60"

// throttle reports whether r exceeded its budget for scope and, if so, has
// already written the 429 response.
func throttle(limiter RateLimiter, w http.ResponseWriter, r *http.Request, scope, message string) bool {
	if limiter == nil || limiter.Allow(scope+":"+clientIP(r)) {
		return false
	}
	w.Header().Set("Retry-After", retryAfterSeconds)
	respondJSON(r.Context(), w, http.StatusTooManyRequests, map[string]string{"error": message})
	return true
}

// clientIP prefers the first well-formed X-Forwarded-For entry and falls
// back to the connection's remote address.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if addr, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return addr.Unmap().String()
		}
	}

	remote := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(remote); err == nil && host != "" {
		return host
	}
	return remote
}
