package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

type keyRecorder struct {
	keys  []string
	allow bool
}

func (k *keyRecorder) Allow(key string) bool {
	k.keys = append(k.keys, key)
	return k.allow
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		name      string
		forwarded string
		remote    string
		want      string
	}{
		{"remoteOnly", "", "10.0.0.7:5123", "10.0.0.7"},
		{"forwardedChain", "203.0.113.9, 10.0.0.1", "10.0.0.1:80", "203.0.113.9"},
		{"forwardedGarbage", "not-an-ip", "10.0.0.7:5123", "10.0.0.7"},
		{"mappedV4", "::ffff:198.51.100.2", "10.0.0.1:80", "198.51.100.2"},
		{"bareRemote", "", "10.0.0.9", "10.0.0.9"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.RemoteAddr = tc.remote
			if tc.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			if got := clientIP(req); got != tc.want {
				t.Fatalf("expected %q got %q", tc.want, got)
			}
		})
	}
}

func TestThrottle(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.RemoteAddr = "192.0.2.4:1234"

	limiter := &keyRecorder{allow: true}
	rec := httptest.NewRecorder()
	if throttle(limiter, rec, req, "login", "slow down") {
		t.Fatal("expected request to pass")
	}
	if len(limiter.keys) != 1 || limiter.keys[0] != "login:192.0.2.4" {
		t.Fatalf("unexpected keys %v", limiter.keys)
	}

	limiter.allow = false
	rec = httptest.NewRecorder()
	if !throttle(limiter, rec, req, "login", "slow down") {
		t.Fatal("expected request to be throttled")
	}
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected 429 with Retry-After, got %d %q", rec.Code, rec.Header().Get("Retry-After"))
	}

	if throttle(nil, httptest.NewRecorder(), req, "login", "slow down") {
		t.Fatal("expected nil limiter to allow")
	}
}
