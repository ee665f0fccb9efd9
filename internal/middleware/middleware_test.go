package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lingolink/backend/internal/auth"
	"github.com/lingolink/backend/internal/config"
	"github.com/lingolink/backend/internal/logging"
	"github.com/lingolink/backend/internal/models"
	"github.com/lingolink/backend/internal/repositories"
)

func TestRequestLoggerAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	var seen string
	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if seen == "" || rec.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("expected request id on context and response, got %q / %q", seen, rec.Header().Get(RequestIDHeader))
	}
	if !strings.Contains(buf.String(), `"status":418`) {
		t.Fatalf("expected completion log with status, got %s", buf.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if seen != "abc-123" {
		t.Fatalf("expected inbound request id to be kept, got %q", seen)
	}
}

func TestRequestLoggerRecoversPanics(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	handler := RequestLogger(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rec.Code)
	}
}

func TestIPRateLimiter(t *testing.T) {
	limiter := NewIPRateLimiter(config.RateLimitConfig{Requests: 1, Window: time.Minute, Burst: 2})
	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter.WithNowFunc(func() time.Time { return now })

	for i := 0; i < 2; i++ {
		if !limiter.Allow("login:1.2.3.4") {
			t.Fatalf("expected burst request %d to pass", i)
		}
	}
	if limiter.Allow("login:1.2.3.4") {
		t.Fatal("expected request beyond burst to be limited")
	}
	if !limiter.Allow("login:5.6.7.8") {
		t.Fatal("expected other clients to be unaffected")
	}

	now = now.Add(time.Minute)
	if !limiter.Allow("login:1.2.3.4") {
		t.Fatal("expected a token to be refilled after the window")
	}

	now = now.Add(time.Hour)
	limiter.Allow("signup:9.9.9.9")
	if got := limiter.Len(); got != 1 {
		t.Fatalf("expected idle visitors to be collected, got %d", got)
	}
}

type stubVerifier map[string]string

func (s stubVerifier) Verify(_ context.Context, token string) (string, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return "", auth.ErrInvalidAccessToken
}

type stubUsers struct {
	users map[string]models.User
	err   error
}

func (s stubUsers) FindByID(_ context.Context, id string) (models.User, error) {
	if s.err != nil {
		return models.User{}, s.err
	}
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func TestRequireUser(t *testing.T) {
	verifier := stubVerifier{"good": "u1", "orphan": "u404"}
	users := stubUsers{users: map[string]models.User{"u1": {ID: "u1", FullName: "Ana"}}}

	var gotUser models.User
	protected := RequireUser(verifier, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = auth.UserFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name    string
		prepare func(*http.Request)
		status  int
		message string
	}{
		{"missing", func(*http.Request) {}, http.StatusUnauthorized, "Unauthorized - No token provided"},
		{"invalid", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized, "Unauthorized - Invalid token"},
		{"unknownUser", func(r *http.Request) { r.Header.Set("Authorization", "Bearer orphan") }, http.StatusUnauthorized, "Unauthorized - User not found"},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") }, http.StatusNoContent, ""},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: AccessCookieName, Value: "good"}) }, http.StatusNoContent, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gotUser = models.User{}
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
			tc.prepare(req)
			rec := httptest.NewRecorder()

			protected.ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("expected status %d got %d", tc.status, rec.Code)
			}
			if tc.message != "" {
				var body map[string]string
				if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if body["error"] != tc.message {
					t.Fatalf("expected message %q got %q", tc.message, body["error"])
				}
				return
			}
			if gotUser.ID != "u1" {
				t.Fatalf("expected user u1 on context got %+v", gotUser)
			}
		})
	}
}

func TestRequireUserStoreFailure(t *testing.T) {
	protected := RequireUser(stubVerifier{"good": "u1"}, stubUsers{err: errors.New("db down")})(http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	handler := CORS("http://localhost:5173/")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	preflight := httptest.NewRequest(http.MethodOptions, "/api/v1/auth/login", nil)
	preflight.Header.Set("Origin", "http://localhost:5173")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, preflight)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" || rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("unexpected cors headers %v", rec.Header())
	}

	foreign := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	foreign.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, foreign)

	if rec.Code != http.StatusOK || rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("expected foreign origin to pass without cors headers, got %d %v", rec.Code, rec.Header())
	}
}
