package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lingolink/backend/internal/config"
)

type fakePool struct{}

func (fakePool) Acquire(context.Context) (*pgxpool.Conn, error) {
	return nil, errors.New("not implemented")
}

func (fakePool) Close() {}

func testConfig() config.Config {
	return config.Config{
		AppPort:    8080,
		JWTSecret:  "secret",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		StaticDir:  "dist",
		AuthLimit:  config.RateLimitConfig{Requests: 5, Window: time.Minute, Burst: 5},
	}
}

func TestBuildDependencies(t *testing.T) {
	cfg := testConfig()
	cfg.Production = true
	cfg.Chat = config.ChatConfig{APIKey: "key", APISecret: "chat-secret"}
	cfg.ObjectStore = config.ObjectStoreConfig{Bucket: "test-bucket", Endpoint: "http://localhost:9000", Region: "us-east-1"}

	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	deps, err := buildDependencies(context.Background(), fakePool{}, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if deps.Users == nil || deps.Sessions == nil || deps.Social == nil {
		t.Fatal("expected core services to be configured")
	}
	if deps.Authenticate == nil || deps.AuthLimiter == nil {
		t.Fatal("expected authentication and rate limiting to be configured")
	}
	if deps.ChatTokens == nil {
		t.Fatal("expected chat token issuer to be configured")
	}
	if deps.Avatars == nil {
		t.Fatal("expected avatar storage to be configured")
	}
	if deps.HealthCheck == nil || deps.HealthCheck(context.Background()) == nil {
		t.Fatal("expected health check to report the unreachable pool")
	}
	if deps.StaticDir != "dist" || !deps.SecureCookies {
		t.Fatalf("expected production static dir and secure cookies, got %q %v", deps.StaticDir, deps.SecureCookies)
	}
}

func TestBuildDependenciesOptionalIntegrations(t *testing.T) {
	deps, err := buildDependencies(context.Background(), fakePool{}, testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deps.ChatTokens != nil {
		t.Fatal("expected chat tokens to be disabled without a secret")
	}
	if deps.Avatars != nil {
		t.Fatal("expected avatar storage to be disabled without a bucket")
	}
	if deps.StaticDir != "" || deps.SecureCookies {
		t.Fatal("expected development defaults")
	}
}
