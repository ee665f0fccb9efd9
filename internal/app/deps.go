package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/lingolink/backend/internal/auth"
	"github.com/lingolink/backend/internal/chat"
	"github.com/lingolink/backend/internal/config"
	"github.com/lingolink/backend/internal/db"
	"github.com/lingolink/backend/internal/handlers"
	"github.com/lingolink/backend/internal/logging"
	"github.com/lingolink/backend/internal/middleware"
	"github.com/lingolink/backend/internal/repositories"
	"github.com/lingolink/backend/internal/social"
	"github.com/lingolink/backend/internal/storage"
)

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, error) {
	logger := logging.FromContext(ctx)

	users := repositories.NewPostgresUserRepository(pool)
	friends := repositories.NewPostgresFriendRepository(pool)
	sessions := auth.NewManager(cfg.AccessTTL, cfg.RefreshTTL, []byte(cfg.JWTSecret), repositories.NewPostgresSessionStore(pool))

	deps := handlers.Dependencies{
		Users:         users,
		Sessions:      sessions,
		Social:        social.NewService(users, friends),
		AuthLimiter:   middleware.NewIPRateLimiter(cfg.AuthLimit),
		Authenticate:  middleware.RequireUser(sessions, users),
		SecureCookies: cfg.Production,
		HealthCheck:   pingDatabase(pool),
	}

	if strings.TrimSpace(cfg.Chat.APISecret) != "" {
		deps.ChatTokens = chat.NewTokenIssuer(cfg.Chat.APIKey, cfg.Chat.APISecret)
	} else {
		logger.Warn("chat api secret not set; chat tokens disabled")
	}

	if strings.TrimSpace(cfg.ObjectStore.Bucket) != "" {
		avatars, err := storage.NewAvatarStore(ctx, cfg.ObjectStore)
		if err != nil {
			return handlers.Dependencies{}, fmt.Errorf("configure avatar storage: %w", err)
		}
		deps.Avatars = avatars
	}

	if cfg.Production {
		deps.StaticDir = cfg.StaticDir
	}

	return deps, nil
}

func pingDatabase(pool db.Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		conn, err := pool.Acquire(ctx)
		if err != nil {
			return fmt.Errorf("acquire connection: %w", err)
		}
		defer conn.Release()
		return conn.Ping(ctx)
	}
}
