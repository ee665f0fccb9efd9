package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/lingolink/backend/internal/config"
	"github.com/lingolink/backend/internal/db"
	"github.com/lingolink/backend/internal/handlers"
	"github.com/lingolink/backend/internal/httpserver"
	"github.com/lingolink/backend/internal/logging"
	"github.com/lingolink/backend/internal/middleware"
)

// Run bootstraps the LingoLink backend application.
func Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("expected command: serve, migrate, or seed")
	}

	switch args[0] {
	case "serve":
		return serve(ctx)
	case "migrate":
		return runMigrations(ctx, args[1:])
	case "seed":
		return runSeed(ctx, args[1:])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)
	ctx = logging.WithLogger(ctx, logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	deps, err := buildDependencies(ctx, pool, cfg)
	if err != nil {
		return err
	}

	if purger, ok := deps.Sessions.(sessionPurger); ok {
		go runSessionJanitor(ctx, purger, cfg.SessionPurge)
	}

	srv := httpserver.New(cfg.AppPort, newHandler(logger, cfg, deps))
	logger.Info("starting lingolink", "port", cfg.AppPort, "production", cfg.Production)
	return srv.Run(ctx)
}

func newHandler(logger *slog.Logger, cfg config.Config, deps handlers.Dependencies) http.Handler {
	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux, deps)

	var handler http.Handler = mux
	if cfg.FrontendOrigin != "" {
		handler = middleware.CORS(cfg.FrontendOrigin)(handler)
	}
	return middleware.RequestLogger(logger)(handler)
}
