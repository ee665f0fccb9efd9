package app

import (
	"context"
	"time"

	"github.com/lingolink/backend/internal/logging"
)

type sessionPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// runSessionJanitor purges expired refresh sessions every interval until ctx
// is done. Failures are logged and retried on the next tick.
func runSessionJanitor(ctx context.Context, purger sessionPurger, interval time.Duration) {
	if interval <= 0 {
		return
	}
	logger := logging.FromContext(ctx).With("component", "session_janitor")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := purger.PurgeExpired(ctx)
			if err != nil {
				logger.Warn("purge expired sessions", "error", err)
				continue
			}
			if removed > 0 {
				logger.Info("purged expired sessions", "count", removed)
			}
		}
	}
}
