package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lingolink/backend/internal/auth"
	"github.com/lingolink/backend/internal/logging"
	"github.com/lingolink/backend/internal/models"
	"github.com/lingolink/backend/internal/repositories"
)

// AccessCookieName is the cookie carrying the access token for browsers.
const AccessCookieName = "jwt"

// TokenVerifier resolves an access token to the user id it was issued for.
type TokenVerifier interface {
	Verify(ctx context.Context, accessToken string) (string, error)
}

// UserLookup loads the account behind a verified token.
type UserLookup interface {
	FindByID(ctx context.Context, id string) (models.User, error)
}

// RequireUser rejects requests without a valid access token. The token is
// read from the Authorization bearer header, falling back to the jwt cookie.
// Authenticated requests carry the user on their context.
func RequireUser(tokens TokenVerifier, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logger := logging.FromContext(ctx)

			token := AccessToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "Unauthorized - No token provided")
				return
			}

			userID, err := tokens.Verify(ctx, token)
			if err != nil {
				logger.Warn("access token rejected", "error", err)
				writeError(w, http.StatusUnauthorized, "Unauthorized - Invalid token")
				return
			}

			user, err := users.FindByID(ctx, userID)
			if err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					logger.Warn("access token for unknown user", "userId", userID)
					writeError(w, http.StatusUnauthorized, "Unauthorized - User not found")
					return
				}
				logger.Error("load authenticated user", "userId", userID, "error", err)
				writeError(w, http.StatusInternalServerError, "Internal Server Error")
				return
			}

			ctx = logging.WithLogger(ctx, logger.With(slog.String("user_id", user.ID)))
			ctx = auth.WithUser(ctx, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccessToken extracts the access token from r, preferring the bearer header.
func AccessToken(r *http.Request) string {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(AccessCookieName); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
