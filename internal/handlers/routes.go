package handlers

import (
	"context"
	"net/http"
)

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	protect := deps.Authenticate
	if protect == nil {
		protect = denyAll
	}

	health := HealthHandler{Check: deps.HealthCheck}
	authHandler := AuthHandler{
		Users:         deps.Users,
		Sessions:      deps.Sessions,
		Limiter:       deps.AuthLimiter,
		SecureCookies: deps.SecureCookies,
	}
	users := UserHandler{Social: deps.Social}
	chat := ChatHandler{Tokens: deps.ChatTokens}
	avatars := AvatarHandler{Users: deps.Users, Storage: deps.Avatars}

	mux.HandleFunc("/healthz", health.Handle)

	mux.HandleFunc("/api/v1/auth/signup", authHandler.SignUp)
	mux.HandleFunc("/api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("/api/v1/auth/logout", authHandler.Logout)
	mux.HandleFunc("/api/v1/auth/refresh", authHandler.Refresh)
	mux.Handle("/api/v1/auth/onboarding", protect(http.HandlerFunc(authHandler.Onboard)))
	mux.Handle("/api/v1/auth/me", protect(http.HandlerFunc(authHandler.Me)))

	mux.Handle("/api/v1/users", protect(http.HandlerFunc(users.Recommended)))
	mux.Handle("/api/v1/users/friends", protect(http.HandlerFunc(users.Friends)))
	mux.Handle("/api/v1/users/friend-request/{id}", protect(http.HandlerFunc(users.SendFriendRequest)))
	mux.Handle("/api/v1/users/friend-request/{id}/accept", protect(http.HandlerFunc(users.AcceptFriendRequest)))
	mux.Handle("/api/v1/users/friend-requests", protect(http.HandlerFunc(users.FriendRequests)))
	mux.Handle("/api/v1/users/outgoing-friend-requests", protect(http.HandlerFunc(users.OutgoingFriendRequests)))
	mux.Handle("/api/v1/users/me/avatar", protect(http.HandlerFunc(avatars.Upload)))

	mux.Handle("/api/v1/chat/token", protect(http.HandlerFunc(chat.Token)))

	if deps.StaticDir != "" {
		mux.Handle("/", SPAHandler{Dir: deps.StaticDir})
	}
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users      UserStore
	Sessions   SessionManager
	Social     SocialService
	ChatTokens ChatTokenIssuer
	// Avatars is nil when no object store is configured.
	Avatars     AvatarStorage
	AuthLimiter RateLimiter
	// Authenticate guards every route that needs a signed-in user.
	Authenticate func(http.Handler) http.Handler
	// StaticDir, when set, is served as a single-page app on "/".
	StaticDir     string
	SecureCookies bool
	HealthCheck   func(ctx context.Context) error
}

func denyAll(http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(r.Context(), w, http.StatusInternalServerError, map[string]string{"error": "authentication unavailable"})
	})
}
