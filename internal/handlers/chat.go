package handlers

import (
	"net/http"

	"github.com/lingolink/backend/internal/auth"
	"github.com/lingolink/backend/internal/logging"
)

// ChatHandler hands out chat platform credentials.
type ChatHandler struct {
	Tokens ChatTokenIssuer
}

// Token handles GET /api/v1/chat/token.
func (h ChatHandler) Token(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, ok := auth.UserFromContext(ctx)
	if !ok {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	if h.Tokens == nil {
		logger.Error("chat token issuer unavailable")
		respondJSON(ctx, w, http.StatusServiceUnavailable, map[string]string{"error": "chat is not configured"})
		return
	}

	token, err := h.Tokens.IssueToken(user.ID)
	if err != nil {
		logger.Error("issue chat token", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to issue chat token"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"token": token})
}
