package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/lingolink/backend/internal/auth"
	"github.com/lingolink/backend/internal/logging"
	"github.com/lingolink/backend/internal/models"
	"github.com/lingolink/backend/internal/social"
)

// UserHandler exposes recommendations, friends and friend requests for the
// signed-in user.
type UserHandler struct {
	Social SocialService
}

// Recommended handles GET /api/v1/users.
func (h UserHandler) Recommended(w http.ResponseWriter, r *http.Request) {
	user, ok := h.begin(w, r, http.MethodGet)
	if !ok {
		return
	}
	ctx := r.Context()

	users, err := h.Social.Recommend(ctx, user.ID)
	if err != nil {
		respondSocialError(w, r, "recommend users", err)
		return
	}

	if users == nil {
		users = []models.User{}
	}
	respondJSON(ctx, w, http.StatusOK, users)
}

// Friends handles GET /api/v1/users/friends.
func (h UserHandler) Friends(w http.ResponseWriter, r *http.Request) {
	user, ok := h.begin(w, r, http.MethodGet)
	if !ok {
		return
	}
	ctx := r.Context()

	friends, err := h.Social.ListFriends(ctx, user.ID)
	if err != nil {
		respondSocialError(w, r, "list friends", err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, friends)
}

// SendFriendRequest handles POST /api/v1/users/friend-request/{id}.
func (h UserHandler) SendFriendRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := h.begin(w, r, http.MethodPost)
	if !ok {
		return
	}
	ctx := r.Context()

	recipientID := strings.TrimSpace(r.PathValue("id"))
	request, err := h.Social.SendRequest(ctx, user.ID, recipientID)
	if err != nil {
		respondSocialError(w, r, "send friend request", err)
		return
	}
	respondJSON(ctx, w, http.StatusCreated, request)
}

// AcceptFriendRequest handles PUT /api/v1/users/friend-request/{id}/accept.
func (h UserHandler) AcceptFriendRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := h.begin(w, r, http.MethodPut)
	if !ok {
		return
	}
	ctx := r.Context()

	request, err := h.Social.AcceptRequest(ctx, strings.TrimSpace(r.PathValue("id")), user.ID)
	if err != nil {
		respondSocialError(w, r, "accept friend request", err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]any{"message": "friend request accepted", "request": request})
}

// FriendRequests handles GET /api/v1/users/friend-requests: pending requests
// addressed to the user and the user's requests that were accepted.
func (h UserHandler) FriendRequests(w http.ResponseWriter, r *http.Request) {
	user, ok := h.begin(w, r, http.MethodGet)
	if !ok {
		return
	}
	ctx := r.Context()

	incoming, err := h.Social.ListIncoming(ctx, user.ID)
	if err != nil {
		respondSocialError(w, r, "list incoming requests", err)
		return
	}
	accepted, err := h.Social.ListOutgoingAccepted(ctx, user.ID)
	if err != nil {
		respondSocialError(w, r, "list accepted requests", err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, friendRequestsResponse{
		Incoming: nonNilViews(incoming),
		Accepted: nonNilViews(accepted),
	})
}

// OutgoingFriendRequests handles GET /api/v1/users/outgoing-friend-requests.
func (h UserHandler) OutgoingFriendRequests(w http.ResponseWriter, r *http.Request) {
	user, ok := h.begin(w, r, http.MethodGet)
	if !ok {
		return
	}
	ctx := r.Context()

	pending, err := h.Social.ListOutgoingPending(ctx, user.ID)
	if err != nil {
		respondSocialError(w, r, "list outgoing requests", err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, nonNilViews(pending))
}

// begin checks the method, the service and the signed-in user shared by
// every endpoint of the handler.
func (h UserHandler) begin(w http.ResponseWriter, r *http.Request, method string) (models.User, bool) {
	if r.Method != method {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return models.User{}, false
	}

	ctx := r.Context()
	if h.Social == nil {
		logging.FromContext(ctx).Error("social service unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "social service unavailable"})
		return models.User{}, false
	}

	user, ok := auth.UserFromContext(ctx)
	if !ok {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return models.User{}, false
	}
	return user, true
}

type friendRequestsResponse struct {
	Incoming []models.FriendRequestView `json:"incomingReqs"`
	Accepted []models.FriendRequestView `json:"acceptedReqs"`
}

func nonNilViews(views []models.FriendRequestView) []models.FriendRequestView {
	if views == nil {
		return []models.FriendRequestView{}
	}
	return views
}

func respondSocialError(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	status, message := socialErrorStatus(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(ctx).Error(op+" failed", "error", err)
	}
	respondJSON(ctx, w, status, map[string]string{"error": message})
}

func socialErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, social.ErrInvalidTarget):
		return http.StatusBadRequest, "you can't send a friend request to yourself"
	case errors.Is(err, social.ErrAlreadyFriends):
		return http.StatusBadRequest, "you are already friends with this user"
	case errors.Is(err, social.ErrDuplicateRequest):
		return http.StatusBadRequest, "a friend request already exists between you and this user"
	case errors.Is(err, social.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, social.ErrForbidden):
		return http.StatusForbidden, "you are not authorized to accept this request"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
