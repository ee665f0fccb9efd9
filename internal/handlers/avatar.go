package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/lingolink/backend/internal/auth"
	"github.com/lingolink/backend/internal/logging"
)

const maxAvatarBytes = 5 << 20

var avatarExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// AvatarHandler stores profile pictures in the object store.
type AvatarHandler struct {
	Users   UserStore
	Storage AvatarStorage
	NowFunc func() time.Time
}

// Upload handles PUT /api/v1/users/me/avatar. The request body is the raw
// image; its type is sniffed rather than trusted from the headers.
func (h AvatarHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	current, ok := auth.UserFromContext(ctx)
	if !ok {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	if h.Storage == nil || h.Users == nil {
		respondJSON(ctx, w, http.StatusServiceUnavailable, map[string]string{"error": "avatar uploads are not configured"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAvatarBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondJSON(ctx, w, http.StatusRequestEntityTooLarge, map[string]string{"error": "avatar exceeds 5MB"})
			return
		}
		logger.Warn("read avatar body", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(body) == 0 {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "avatar image is required"})
		return
	}

	ext, ok := avatarExtensions[http.DetectContentType(body)]
	if !ok {
		respondJSON(ctx, w, http.StatusUnsupportedMediaType, map[string]string{"error": "avatar must be a jpeg, png, gif or webp image"})
		return
	}

	key := fmt.Sprintf("avatars/%s/%s%s", current.ID, uuid.NewString(), ext)
	location, err := h.Storage.Save(ctx, key, bytes.NewReader(body))
	if err != nil {
		logger.Error("store avatar", "key", key, "error", err)
		respondJSON(ctx, w, http.StatusBadGateway, map[string]string{"error": "failed to store avatar"})
		return
	}

	user, err := h.Users.FindByID(ctx, current.ID)
	if err != nil {
		logger.Error("load user for avatar", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to update profile"})
		return
	}
	user.ProfilePic = location
	user.UpdatedAt = h.now()
	if err := h.Users.Update(ctx, user); err != nil {
		logger.Error("update profile picture", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to update profile"})
		return
	}

	logger.Info("avatar updated", "key", key)
	respondJSON(ctx, w, http.StatusOK, userResponse{Success: true, User: user})
}

func (h AvatarHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
