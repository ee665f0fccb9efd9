package handlers

import (
	"context"
	"io"

	"github.com/lingolink/backend/internal/models"
)

// UserStore captures the persistence operations required by the auth handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	Update(ctx context.Context, user models.User) error
}

// SessionManager issues, refreshes and revokes authentication tokens.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Revoke(ctx context.Context, refreshToken string)
}

// SocialService is the friend-graph surface exposed over HTTP.
type SocialService interface {
	SendRequest(ctx context.Context, senderID, recipientID string) (models.FriendRequest, error)
	AcceptRequest(ctx context.Context, requestID, actingUserID string) (models.FriendRequest, error)
	ListIncoming(ctx context.Context, userID string) ([]models.FriendRequestView, error)
	ListOutgoingAccepted(ctx context.Context, userID string) ([]models.FriendRequestView, error)
	ListOutgoingPending(ctx context.Context, userID string) ([]models.FriendRequestView, error)
	Recommend(ctx context.Context, userID string) ([]models.User, error)
	ListFriends(ctx context.Context, userID string) ([]models.PublicProfile, error)
}

// ChatTokenIssuer mints credentials for the external chat and video platform.
type ChatTokenIssuer interface {
	IssueToken(userID string) (string, error)
}

// AvatarStorage persists uploaded profile pictures and returns their location.
type AvatarStorage interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}
