package repositories

import (
	"context"

	"github.com/lingolink/backend/internal/models"
)

// FriendRepository defines data access for friend requests and the friend
// edges they produce.
type FriendRepository interface {
	CreateRequest(ctx context.Context, request models.FriendRequest) error
	FindRequest(ctx context.Context, requestID string) (models.FriendRequest, error)
	FindBetween(ctx context.Context, a, b string) (models.FriendRequest, error)
	// Accept marks the request accepted and links both users as friends in a
	// single atomic step. Re-accepting re-applies the edges without error.
	Accept(ctx context.Context, request models.FriendRequest) error
	ListIncoming(ctx context.Context, recipientID, status string) ([]models.FriendRequestView, error)
	ListOutgoing(ctx context.Context, senderID, status string) ([]models.FriendRequestView, error)
}
