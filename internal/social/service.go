package social

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lingolink/backend/internal/logging"
	"github.com/lingolink/backend/internal/models"
	"github.com/lingolink/backend/internal/repositories"
)

// Directory is the read side of the user directory the service needs.
type Directory interface {
	FindByID(ctx context.Context, id string) (models.User, error)
	ListRecommended(ctx context.Context, userID string) ([]models.User, error)
	ListFriends(ctx context.Context, userID string) ([]models.PublicProfile, error)
}

// Ledger stores friend requests and applies accepted requests to the
// directory atomically.
type Ledger interface {
	CreateRequest(ctx context.Context, request models.FriendRequest) error
	FindRequest(ctx context.Context, requestID string) (models.FriendRequest, error)
	FindBetween(ctx context.Context, a, b string) (models.FriendRequest, error)
	Accept(ctx context.Context, request models.FriendRequest) error
	ListIncoming(ctx context.Context, recipientID, status string) ([]models.FriendRequestView, error)
	ListOutgoing(ctx context.Context, senderID, status string) ([]models.FriendRequestView, error)
}

// Service owns the friend-request lifecycle and the friend graph it produces.
type Service struct {
	users    Directory
	requests Ledger

	NowFunc func() time.Time
	NewID   func() string
}

// NewService constructs a Service over the given directory and ledger.
func NewService(users Directory, requests Ledger) *Service {
	if users == nil || requests == nil {
		panic("social: directory and ledger must not be nil")
	}
	return &Service{users: users, requests: requests}
}

// SendRequest records a pending request from senderID to recipientID.
func (s *Service) SendRequest(ctx context.Context, senderID, recipientID string) (models.FriendRequest, error) {
	ctx, span := logging.StartSpan(ctx, "social.send_request")
	defer span.End()

	if senderID == "" || recipientID == "" || senderID == recipientID {
		return models.FriendRequest{}, ErrInvalidTarget
	}

	recipient, err := s.users.FindByID(ctx, recipientID)
	if err != nil {
		return models.FriendRequest{}, mapStoreError("load recipient", err)
	}

	if recipient.HasFriend(senderID) {
		return models.FriendRequest{}, ErrAlreadyFriends
	}

	if _, err := s.requests.FindBetween(ctx, senderID, recipientID); err == nil {
		return models.FriendRequest{}, ErrDuplicateRequest
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return models.FriendRequest{}, fmt.Errorf("look up existing request: %w", err)
	}

	now := s.now()
	request := models.FriendRequest{
		ID:          s.newID(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Status:      models.FriendStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.requests.CreateRequest(ctx, request); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return models.FriendRequest{}, ErrDuplicateRequest
		}
		return models.FriendRequest{}, mapStoreError("create friend request", err)
	}

	logging.FromContext(ctx).Info("friend request sent", "requestId", request.ID, "senderId", senderID, "recipientId", recipientID)
	return request, nil
}

// AcceptRequest accepts requestID on behalf of actingUserID, who must be the
// recipient. The status flip and both friend edges are applied together; on
// error nothing is reported as accepted and the call may be retried.
func (s *Service) AcceptRequest(ctx context.Context, requestID, actingUserID string) (models.FriendRequest, error) {
	ctx, span := logging.StartSpan(ctx, "social.accept_request")
	defer span.End()

	request, err := s.requests.FindRequest(ctx, requestID)
	if err != nil {
		return models.FriendRequest{}, mapStoreError("load friend request", err)
	}

	if request.RecipientID != actingUserID {
		logging.FromContext(ctx).Warn("friend request accept by non-recipient", "requestId", requestID, "actingUserId", actingUserID)
		return models.FriendRequest{}, ErrForbidden
	}

	if err := s.requests.Accept(ctx, request); err != nil {
		return models.FriendRequest{}, mapStoreError("accept friend request", err)
	}

	request.Status = models.FriendStatusAccepted
	request.UpdatedAt = s.now()

	logging.FromContext(ctx).Info("friend request accepted", "requestId", request.ID, "senderId", request.SenderID, "recipientId", request.RecipientID)
	return request, nil
}

// ListIncoming returns pending requests addressed to userID.
func (s *Service) ListIncoming(ctx context.Context, userID string) ([]models.FriendRequestView, error) {
	views, err := s.requests.ListIncoming(ctx, userID, models.FriendStatusPending)
	if err != nil {
		return nil, fmt.Errorf("list incoming requests: %w", err)
	}
	return views, nil
}

// ListOutgoingAccepted returns requests sent by userID that were accepted.
func (s *Service) ListOutgoingAccepted(ctx context.Context, userID string) ([]models.FriendRequestView, error) {
	views, err := s.requests.ListOutgoing(ctx, userID, models.FriendStatusAccepted)
	if err != nil {
		return nil, fmt.Errorf("list accepted requests: %w", err)
	}
	return views, nil
}

// ListOutgoingPending returns requests sent by userID still awaiting an answer.
func (s *Service) ListOutgoingPending(ctx context.Context, userID string) ([]models.FriendRequestView, error) {
	views, err := s.requests.ListOutgoing(ctx, userID, models.FriendStatusPending)
	if err != nil {
		return nil, fmt.Errorf("list outgoing requests: %w", err)
	}
	return views, nil
}

// Recommend lists onboarded users who are neither userID nor already friends.
// It filters; it does not rank.
func (s *Service) Recommend(ctx context.Context, userID string) ([]models.User, error) {
	ctx, span := logging.StartSpan(ctx, "social.recommend")
	defer span.End()

	viewer, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, mapStoreError("load user", err)
	}

	candidates, err := s.users.ListRecommended(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list recommended users: %w", err)
	}

	out := make([]models.User, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.ID == viewer.ID || !candidate.IsOnboarded || viewer.HasFriend(candidate.ID) {
			continue
		}
		out = append(out, candidate)
	}
	return out, nil
}

// ListFriends returns the public profiles of userID's friends.
func (s *Service) ListFriends(ctx context.Context, userID string) ([]models.PublicProfile, error) {
	friends, err := s.users.ListFriends(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	if friends == nil {
		friends = []models.PublicProfile{}
	}
	return friends, nil
}

func (s *Service) now() time.Time {
	if s.NowFunc != nil {
		return s.NowFunc()
	}
	return time.Now().UTC()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func mapStoreError(op string, err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
