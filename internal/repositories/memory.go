package repositories

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/lingolink/backend/internal/models"
)

// MemoryStore implements UserRepository and FriendRepository in process
// memory for tests and local development. Friend sets are stored per user and
// kept symmetric by Accept.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]models.User
	friends  map[string]map[string]struct{}
	requests map[string]models.FriendRequest
	now      func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]models.User),
		friends:  make(map[string]map[string]struct{}),
		requests: make(map[string]models.FriendRequest),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new user. The user's Friends field is ignored.
func (s *MemoryStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return ErrConflict
	}
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return ErrConflict
		}
	}
	user.Friends = nil
	s.users[user.ID] = user
	s.friends[user.ID] = make(map[string]struct{})
	return nil
}

// FindByEmail fetches a user by email.
func (s *MemoryStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			return s.withFriendsLocked(user), nil
		}
	}
	return models.User{}, ErrNotFound
}

// FindByID fetches a user by identifier.
func (s *MemoryStore) FindByID(_ context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return s.withFriendsLocked(user), nil
}

// Update replaces a user's profile fields.
func (s *MemoryStore) Update(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return ErrNotFound
	}
	for id, existing := range s.users {
		if id != user.ID && strings.EqualFold(existing.Email, user.Email) {
			return ErrConflict
		}
	}
	user.Friends = nil
	s.users[user.ID] = user
	return nil
}

// ListRecommended returns onboarded non-friends other than userID.
func (s *MemoryStore) ListRecommended(_ context.Context, userID string) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	friends := s.friends[userID]
	var out []models.User
	for id, user := range s.users {
		if id == userID || !user.IsOnboarded {
			continue
		}
		if _, ok := friends[id]; ok {
			continue
		}
		out = append(out, s.withFriendsLocked(user))
	}
	return out, nil
}

// ListFriends returns the public profiles of userID's friends.
func (s *MemoryStore) ListFriends(_ context.Context, userID string) ([]models.PublicProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.PublicProfile
	for id := range s.friends[userID] {
		if user, ok := s.users[id]; ok {
			out = append(out, user.Public())
		}
	}
	return out, nil
}

// CreateRequest stores a request, rejecting a second one for the same
// unordered pair.
func (s *MemoryStore) CreateRequest(_ context.Context, request models.FriendRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[request.SenderID]; !ok {
		return ErrNotFound
	}
	if _, ok := s.users[request.RecipientID]; !ok {
		return ErrNotFound
	}
	for _, existing := range s.requests {
		if existing.ID == request.ID || existing.Involves(request.SenderID, request.RecipientID) {
			return ErrConflict
		}
	}
	s.requests[request.ID] = request
	return nil
}

// FindRequest loads a request by identifier.
func (s *MemoryStore) FindRequest(_ context.Context, requestID string) (models.FriendRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	request, ok := s.requests[requestID]
	if !ok {
		return models.FriendRequest{}, ErrNotFound
	}
	return request, nil
}

// FindBetween loads the request linking a and b in either direction.
func (s *MemoryStore) FindBetween(_ context.Context, a, b string) (models.FriendRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, request := range s.requests {
		if request.Involves(a, b) {
			return request, nil
		}
	}
	return models.FriendRequest{}, ErrNotFound
}

// Accept flips the request and adds both edges under one lock.
func (s *MemoryStore) Accept(_ context.Context, request models.FriendRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.requests[request.ID]
	if !ok {
		return ErrNotFound
	}
	if _, ok := s.users[stored.SenderID]; !ok {
		return ErrNotFound
	}
	if _, ok := s.users[stored.RecipientID]; !ok {
		return ErrNotFound
	}

	stored.Status = models.FriendStatusAccepted
	stored.UpdatedAt = s.now()
	s.requests[stored.ID] = stored

	s.addEdgeLocked(stored.SenderID, stored.RecipientID)
	s.addEdgeLocked(stored.RecipientID, stored.SenderID)
	return nil
}

// ListIncoming returns requests addressed to recipientID with the given status.
func (s *MemoryStore) ListIncoming(_ context.Context, recipientID, status string) ([]models.FriendRequestView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.FriendRequestView
	for _, request := range s.requests {
		if request.RecipientID != recipientID || request.Status != status {
			continue
		}
		sender, ok := s.users[request.SenderID]
		if !ok {
			continue
		}
		profile := sender.Public()
		out = append(out, models.FriendRequestView{FriendRequest: request, Sender: &profile})
	}
	return out, nil
}

// ListOutgoing returns requests sent by senderID with the given status.
func (s *MemoryStore) ListOutgoing(_ context.Context, senderID, status string) ([]models.FriendRequestView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.FriendRequestView
	for _, request := range s.requests {
		if request.SenderID != senderID || request.Status != status {
			continue
		}
		recipient, ok := s.users[request.RecipientID]
		if !ok {
			continue
		}
		profile := recipient.Public()
		out = append(out, models.FriendRequestView{FriendRequest: request, Recipient: &profile})
	}
	return out, nil
}

func (s *MemoryStore) addEdgeLocked(userID, friendID string) {
	set, ok := s.friends[userID]
	if !ok {
		set = make(map[string]struct{})
		s.friends[userID] = set
	}
	set[friendID] = struct{}{}
}

func (s *MemoryStore) withFriendsLocked(user models.User) models.User {
	set := s.friends[user.ID]
	user.Friends = make([]string, 0, len(set))
	for id := range set {
		user.Friends = append(user.Friends, id)
	}
	return user
}

var _ UserRepository = (*MemoryStore)(nil)
var _ FriendRepository = (*MemoryStore)(nil)
