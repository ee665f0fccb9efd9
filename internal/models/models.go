package models

import "time"

// User represents an account within the LingoLink platform.
type User struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	Password         string    `json:"-"`
	FullName         string    `json:"fullName"`
	Bio              string    `json:"bio"`
	ProfilePic       string    `json:"profilePic"`
	NativeLanguage   string    `json:"nativeLanguage"`
	LearningLanguage string    `json:"learningLanguage"`
	Location         string    `json:"location"`
	IsOnboarded      bool      `json:"isOnboarded"`
	Friends          []string  `json:"friends"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// HasFriend reports whether id is present in the user's friend set.
func (u User) HasFriend(id string) bool {
	for _, friend := range u.Friends {
		if friend == id {
			return true
		}
	}
	return false
}

// Public reduces the user to the fields other members may see.
func (u User) Public() PublicProfile {
	return PublicProfile{
		ID:               u.ID,
		FullName:         u.FullName,
		ProfilePic:       u.ProfilePic,
		NativeLanguage:   u.NativeLanguage,
		LearningLanguage: u.LearningLanguage,
	}
}

// PublicProfile is the subset of a user embedded in friend listings.
type PublicProfile struct {
	ID               string `json:"id"`
	FullName         string `json:"fullName"`
	ProfilePic       string `json:"profilePic"`
	NativeLanguage   string `json:"nativeLanguage"`
	LearningLanguage string `json:"learningLanguage"`
}

const (
	FriendStatusPending  = "pending"
	FriendStatusAccepted = "accepted"
)

// FriendRequest represents the invitation workflow between two users.
type FriendRequest struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"senderId"`
	RecipientID string    `json:"recipientId"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Involves reports whether the request links a and b in either direction.
func (r FriendRequest) Involves(a, b string) bool {
	return (r.SenderID == a && r.RecipientID == b) || (r.SenderID == b && r.RecipientID == a)
}

// FriendRequestView joins a request with the profile of the other party.
// Sender is set for incoming requests, Recipient for outgoing ones.
type FriendRequestView struct {
	FriendRequest
	Sender    *PublicProfile `json:"sender,omitempty"`
	Recipient *PublicProfile `json:"recipient,omitempty"`
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
