package repositories

import (
	"context"

	"github.com/lingolink/backend/internal/models"
)

// UserRepository defines the data access contract for the user directory.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	Update(ctx context.Context, user models.User) error
	ListRecommended(ctx context.Context, userID string) ([]models.User, error)
	ListFriends(ctx context.Context, userID string) ([]models.PublicProfile, error)
}
