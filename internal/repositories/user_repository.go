package repositories

import (
	"context"

	"github.com/SAP-F-2025/training-service/internal/models"
)

// UserRepository reads accounts from the identity provider; this service never owns user data
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.User, error)
	HasRole(ctx context.Context, id string, role models.UserRole) (bool, error)
}
