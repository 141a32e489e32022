package repositories

import (
	"context"

	"bazaar/internal/models"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	SetShop(ctx context.Context, userID, shopID string) error
}

// ShopRepository defines the interface for shop data access.
type ShopRepository interface {
	Create(ctx context.Context, shop *models.Shop) error
	GetByID(ctx context.Context, id string) (*models.Shop, error)
	// LockByID reads the shop holding a row lock until the surrounding transaction ends.
	LockByID(ctx context.Context, id string) (*models.Shop, error)
}
