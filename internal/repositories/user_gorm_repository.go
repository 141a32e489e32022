package repositories

import (
	"context"
	"fmt"

	"bazaar/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Create creates a new user in the database.
func (r *GORMUserRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", translate(err))
	}
	return nil
}

// GetByUsername retrieves a user by their username from the database.
func (r *GORMUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(ctx, "username = ?", username)
}

// GetByEmail retrieves a user by their email from the database.
func (r *GORMUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "email = ?", email)
}

// GetByID retrieves a user by their ID from the database.
func (r *GORMUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

// SetShop links a seller account to the shop it operates.
func (r *GORMUserRepository) SetShop(ctx context.Context, userID, shopID string) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("shop_id", shopID)
	if res.Error != nil {
		return fmt.Errorf("failed to set shop of user %s: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user with ID %s: %w", userID, ErrNotFound)
	}
	return nil
}

func (r *GORMUserRepository) first(ctx context.Context, query string, arg string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, query, arg).Error; err != nil {
		return nil, fmt.Errorf("failed to get user by %q: %w", arg, translate(err))
	}
	return &user, nil
}

// GORMShopRepository is a GORM implementation of ShopRepository.
type GORMShopRepository struct {
	db *gorm.DB
}

// NewGORMShopRepository creates a new instance of GORMShopRepository.
func NewGORMShopRepository(db *gorm.DB) *GORMShopRepository {
	return &GORMShopRepository{db: db}
}

// Create creates a new shop in the database.
func (r *GORMShopRepository) Create(ctx context.Context, shop *models.Shop) error {
	if err := r.db.WithContext(ctx).Create(shop).Error; err != nil {
		return fmt.Errorf("failed to create shop: %w", translate(err))
	}
	return nil
}

// GetByID retrieves a single shop by its ID.
func (r *GORMShopRepository) GetByID(ctx context.Context, id string) (*models.Shop, error) {
	var shop models.Shop
	if err := r.db.WithContext(ctx).First(&shop, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to get shop %s: %w", id, translate(err))
	}
	return &shop, nil
}

// LockByID implements ShopRepository.
func (r *GORMShopRepository) LockByID(ctx context.Context, id string) (*models.Shop, error) {
	var shop models.Shop
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&shop, "id = ?", id).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock shop %s: %w", id, translate(err))
	}
	return &shop, nil
}
