package repositories

import (
	"context"

	"bazaar/internal/models"
)

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	GetAll(ctx context.Context) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	ListByShop(ctx context.Context, shopID string) ([]models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error
	// Reserve takes quantity units out of stock and adds them to sold in one statement.
	// With allowOversell the stock is clamped at zero instead of failing with ErrInsufficientStock.
	Reserve(ctx context.Context, id string, quantity int, allowOversell bool) (*models.Product, error)
	// AddReview folds a rating into the product's review aggregate.
	AddReview(ctx context.Context, id string, rating float64) error
}
