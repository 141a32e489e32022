package repositories

import (
	"context"

	"bazaar/internal/models"
)

// CouponRepository defines the interface for coupon data access.
type CouponRepository interface {
	Create(ctx context.Context, coupon *models.Coupon) error
	GetByID(ctx context.Context, id string) (*models.Coupon, error)
	// GetActiveByCode looks a coupon up by its normalized code among active coupons.
	GetActiveByCode(ctx context.Context, code string) (*models.Coupon, error)
	ListByShop(ctx context.Context, shopID string) ([]models.Coupon, error)
	Deactivate(ctx context.Context, id string) error
	// Redeem consumes one redemption, failing with ErrLimitReached once the cap is hit.
	Redeem(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}
