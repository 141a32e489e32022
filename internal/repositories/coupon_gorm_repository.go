package repositories

import (
	"context"
	"fmt"

	"bazaar/internal/models"

	"gorm.io/gorm"
)

// GORMCouponRepository is a GORM implementation of CouponRepository.
type GORMCouponRepository struct {
	db *gorm.DB
}

// NewGORMCouponRepository creates a new instance of GORMCouponRepository.
func NewGORMCouponRepository(db *gorm.DB) *GORMCouponRepository {
	return &GORMCouponRepository{db: db}
}

// Create creates a new coupon in the database.
func (r *GORMCouponRepository) Create(ctx context.Context, coupon *models.Coupon) error {
	if err := r.db.WithContext(ctx).Create(coupon).Error; err != nil {
		return fmt.Errorf("failed to create coupon %s: %w", coupon.Code, translate(err))
	}
	return nil
}

// GetByID retrieves a single coupon by its ID.
func (r *GORMCouponRepository) GetByID(ctx context.Context, id string) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.WithContext(ctx).First(&coupon, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to get coupon %s: %w", id, translate(err))
	}
	return &coupon, nil
}

// GetActiveByCode implements CouponRepository.
func (r *GORMCouponRepository) GetActiveByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Where("code = ? AND status = ?", models.NormalizeCouponCode(code), models.CouponStatusActive).
		First(&coupon).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get coupon %q: %w", code, translate(err))
	}
	return &coupon, nil
}

// ListByShop retrieves every coupon a shop has issued.
func (r *GORMCouponRepository) ListByShop(ctx context.Context, shopID string) ([]models.Coupon, error) {
	var coupons []models.Coupon
	if err := r.db.WithContext(ctx).Where("shop_id = ?", shopID).Order("created_at desc").Find(&coupons).Error; err != nil {
		return nil, fmt.Errorf("failed to list coupons of shop %s: %w", shopID, err)
	}
	return coupons, nil
}

// Deactivate flips a coupon to inactive.
func (r *GORMCouponRepository) Deactivate(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Model(&models.Coupon{}).
		Where("id = ?", id).
		Update("status", models.CouponStatusInactive).Error
	if err != nil {
		return fmt.Errorf("failed to deactivate coupon %s: %w", id, err)
	}
	return nil
}

// Redeem implements CouponRepository.
func (r *GORMCouponRepository) Redeem(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&models.Coupon{}).
		Where("id = ? AND used_quantity < quantity", id).
		Update("used_quantity", gorm.Expr("used_quantity + 1"))
	if res.Error != nil {
		return fmt.Errorf("failed to redeem coupon %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("coupon %s: %w", id, ErrLimitReached)
	}
	return nil
}

// Delete removes a coupon by its ID.
func (r *GORMCouponRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Coupon{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete coupon: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("coupon with ID %s not found for deletion: %w", id, ErrNotFound)
	}
	return nil
}
