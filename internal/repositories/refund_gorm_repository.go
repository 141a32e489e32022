package repositories

import (
	"context"
	"fmt"

	"bazaar/internal/models"

	"gorm.io/gorm"
)

// GORMRefundRepository is a GORM implementation of RefundRepository.
type GORMRefundRepository struct {
	db *gorm.DB
}

// NewGORMRefundRepository creates a new instance of GORMRefundRepository.
func NewGORMRefundRepository(db *gorm.DB) *GORMRefundRepository {
	return &GORMRefundRepository{db: db}
}

// Create inserts a refund. A second refund for the same order fails with ErrDuplicate.
func (r *GORMRefundRepository) Create(ctx context.Context, refund *models.Refund) error {
	if err := r.db.WithContext(ctx).Omit("Order").Create(refund).Error; err != nil {
		return fmt.Errorf("failed to create refund: %w", translate(err))
	}
	return nil
}

// GetByID implements RefundRepository.
func (r *GORMRefundRepository) GetByID(ctx context.Context, id string) (*models.Refund, error) {
	var refund models.Refund
	if err := r.db.WithContext(ctx).Preload("Order").First(&refund, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to get refund %s: %w", id, translate(err))
	}
	return &refund, nil
}

// GetByOrderID retrieves the refund opened on an order.
func (r *GORMRefundRepository) GetByOrderID(ctx context.Context, orderID string) (*models.Refund, error) {
	var refund models.Refund
	if err := r.db.WithContext(ctx).First(&refund, "order_id = ?", orderID).Error; err != nil {
		return nil, fmt.Errorf("failed to get refund of order %s: %w", orderID, translate(err))
	}
	return &refund, nil
}

// ListByUser retrieves the refunds a buyer requested.
func (r *GORMRefundRepository) ListByUser(ctx context.Context, userID string) ([]models.Refund, error) {
	var refunds []models.Refund
	err := r.db.WithContext(ctx).Preload("Order").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&refunds).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list refunds of user %s: %w", userID, err)
	}
	return refunds, nil
}

// ListByShop implements RefundRepository.
func (r *GORMRefundRepository) ListByShop(ctx context.Context, shopID string) ([]models.Refund, error) {
	var refunds []models.Refund
	err := r.db.WithContext(ctx).Preload("Order").
		Joins("JOIN orders ON orders.id = refunds.order_id").
		Where("orders.shop_id = ?", shopID).
		Order("refunds.created_at desc").
		Find(&refunds).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list refunds of shop %s: %w", shopID, err)
	}
	return refunds, nil
}

// UpdateStatus implements RefundRepository.
func (r *GORMRefundRepository) UpdateStatus(ctx context.Context, id string, from, to models.RefundStatus) error {
	res := r.db.WithContext(ctx).Model(&models.Refund{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return fmt.Errorf("failed to update status of refund %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("refund %s is no longer %s: %w", id, from, ErrConflict)
	}
	return nil
}
