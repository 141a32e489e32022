package repositories

import (
	"context"
	"fmt"
	"time"

	"bazaar/internal/models"

	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{db: db}
}

// Create implements OrderRepository.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", translate(err))
	}
	return nil
}

// GetByID retrieves an order and its items.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to get order %s: %w", id, translate(err))
	}
	return &order, nil
}

// ListByUser retrieves the orders a buyer placed, newest first.
func (r *GORMOrderRepository) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	return r.list(ctx, "user_id = ?", userID)
}

// ListByShop retrieves the orders a shop has to fulfil, newest first.
func (r *GORMOrderRepository) ListByShop(ctx context.Context, shopID string) ([]models.Order, error) {
	return r.list(ctx, "shop_id = ?", shopID)
}

// ListByCheckout retrieves the orders created by one checkout.
func (r *GORMOrderRepository) ListByCheckout(ctx context.Context, checkoutID string) ([]models.Order, error) {
	return r.list(ctx, "checkout_id = ?", checkoutID)
}

func (r *GORMOrderRepository) list(ctx context.Context, query string, arg string) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).Preload("Items").Where(query, arg).Order("created_at desc").Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus implements OrderRepository.
func (r *GORMOrderRepository) UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus, deliveredAt *time.Time) error {
	updates := map[string]interface{}{"status": to}
	if deliveredAt != nil {
		updates["delivered_at"] = deliveredAt
	}
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update status of order %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order %s is no longer %s: %w", id, from, ErrConflict)
	}
	return nil
}

// MarkItemReviewed implements OrderRepository.
func (r *GORMOrderRepository) MarkItemReviewed(ctx context.Context, orderID, productID string) error {
	res := r.db.WithContext(ctx).Model(&models.OrderItem{}).
		Where("order_id = ? AND product_id = ? AND reviewed = ?", orderID, productID, false).
		Update("reviewed", true)
	if res.Error != nil {
		return fmt.Errorf("failed to mark item %s of order %s reviewed: %w", productID, orderID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("item %s of order %s already reviewed: %w", productID, orderID, ErrConflict)
	}
	return nil
}

// SumDeliveredTotal implements OrderRepository.
func (r *GORMOrderRepository) SumDeliveredTotal(ctx context.Context, shopID string) (float64, error) {
	var sum float64
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("shop_id = ? AND status = ?", shopID, models.OrderStatusDelivered).
		Select("COALESCE(SUM(total), 0)").
		Scan(&sum).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum delivered orders of shop %s: %w", shopID, err)
	}
	return sum, nil
}

// Delete implements OrderRepository.
func (r *GORMOrderRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&models.Refund{}).Error; err != nil {
			return fmt.Errorf("failed to delete refunds of order %s: %w", id, err)
		}
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
			return fmt.Errorf("failed to delete items of order %s: %w", id, err)
		}
		res := tx.Delete(&models.Order{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete order %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("order with ID %s not found for deletion: %w", id, ErrNotFound)
		}
		return nil
	})
}

// GORMCheckoutRepository is a GORM implementation of CheckoutRepository.
type GORMCheckoutRepository struct {
	db *gorm.DB
}

// NewGORMCheckoutRepository creates a new instance of GORMCheckoutRepository.
func NewGORMCheckoutRepository(db *gorm.DB) *GORMCheckoutRepository {
	return &GORMCheckoutRepository{db: db}
}

// Create inserts a checkout. A reused idempotency key fails with ErrDuplicate.
func (r *GORMCheckoutRepository) Create(ctx context.Context, checkout *models.Checkout) error {
	if err := r.db.WithContext(ctx).Omit("Orders").Create(checkout).Error; err != nil {
		return fmt.Errorf("failed to create checkout: %w", translate(err))
	}
	return nil
}

// FindByKey retrieves the checkout a buyer made with an idempotency key, with its orders.
func (r *GORMCheckoutRepository) FindByKey(ctx context.Context, userID, key string) (*models.Checkout, error) {
	var checkout models.Checkout
	err := r.db.WithContext(ctx).
		Preload("Orders", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Preload("Orders.Items").
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&checkout).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find checkout for key %q: %w", key, translate(err))
	}
	return &checkout, nil
}
