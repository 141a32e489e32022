package repositories

import (
	"context"
	"time"

	"bazaar/internal/models"
)

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	// Create inserts the order together with its items.
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	ListByShop(ctx context.Context, shopID string) ([]models.Order, error)
	ListByCheckout(ctx context.Context, checkoutID string) ([]models.Order, error)
	// UpdateStatus moves an order from one status to another, failing with ErrConflict
	// when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus, deliveredAt *time.Time) error
	// MarkItemReviewed flags an unreviewed line as reviewed, failing with ErrConflict if it already was.
	MarkItemReviewed(ctx context.Context, orderID, productID string) error
	// SumDeliveredTotal adds up the totals of a shop's delivered orders.
	SumDeliveredTotal(ctx context.Context, shopID string) (float64, error)
	// Delete removes an order, its items and any refund opened on it.
	Delete(ctx context.Context, id string) error
}

// CheckoutRepository defines the interface for checkout data access.
type CheckoutRepository interface {
	Create(ctx context.Context, checkout *models.Checkout) error
	FindByKey(ctx context.Context, userID, key string) (*models.Checkout, error)
}
