package repositories

import (
	"context"

	"bazaar/internal/models"
)

// RefundRepository defines the interface for refund data access.
type RefundRepository interface {
	Create(ctx context.Context, refund *models.Refund) error
	// GetByID retrieves a refund with its order populated.
	GetByID(ctx context.Context, id string) (*models.Refund, error)
	GetByOrderID(ctx context.Context, orderID string) (*models.Refund, error)
	ListByUser(ctx context.Context, userID string) ([]models.Refund, error)
	// ListByShop retrieves refunds whose order belongs to shopID.
	ListByShop(ctx context.Context, shopID string) ([]models.Refund, error)
	// UpdateStatus moves a refund between statuses, failing with ErrConflict on a stale from.
	UpdateStatus(ctx context.Context, id string, from, to models.RefundStatus) error
}
