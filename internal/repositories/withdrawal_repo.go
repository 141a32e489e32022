package repositories

import (
	"context"
	"time"

	"bazaar/internal/models"
)

// WithdrawalRepository defines the interface for withdrawal data access.
type WithdrawalRepository interface {
	Create(ctx context.Context, withdrawal *models.Withdrawal) error
	GetByID(ctx context.Context, id string) (*models.Withdrawal, error)
	ListByShop(ctx context.Context, shopID string) ([]models.Withdrawal, error)
	// List retrieves every withdrawal, optionally filtered by status.
	List(ctx context.Context, status models.WithdrawalStatus) ([]models.Withdrawal, error)
	// SumOutstanding adds up a shop's pending and approved withdrawals.
	SumOutstanding(ctx context.Context, shopID string) (float64, error)
	// UpdateStatus settles a withdrawal, failing with ErrConflict on a stale from.
	UpdateStatus(ctx context.Context, id string, from, to models.WithdrawalStatus, processedAt time.Time) error
}
