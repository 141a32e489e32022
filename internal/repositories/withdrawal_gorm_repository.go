package repositories

import (
	"context"
	"fmt"
	"time"

	"bazaar/internal/models"

	"gorm.io/gorm"
)

// GORMWithdrawalRepository is a GORM implementation of WithdrawalRepository.
type GORMWithdrawalRepository struct {
	db *gorm.DB
}

// NewGORMWithdrawalRepository creates a new instance of GORMWithdrawalRepository.
func NewGORMWithdrawalRepository(db *gorm.DB) *GORMWithdrawalRepository {
	return &GORMWithdrawalRepository{db: db}
}

// Create inserts a withdrawal request.
func (r *GORMWithdrawalRepository) Create(ctx context.Context, withdrawal *models.Withdrawal) error {
	if err := r.db.WithContext(ctx).Create(withdrawal).Error; err != nil {
		return fmt.Errorf("failed to create withdrawal: %w", translate(err))
	}
	return nil
}

// GetByID retrieves a single withdrawal.
func (r *GORMWithdrawalRepository) GetByID(ctx context.Context, id string) (*models.Withdrawal, error) {
	var withdrawal models.Withdrawal
	if err := r.db.WithContext(ctx).First(&withdrawal, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to get withdrawal %s: %w", id, translate(err))
	}
	return &withdrawal, nil
}

// ListByShop retrieves the withdrawals a shop requested.
func (r *GORMWithdrawalRepository) ListByShop(ctx context.Context, shopID string) ([]models.Withdrawal, error) {
	var withdrawals []models.Withdrawal
	if err := r.db.WithContext(ctx).Where("shop_id = ?", shopID).Order("created_at desc").Find(&withdrawals).Error; err != nil {
		return nil, fmt.Errorf("failed to list withdrawals of shop %s: %w", shopID, err)
	}
	return withdrawals, nil
}

// List implements WithdrawalRepository.
func (r *GORMWithdrawalRepository) List(ctx context.Context, status models.WithdrawalStatus) ([]models.Withdrawal, error) {
	var withdrawals []models.Withdrawal
	query := r.db.WithContext(ctx).Order("created_at desc")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Find(&withdrawals).Error; err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	return withdrawals, nil
}

// SumOutstanding implements WithdrawalRepository.
func (r *GORMWithdrawalRepository) SumOutstanding(ctx context.Context, shopID string) (float64, error) {
	var sum float64
	err := r.db.WithContext(ctx).Model(&models.Withdrawal{}).
		Where("shop_id = ? AND status IN ?", shopID, []models.WithdrawalStatus{models.WithdrawalStatusPending, models.WithdrawalStatusApproved}).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum withdrawals of shop %s: %w", shopID, err)
	}
	return sum, nil
}

// UpdateStatus implements WithdrawalRepository.
func (r *GORMWithdrawalRepository) UpdateStatus(ctx context.Context, id string, from, to models.WithdrawalStatus, processedAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Withdrawal{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{"status": to, "processed_at": processedAt})
	if res.Error != nil {
		return fmt.Errorf("failed to update status of withdrawal %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("withdrawal %s is no longer %s: %w", id, from, ErrConflict)
	}
	return nil
}
