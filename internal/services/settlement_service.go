package services

import (
	"context"
	"log"
	"strings"

	"bazaar/internal/models"
	"bazaar/internal/repositories"

	"github.com/shopspring/decimal"
)

// WithdrawalRequest is a seller's payout request.
type WithdrawalRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
	IBAN   string  `json:"iban" validate:"required,max=42"`
}

// SettlementService computes what shops have earned and gates their payouts.
type SettlementService struct {
	store  repositories.Store
	events EventPublisher
}

// NewSettlementService creates a new SettlementService.
func NewSettlementService(store repositories.Store, events EventPublisher) *SettlementService {
	return &SettlementService{
		store:  store,
		events: events,
	}
}

// AvailableBalance is the total of the shop's delivered orders minus its pending and
// approved withdrawals.
func (s *SettlementService) AvailableBalance(ctx context.Context, seller Principal) (float64, error) {
	if err := seller.requireSeller(); err != nil {
		return 0, err
	}
	balance, err := availableBalance(ctx, s.store, seller.ShopID)
	if err != nil {
		return 0, err
	}
	return balance.InexactFloat64(), nil
}

func availableBalance(ctx context.Context, store repositories.Store, shopID string) (decimal.Decimal, error) {
	earned, err := store.Orders().SumDeliveredTotal(ctx, shopID)
	if err != nil {
		return decimal.Zero, err
	}
	withdrawn, err := store.Withdrawals().SumOutstanding(ctx, shopID)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromFloat(earned).Sub(decimal.NewFromFloat(withdrawn)).Round(2), nil
}

// RequestWithdrawal opens a pending payout. The shop row stays locked while the balance
// is checked so two requests cannot both spend the same money.
func (s *SettlementService) RequestWithdrawal(ctx context.Context, seller Principal, req WithdrawalRequest) (*models.Withdrawal, error) {
	if err := seller.requireSeller(); err != nil {
		return nil, err
	}
	iban := strings.ReplaceAll(strings.TrimSpace(req.IBAN), " ", "")
	amount := decimal.NewFromFloat(req.Amount).Round(2)
	if iban == "" || !amount.IsPositive() {
		return nil, ErrMissingFields
	}

	withdrawal := &models.Withdrawal{
		ShopID: seller.ShopID,
		Amount: amount.InexactFloat64(),
		IBAN:   strings.ToUpper(iban),
		Status: models.WithdrawalStatusPending,
	}
	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		if _, err := tx.Shops().LockByID(ctx, seller.ShopID); err != nil {
			return notFound(err, ErrNotShopOwner)
		}
		balance, err := availableBalance(ctx, tx, seller.ShopID)
		if err != nil {
			return err
		}
		if amount.GreaterThan(balance) {
			return ErrInsufficientBalance
		}
		return tx.Withdrawals().Create(ctx, withdrawal)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Shop %s requested a withdrawal of %.2f", seller.ShopID, withdrawal.Amount)
	publish(ctx, s.events, EventWithdrawalRequested, withdrawalEvent(withdrawal))
	return withdrawal, nil
}

// SetWithdrawalStatus approves or rejects a pending withdrawal. Admin only. Repeating the
// current decision changes nothing; reversing it is refused.
func (s *SettlementService) SetWithdrawalStatus(ctx context.Context, admin Principal, id string, status models.WithdrawalStatus) (*models.Withdrawal, error) {
	if err := admin.requireAdmin(); err != nil {
		return nil, err
	}
	if status != models.WithdrawalStatusApproved && status != models.WithdrawalStatusRejected {
		return nil, ErrInvalidStatus
	}

	withdrawal, err := s.store.Withdrawals().GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrWithdrawalNotFound)
	}
	if withdrawal.Status == status {
		return withdrawal, nil
	}

	from := withdrawal.Status
	if err := withdrawal.TransitionTo(status); err != nil {
		return nil, transitionError(err)
	}
	if err := s.store.Withdrawals().UpdateStatus(ctx, withdrawal.ID, from, withdrawal.Status, *withdrawal.ProcessedAt); err != nil {
		return nil, conflict(err)
	}

	log.Printf("Withdrawal %s %s by admin %s", withdrawal.ID, withdrawal.Status, admin.UserID)
	publish(ctx, s.events, EventWithdrawalStatusUpdated, withdrawalEvent(withdrawal))
	return withdrawal, nil
}

// ListShopWithdrawals retrieves the caller's own payout requests.
func (s *SettlementService) ListShopWithdrawals(ctx context.Context, seller Principal) ([]models.Withdrawal, error) {
	if err := seller.requireSeller(); err != nil {
		return nil, err
	}
	return s.store.Withdrawals().ListByShop(ctx, seller.ShopID)
}

// ListWithdrawals retrieves all payout requests, optionally only those in status.
func (s *SettlementService) ListWithdrawals(ctx context.Context, admin Principal, status models.WithdrawalStatus) ([]models.Withdrawal, error) {
	if err := admin.requireAdmin(); err != nil {
		return nil, err
	}
	switch status {
	case "", models.WithdrawalStatusPending, models.WithdrawalStatusApproved, models.WithdrawalStatusRejected:
	default:
		return nil, ErrInvalidStatus
	}
	return s.store.Withdrawals().List(ctx, status)
}

func withdrawalEvent(w *models.Withdrawal) map[string]interface{} {
	return map[string]interface{}{
		"withdrawalID": w.ID,
		"shopID":       w.ShopID,
		"amount":       w.Amount,
		"status":       w.Status,
	}
}
