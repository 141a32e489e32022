package models

import (
	"fmt"
	"time"
)

// WithdrawalStatus is a step of a payout request.
type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "pending"
	WithdrawalStatusApproved WithdrawalStatus = "approved"
	WithdrawalStatusRejected WithdrawalStatus = "rejected"
)

// Withdrawal is a seller's request to be paid out part of their balance.
type Withdrawal struct {
	BaseModel
	ShopID      string           `json:"shop_id" gorm:"type:varchar(36);index;not null"`
	Amount      float64          `json:"amount"`
	IBAN        string           `json:"iban" gorm:"type:varchar(34)"`
	Status      WithdrawalStatus `json:"status" gorm:"type:varchar(20);index"`
	ProcessedAt *time.Time       `json:"processed_at,omitempty"`
}

// TransitionTo settles a pending withdrawal. Approved and rejected are terminal.
func (w *Withdrawal) TransitionTo(next WithdrawalStatus) error {
	if w.Status != WithdrawalStatusPending || (next != WithdrawalStatusApproved && next != WithdrawalStatusRejected) {
		return fmt.Errorf("%w: withdrawal %s cannot move from %s to %s", ErrInvalidTransition, w.ID, w.Status, next)
	}
	now := time.Now()
	w.Status = next
	w.ProcessedAt = &now
	return nil
}
