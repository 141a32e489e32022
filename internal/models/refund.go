package models

import "fmt"

// RefundStatus is a step of the refund workflow.
type RefundStatus string

const (
	RefundStatusPending    RefundStatus = "pending"
	RefundStatusProcessing RefundStatus = "processing"
	RefundStatusApproved   RefundStatus = "approved"
	RefundStatusRejected   RefundStatus = "rejected"
)

// processing is a side state the seller can park a pending refund in.
var refundTransitions = map[RefundStatus][]RefundStatus{
	RefundStatusPending:    {RefundStatusProcessing, RefundStatusApproved, RefundStatusRejected},
	RefundStatusProcessing: {RefundStatusPending, RefundStatusApproved, RefundStatusRejected},
}

// Valid reports whether s is a known refund status.
func (s RefundStatus) Valid() bool {
	switch s {
	case RefundStatusPending, RefundStatusProcessing, RefundStatusApproved, RefundStatusRejected:
		return true
	}
	return false
}

// CanTransitionTo reports whether a refund may move from s to next.
func (s RefundStatus) CanTransitionTo(next RefundStatus) bool {
	for _, allowed := range refundTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Refund is a money-back request opened when a card-paid order is cancelled.
type Refund struct {
	BaseModel
	OrderID       string        `json:"order_id" gorm:"type:varchar(36);uniqueIndex;not null"`
	Order         *Order        `json:"order,omitempty" gorm:"foreignKey:OrderID"`
	UserID        string        `json:"user_id" gorm:"type:varchar(36);index;not null"`
	PaymentMethod PaymentMethod `json:"payment_method" gorm:"type:varchar(20)"`
	Amount        float64       `json:"amount"`
	Reason        string        `json:"reason"`
	Status        RefundStatus  `json:"status" gorm:"type:varchar(20);index"`
}

// TransitionTo moves the refund to next or returns ErrInvalidTransition.
func (r *Refund) TransitionTo(next RefundStatus) error {
	if !r.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: refund %s cannot move from %s to %s", ErrInvalidTransition, r.ID, r.Status, next)
	}
	r.Status = next
	return nil
}
