package services

import (
	"errors"
	"fmt"

	"bazaar/internal/models"
	"bazaar/internal/repositories"
)

// Error kinds. Every domain error wraps exactly one of them so the HTTP layer can map it.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBusinessRule = errors.New("business rule violated")
	ErrConflict     = errors.New("conflict")
	ErrUpstream     = errors.New("upstream failure")
)

// Error is a domain error whose message is safe to show to clients.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

var (
	ErrMissingFields        = newError(ErrValidation, "missing required fields")
	ErrInvalidQuantity      = newError(ErrValidation, "quantity must be at least 1")
	ErrInvalidStatus        = newError(ErrValidation, "invalid status")
	ErrInvalidPaymentMethod = newError(ErrValidation, "invalid payment method")
	ErrInvalidRating        = newError(ErrValidation, "rating must be between 1 and 5")
	ErrInvalidCoupon        = newError(ErrValidation, "invalid coupon definition")
	ErrInvalidProduct       = newError(ErrValidation, "invalid product definition")
	ErrImmutableField       = newError(ErrValidation, "only the order status can be changed")

	ErrProductNotFound    = newError(ErrNotFound, "product not found")
	ErrOrderNotFound      = newError(ErrNotFound, "order not found")
	ErrCouponNotFound     = newError(ErrNotFound, "coupon not found")
	ErrRefundNotFound     = newError(ErrNotFound, "refund not found")
	ErrWithdrawalNotFound = newError(ErrNotFound, "withdrawal not found")
	ErrItemNotFound       = newError(ErrNotFound, "item not found in order")

	ErrInvalidCredentials = newError(ErrUnauthorized, "invalid credentials")
	ErrNotAuthenticated   = newError(ErrUnauthorized, "authentication required")

	ErrNotOrderOwner = newError(ErrForbidden, "you are not allowed to access this order")
	ErrNotShopOwner  = newError(ErrForbidden, "resource belongs to another shop")
	ErrSellerOnly    = newError(ErrForbidden, "only sellers can perform this action")
	ErrAdminOnly     = newError(ErrForbidden, "only admins can perform this action")
	ErrRoleForbidden = newError(ErrForbidden, "accounts can only register as buyer or seller")

	ErrCouponExpired       = newError(ErrBusinessRule, "coupon has expired")
	ErrCouponLimitReached  = newError(ErrBusinessRule, "coupon usage limit reached")
	ErrCouponOutOfRange    = newError(ErrBusinessRule, "cart total is outside the coupon's valid range")
	ErrInsufficientStock   = newError(ErrBusinessRule, "insufficient stock")
	ErrInsufficientBalance = newError(ErrBusinessRule, "insufficient balance")
	ErrInvalidTransition   = newError(ErrBusinessRule, "invalid status transition")
	ErrCancelViaRefund     = newError(ErrBusinessRule, "orders are cancelled through a refund request")
	ErrNotDelivered        = newError(ErrBusinessRule, "order has not been delivered")
	ErrAlreadyReviewed     = newError(ErrBusinessRule, "item has already been reviewed")
	ErrDeliveredOrder      = newError(ErrBusinessRule, "delivered orders can only be deleted by an admin")

	ErrDuplicateCoupon  = newError(ErrConflict, "coupon code already exists")
	ErrUsernameTaken    = newError(ErrConflict, "username already taken")
	ErrEmailTaken       = newError(ErrConflict, "email already registered")
	ErrConcurrentUpdate = newError(ErrConflict, "resource was modified concurrently, retry")

	ErrPaymentFailed = newError(ErrUpstream, "payment gateway request failed")
)

// notFound maps a repository miss onto target and passes any other error through.
func notFound(err error, target *Error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%w: %v", target, err)
	}
	return err
}

// transitionError wraps a model state machine refusal as ErrInvalidTransition.
func transitionError(err error) error {
	if errors.Is(err, models.ErrInvalidTransition) {
		return fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}
	return err
}

// conflict maps a stale conditional update onto ErrConcurrentUpdate.
func conflict(err error) error {
	if errors.Is(err, repositories.ErrConflict) {
		return fmt.Errorf("%w: %v", ErrConcurrentUpdate, err)
	}
	return err
}
