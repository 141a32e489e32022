package services

import (
	"context"
	"fmt"
	"strings"

	"bazaar/pkg/payment"
)

// PaymentService starts card payments with the gateway before checkout.
type PaymentService struct {
	gateway  PaymentGateway
	currency string
}

// NewPaymentService creates a new PaymentService charging in currency unless told otherwise.
func NewPaymentService(gateway PaymentGateway, currency string) *PaymentService {
	if currency == "" {
		currency = "usd"
	}
	return &PaymentService{
		gateway:  gateway,
		currency: currency,
	}
}

// CreateIntent opens a payment intent the buyer confirms client side.
func (s *PaymentService) CreateIntent(ctx context.Context, buyer Principal, amount float64, currency string) (*payment.Intent, error) {
	if err := buyer.requireUser(); err != nil {
		return nil, err
	}
	if round2(amount) <= 0 {
		return nil, ErrMissingFields
	}
	if currency == "" {
		currency = s.currency
	}
	if s.gateway == nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, payment.ErrNotConfigured)
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, round2(amount), strings.ToLower(currency))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}
	return intent, nil
}
