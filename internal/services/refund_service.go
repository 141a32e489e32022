package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"bazaar/internal/models"
	"bazaar/internal/repositories"
)

// RefundResult is the outcome of a cancellation request. Refund is nil when the order was
// paid on delivery and nothing has to be returned.
type RefundResult struct {
	Order  *models.Order  `json:"order"`
	Refund *models.Refund `json:"refund,omitempty"`
}

// RefundService handles order cancellations and the refunds they open.
type RefundService struct {
	store   repositories.Store
	gateway PaymentGateway
	events  EventPublisher
}

// NewRefundService creates a new RefundService. gateway and events may be nil.
func NewRefundService(store repositories.Store, gateway PaymentGateway, events EventPublisher) *RefundService {
	return &RefundService{
		store:   store,
		gateway: gateway,
		events:  events,
	}
}

// RequestRefund cancels one of the buyer's orders. A card order also gets a pending refund
// of its subtotal; a cash on delivery order is only cancelled.
func (s *RefundService) RequestRefund(ctx context.Context, buyer Principal, orderID, reason string) (*RefundResult, error) {
	if err := buyer.requireUser(); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrMissingFields
	}

	order, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, notFound(err, ErrOrderNotFound)
	}
	if order.UserID != buyer.UserID {
		return nil, ErrNotOrderOwner
	}
	method := order.Payment.Method
	if method != models.PaymentMethodCard && method != models.PaymentMethodCOD {
		return nil, ErrInvalidPaymentMethod
	}

	from := order.Status
	if err := order.TransitionTo(models.OrderStatusCancelled); err != nil {
		return nil, transitionError(err)
	}

	result := &RefundResult{Order: order}
	err = s.store.Transaction(ctx, func(tx repositories.Store) error {
		if err := tx.Orders().UpdateStatus(ctx, order.ID, from, order.Status, nil); err != nil {
			return conflict(err)
		}
		if method != models.PaymentMethodCard {
			return nil
		}
		refund := &models.Refund{
			OrderID:       order.ID,
			UserID:        buyer.UserID,
			PaymentMethod: method,
			Amount:        order.Subtotal,
			Reason:        reason,
			Status:        models.RefundStatusPending,
		}
		if err := tx.Refunds().Create(ctx, refund); err != nil {
			return conflict(err)
		}
		result.Refund = refund
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Order %s cancelled by buyer %s", order.ID, buyer.UserID)
	publish(ctx, s.events, EventOrderStatusUpdated, map[string]interface{}{
		"orderID": order.ID,
		"shopID":  order.ShopID,
		"from":    from,
		"to":      order.Status,
	})
	if result.Refund != nil {
		publish(ctx, s.events, EventRefundRequested, refundEvent(result.Refund, order.ShopID))
	}
	return result, nil
}

// UpdateRefundStatus moves a refund on behalf of the shop that sold the order. Approving
// makes sure the order is cancelled and returns card payments through the gateway.
// Setting the status a refund already has changes nothing.
func (s *RefundService) UpdateRefundStatus(ctx context.Context, seller Principal, id string, status models.RefundStatus) (*models.Refund, error) {
	if err := seller.requireUser(); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	refund, err := s.store.Refunds().GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrRefundNotFound)
	}
	order := refund.Order
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if !seller.CanManageShop(order.ShopID) {
		return nil, ErrNotShopOwner
	}
	if refund.Status == status {
		return refund, nil
	}

	from := refund.Status
	if err := refund.TransitionTo(status); err != nil {
		return nil, transitionError(err)
	}

	err = s.store.Transaction(ctx, func(tx repositories.Store) error {
		if err := tx.Refunds().UpdateStatus(ctx, refund.ID, from, refund.Status); err != nil {
			return conflict(err)
		}
		if refund.Status != models.RefundStatusApproved {
			return nil
		}
		if order.Status != models.OrderStatusCancelled {
			if err := tx.Orders().UpdateStatus(ctx, order.ID, order.Status, models.OrderStatusCancelled, nil); err != nil {
				return conflict(err)
			}
			order.Status = models.OrderStatusCancelled
		}
		// Last step so a gateway failure rolls the approval back.
		return s.returnPayment(ctx, refund, order)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Refund %s moved from %s to %s", refund.ID, from, refund.Status)
	publish(ctx, s.events, EventRefundStatusUpdated, refundEvent(refund, order.ShopID))
	return refund, nil
}

func (s *RefundService) returnPayment(ctx context.Context, refund *models.Refund, order *models.Order) error {
	if s.gateway == nil || refund.PaymentMethod != models.PaymentMethodCard || order.Payment.ID == "" {
		return nil
	}
	// One intent pays for every order of a cart, so only this refund's amount goes back.
	gatewayRefund, err := s.gateway.Refund(ctx, order.Payment.ID, refund.Amount)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}
	log.Printf("Gateway refund %s issued for order %s", gatewayRefund.ID, order.ID)
	return nil
}

// ListBuyerRefunds retrieves the refunds the caller opened.
func (s *RefundService) ListBuyerRefunds(ctx context.Context, buyer Principal) ([]models.Refund, error) {
	if err := buyer.requireUser(); err != nil {
		return nil, err
	}
	return s.store.Refunds().ListByUser(ctx, buyer.UserID)
}

// ListShopRefunds retrieves the refunds opened on the caller's shop orders.
func (s *RefundService) ListShopRefunds(ctx context.Context, seller Principal) ([]models.Refund, error) {
	if err := seller.requireSeller(); err != nil {
		return nil, err
	}
	return s.store.Refunds().ListByShop(ctx, seller.ShopID)
}

func refundEvent(refund *models.Refund, shopID string) map[string]interface{} {
	return map[string]interface{}{
		"refundID": refund.ID,
		"orderID":  refund.OrderID,
		"shopID":   shopID,
		"amount":   refund.Amount,
		"status":   refund.Status,
	}
}
