package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"bazaar/internal/models"
	"bazaar/internal/repositories"
)

// OrderPatch is a partial order update. Only Status may change; the other fields are
// accepted so that a client echoing them back unchanged is not rejected.
type OrderPatch struct {
	Status       *models.OrderStatus `json:"status"`
	ShopID       *string             `json:"shop_id"`
	UserID       *string             `json:"user_id"`
	Subtotal     *float64            `json:"subtotal"`
	Tax          *float64            `json:"tax"`
	ShippingCost *float64            `json:"shipping_cost"`
	Total        *float64            `json:"total"`
}

// OrderService drives orders through their lifecycle once checkout has created them.
type OrderService struct {
	store  repositories.Store
	events EventPublisher
}

// NewOrderService creates a new OrderService.
func NewOrderService(store repositories.Store, events EventPublisher) *OrderService {
	return &OrderService{
		store:  store,
		events: events,
	}
}

// GetOrder retrieves an order visible to the caller: its buyer, its shop or an admin.
func (s *OrderService) GetOrder(ctx context.Context, p Principal, id string) (*models.Order, error) {
	if err := p.requireUser(); err != nil {
		return nil, err
	}
	order, err := s.store.Orders().GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrOrderNotFound)
	}
	if order.UserID != p.UserID && !p.CanManageShop(order.ShopID) {
		return nil, ErrNotOrderOwner
	}
	return order, nil
}

// ListBuyerOrders retrieves the orders the caller placed.
func (s *OrderService) ListBuyerOrders(ctx context.Context, buyer Principal) ([]models.Order, error) {
	if err := buyer.requireUser(); err != nil {
		return nil, err
	}
	return s.store.Orders().ListByUser(ctx, buyer.UserID)
}

// ListShopOrders retrieves the orders the caller's shop has to fulfil.
func (s *OrderService) ListShopOrders(ctx context.Context, seller Principal) ([]models.Order, error) {
	if err := seller.requireSeller(); err != nil {
		return nil, err
	}
	return s.store.Orders().ListByShop(ctx, seller.ShopID)
}

// UpdateOrder applies a status patch on behalf of the order's shop or an admin.
// Cancelling goes through the refund workflow instead.
func (s *OrderService) UpdateOrder(ctx context.Context, p Principal, id string, patch OrderPatch) (*models.Order, error) {
	if err := p.requireUser(); err != nil {
		return nil, err
	}
	order, err := s.store.Orders().GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrOrderNotFound)
	}
	if !p.CanManageShop(order.ShopID) {
		return nil, ErrNotShopOwner
	}
	if patch.changesImmutable(order) {
		return nil, ErrImmutableField
	}
	if patch.Status == nil {
		return nil, ErrMissingFields
	}

	next := *patch.Status
	switch {
	case !next.Valid():
		return nil, ErrInvalidStatus
	case next == order.Status:
		return order, nil
	case next == models.OrderStatusCancelled:
		return nil, ErrCancelViaRefund
	}

	from := order.Status
	if err := order.TransitionTo(next); err != nil {
		return nil, transitionError(err)
	}
	if err := s.store.Orders().UpdateStatus(ctx, order.ID, from, order.Status, order.DeliveredAt); err != nil {
		return nil, conflict(err)
	}
	log.Printf("Order %s moved from %s to %s", order.ID, from, order.Status)

	publish(ctx, s.events, EventOrderStatusUpdated, map[string]interface{}{
		"orderID": order.ID,
		"shopID":  order.ShopID,
		"from":    from,
		"to":      order.Status,
	})
	return s.store.Orders().GetByID(ctx, order.ID)
}

func (patch OrderPatch) changesImmutable(order *models.Order) bool {
	differs := func(v *float64, current float64) bool {
		return v != nil && round2(*v) != round2(current)
	}
	return (patch.ShopID != nil && *patch.ShopID != order.ShopID) ||
		(patch.UserID != nil && *patch.UserID != order.UserID) ||
		differs(patch.Subtotal, order.Subtotal) ||
		differs(patch.Tax, order.Tax) ||
		differs(patch.ShippingCost, order.ShippingCost) ||
		differs(patch.Total, order.Total)
}

// DeleteOrder removes an order. Its buyer, its shop and admins may delete it, but once
// delivered it counts towards the shop's balance and only an admin may remove it.
func (s *OrderService) DeleteOrder(ctx context.Context, p Principal, id string) error {
	if err := p.requireUser(); err != nil {
		return err
	}
	order, err := s.store.Orders().GetByID(ctx, id)
	if err != nil {
		return notFound(err, ErrOrderNotFound)
	}
	if order.UserID != p.UserID && !p.CanManageShop(order.ShopID) {
		return ErrNotOrderOwner
	}
	if order.Status == models.OrderStatusDelivered && !p.IsAdmin() {
		return ErrDeliveredOrder
	}
	if err := s.store.Orders().Delete(ctx, id); err != nil {
		return notFound(err, ErrOrderNotFound)
	}
	log.Printf("Order %s deleted by %s", id, p.UserID)
	return nil
}

// ReviewItem rates a product of one of the caller's delivered orders. Each line can be
// reviewed once.
func (s *OrderService) ReviewItem(ctx context.Context, buyer Principal, orderID, productID string, rating int) (*models.Order, error) {
	if err := buyer.requireUser(); err != nil {
		return nil, err
	}
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}
	order, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, notFound(err, ErrOrderNotFound)
	}
	if order.UserID != buyer.UserID {
		return nil, ErrNotOrderOwner
	}
	if order.Status != models.OrderStatusDelivered {
		return nil, ErrNotDelivered
	}
	item, ok := order.Item(productID)
	if !ok {
		return nil, ErrItemNotFound
	}
	if item.Reviewed {
		return nil, ErrAlreadyReviewed
	}

	err = s.store.Transaction(ctx, func(tx repositories.Store) error {
		if err := tx.Orders().MarkItemReviewed(ctx, orderID, productID); err != nil {
			if errors.Is(err, repositories.ErrConflict) {
				return fmt.Errorf("%w: %v", ErrAlreadyReviewed, err)
			}
			return err
		}
		return tx.Products().AddReview(ctx, productID, float64(rating))
	})
	if err != nil {
		return nil, notFound(err, ErrProductNotFound)
	}
	item.Reviewed = true
	return order, nil
}
