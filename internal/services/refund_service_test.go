package services

import (
	"context"
	"errors"
	"testing"

	"bazaar/internal/models"
	"bazaar/internal/repositories"
	"bazaar/pkg/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRefundService_CancelCODOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seller := newSeller(t, store, "a")
	order := newOrder(t, store, seller, models.OrderStatusPending, models.PaymentMethodCOD, 40)
	svc := NewRefundService(store, nil, nil)

	result, err := svc.RequestRefund(ctx, buyer, order.ID, "ordered by mistake")
	require.NoError(t, err)
	assert.Nil(t, result.Refund)
	assert.Equal(t, models.OrderStatusCancelled, result.Order.Status)

	stored, err := store.Orders().GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, stored.Status)

	_, err = store.Refunds().GetByOrderID(ctx, order.ID)
	assert.True(t, errors.Is(err, repositories.ErrNotFound))
}

func TestRefundService_CancelCardOrderOpensRefund(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seller := newSeller(t, store, "a")
	order := newOrder(t, store, seller, models.OrderStatusProcessing, models.PaymentMethodCard, 75)

	events := new(MockPublisher)
	events.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	svc := NewRefundService(store, nil, events)

	result, err := svc.RequestRefund(ctx, buyer, order.ID, "arrived too late")
	require.NoError(t, err)
	require.NotNil(t, result.Refund)
	assert.Equal(t, 75.0, result.Refund.Amount)
	assert.Equal(t, models.RefundStatusPending, result.Refund.Status)
	assert.Equal(t, models.PaymentMethodCard, result.Refund.PaymentMethod)
	assert.Equal(t, models.OrderStatusCancelled, result.Order.Status)
	assert.LessOrEqual(t, result.Refund.Amount, order.Subtotal)

	events.AssertCalled(t, "Publish", mock.Anything, EventRefundRequested, mock.Anything)
	events.AssertCalled(t, "Publish", mock.Anything, EventOrderStatusUpdated, mock.Anything)
}

func TestRefundService_RequestRefundRules(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seller := newSeller(t, store, "a")
	svc := NewRefundService(store, nil, nil)

	pending := newOrder(t, store, seller, models.OrderStatusPending, models.PaymentMethodCard, 20)
	_, err := svc.RequestRefund(ctx, stranger, pending.ID, "not mine")
	assert.True(t, errors.Is(err, ErrNotOrderOwner))
	assert.True(t, errors.Is(err, ErrForbidden))

	_, err = svc.RequestRefund(ctx, buyer, pending.ID, "   ")
	assert.True(t, errors.Is(err, ErrMissingFields))

	paypal := newOrder(t, store, seller, models.OrderStatusPending, models.PaymentMethodPaypal, 20)
	_, err = svc.RequestRefund(ctx, buyer, paypal.ID, "changed my mind")
	assert.True(t, errors.Is(err, ErrInvalidPaymentMethod))

	shipped := newOrder(t, store, seller, models.OrderStatusShipped, models.PaymentMethodCard, 20)
	_, err = svc.RequestRefund(ctx, buyer, shipped.ID, "too slow")
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	_, err = svc.RequestRefund(ctx, buyer, "missing", "gone")
	assert.True(t, errors.Is(err, ErrOrderNotFound))

	_, err = svc.RequestRefund(ctx, buyer, pending.ID, "first")
	require.NoError(t, err)
	_, err = svc.RequestRefund(ctx, buyer, pending.ID, "second")
	assert.True(t, errors.Is(err, ErrInvalidTransition))
}

func openCardRefund(t *testing.T, store repositories.Store, seller Principal) *models.Refund {
	t.Helper()
	order := newOrder(t, store, seller, models.OrderStatusPending, models.PaymentMethodCard, 75)
	result, err := NewRefundService(store, nil, nil).RequestRefund(context.Background(), buyer, order.ID, "damaged")
	require.NoError(t, err)
	return result.Refund
}

func TestRefundService_ApproveReturnsPaymentOnce(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seller := newSeller(t, store, "a")
	refund := openCardRefund(t, store, seller)

	gateway := new(MockGateway)
	gateway.On("Refund", mock.Anything, "pi_card", 75.0).Return(&payment.Refund{ID: "re_1"}, nil)
	svc := NewRefundService(store, gateway, nil)

	updated, err := svc.UpdateRefundStatus(ctx, seller, refund.ID, models.RefundStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, models.RefundStatusApproved, updated.Status)

	again, err := svc.UpdateRefundStatus(ctx, seller, refund.ID, models.RefundStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, models.RefundStatusApproved, again.Status)
	gateway.AssertNumberOfCalls(t, "Refund", 1)

	order, err := store.Orders().GetByID(ctx, refund.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, order.Status)

	_, err = svc.UpdateRefundStatus(ctx, seller, refund.ID, models.RefundStatusRejected)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
}

func TestRefundService_GatewayFailureKeepsRefundPending(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seller := newSeller(t, store, "a")
	refund := openCardRefund(t, store, seller)

	gateway := new(MockGateway)
	gateway.On("Refund", mock.Anything, "pi_card", 75.0).Return(nil, errors.New("gateway timeout"))
	svc := NewRefundService(store, gateway, nil)

	_, err := svc.UpdateRefundStatus(ctx, seller, refund.ID, models.RefundStatusApproved)
	assert.True(t, errors.Is(err, ErrPaymentFailed))
	assert.True(t, errors.Is(err, ErrUpstream))

	stored, err := store.Refunds().GetByID(ctx, refund.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RefundStatusPending, stored.Status)
}

func TestRefundService_OnlyOwningShopDecides(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seller := newSeller(t, store, "a")
	other := newSeller(t, store, "b")
	refund := openCardRefund(t, store, seller)
	svc := NewRefundService(store, nil, nil)

	_, err := svc.UpdateRefundStatus(ctx, other, refund.ID, models.RefundStatusApproved)
	assert.True(t, errors.Is(err, ErrNotShopOwner))

	_, err = svc.UpdateRefundStatus(ctx, buyer, refund.ID, models.RefundStatusApproved)
	assert.True(t, errors.Is(err, ErrNotShopOwner))

	_, err = svc.UpdateRefundStatus(ctx, seller, refund.ID, "refunded")
	assert.True(t, errors.Is(err, ErrInvalidStatus))

	parked, err := svc.UpdateRefundStatus(ctx, seller, refund.ID, models.RefundStatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, models.RefundStatusProcessing, parked.Status)

	rejected, err := svc.UpdateRefundStatus(ctx, seller, refund.ID, models.RefundStatusRejected)
	require.NoError(t, err)
	assert.Equal(t, models.RefundStatusRejected, rejected.Status)
}

func TestRefundService_AdminMayDecideForAnyShop(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seller := newSeller(t, store, "a")
	refund := openCardRefund(t, store, seller)
	svc := NewRefundService(store, nil, nil)

	parked, err := svc.UpdateRefundStatus(ctx, admin, refund.ID, models.RefundStatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, models.RefundStatusProcessing, parked.Status)

	rejected, err := svc.UpdateRefundStatus(ctx, admin, refund.ID, models.RefundStatusRejected)
	require.NoError(t, err)
	assert.Equal(t, models.RefundStatusRejected, rejected.Status)
}

func TestRefundService_Listings(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sellerA := newSeller(t, store, "a")
	sellerB := newSeller(t, store, "b")
	openCardRefund(t, store, sellerA)
	openCardRefund(t, store, sellerB)
	svc := NewRefundService(store, nil, nil)

	mine, err := svc.ListBuyerRefunds(ctx, buyer)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	shopA, err := svc.ListShopRefunds(ctx, sellerA)
	require.NoError(t, err)
	require.Len(t, shopA, 1)
	assert.Equal(t, sellerA.ShopID, shopA[0].Order.ShopID)

	_, err = svc.ListShopRefunds(ctx, buyer)
	assert.True(t, errors.Is(err, ErrSellerOnly))
}

func TestRefundService_SharedCardIntentRefundsPerOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sellerA := newSeller(t, store, "a")
	sellerB := newSeller(t, store, "b")
	productA := newProduct(t, store, sellerA, 60, 5)
	productB := newProduct(t, store, sellerB, 40, 5)

	gateway := new(MockGateway)
	gateway.On("Refund", mock.Anything, "pi_cart", 40.0).Return(&payment.Refund{ID: "re_b", Amount: 4000}, nil).Once()
	gateway.On("Refund", mock.Anything, "pi_cart", 120.0).Return(&payment.Refund{ID: "re_a", Amount: 12000}, nil).Once()

	req := checkoutRequest(models.PaymentMethodCard,
		CartLine{ProductID: productA.ID, Quantity: 2},
		CartLine{ProductID: productB.ID, Quantity: 1})
	req.Payment.ID = "pi_cart"
	orders, err := NewCheckoutService(store, DefaultPricingPolicy(), false, gateway, nil).CreateOrders(ctx, buyer, req)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "pi_cart", orders[0].Payment.ID)
	assert.Equal(t, "pi_cart", orders[1].Payment.ID)

	svc := NewRefundService(store, gateway, nil)

	resultB, err := svc.RequestRefund(ctx, buyer, orders[1].ID, "no longer needed")
	require.NoError(t, err)
	_, err = svc.UpdateRefundStatus(ctx, sellerB, resultB.Refund.ID, models.RefundStatusApproved)
	require.NoError(t, err)
	gateway.AssertCalled(t, "Refund", mock.Anything, "pi_cart", 40.0)

	untouched, err := store.Orders().GetByID(ctx, orders[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, untouched.Status)

	resultA, err := svc.RequestRefund(ctx, buyer, orders[0].ID, "changed my mind")
	require.NoError(t, err)
	approved, err := svc.UpdateRefundStatus(ctx, sellerA, resultA.Refund.ID, models.RefundStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, models.RefundStatusApproved, approved.Status)

	gateway.AssertExpectations(t)
	gateway.AssertNumberOfCalls(t, "Refund", 2)
}
