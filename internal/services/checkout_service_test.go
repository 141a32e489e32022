package services

import (
	"context"
	"errors"
	"testing"

	"bazaar/internal/models"
	"bazaar/internal/repositories"
	"bazaar/pkg/payment"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func shippingInfo() *models.ShippingInfo {
	return &models.ShippingInfo{FullName: "Ada Buyer", Address: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US"}
}

func checkoutRequest(method models.PaymentMethod, lines ...CartLine) CheckoutRequest {
	return CheckoutRequest{
		Shipping: shippingInfo(),
		Payment:  &models.PaymentInfo{Method: method},
		Items:    lines,
	}
}

func stockOf(t *testing.T, store repositories.Store, id string) (int, int) {
	t.Helper()
	product, err := store.Products().GetByID(context.Background(), id)
	require.NoError(t, err)
	return product.Stock, product.Sold
}

func TestCheckoutService_SplitsCartPerShop(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sellerA := newSeller(t, store, "a")
	sellerB := newSeller(t, store, "b")
	productA := newProduct(t, store, sellerA, 60, 10)
	productB := newProduct(t, store, sellerB, 20, 10)

	events := new(MockPublisher)
	events.On("Publish", mock.Anything, EventOrderCreated, mock.Anything).Return(nil)
	svc := NewCheckoutService(store, DefaultPricingPolicy(), false, nil, events)

	orders, err := svc.CreateOrders(ctx, buyer, checkoutRequest(models.PaymentMethodCOD,
		CartLine{ProductID: productA.ID, ShopID: sellerA.ShopID, Quantity: 2, Price: 60},
		CartLine{ProductID: productB.ID, ShopID: sellerB.ShopID, Quantity: 2, Price: 20},
	))
	require.NoError(t, err)
	require.Len(t, orders, 2)

	a, b := orders[0], orders[1]
	assert.Equal(t, sellerA.ShopID, a.ShopID)
	assert.Equal(t, 120.0, a.Subtotal)
	assert.Equal(t, 9.6, a.Tax)
	assert.Equal(t, 0.0, a.ShippingCost)
	assert.Equal(t, 129.6, a.Total)

	assert.Equal(t, sellerB.ShopID, b.ShopID)
	assert.Equal(t, 40.0, b.Subtotal)
	assert.Equal(t, 3.2, b.Tax)
	assert.Equal(t, 9.99, b.ShippingCost)
	assert.Equal(t, 53.19, b.Total)

	for _, order := range orders {
		assert.Equal(t, models.OrderStatusPending, order.Status)
		assert.Equal(t, buyer.UserID, order.UserID)
		assert.Equal(t, "Springfield", order.Shipping.City)
		assert.Equal(t, a.CheckoutID, order.CheckoutID)
	}

	stock, sold := stockOf(t, store, productA.ID)
	assert.Equal(t, 8, stock)
	assert.Equal(t, 2, sold)
	stock, sold = stockOf(t, store, productB.ID)
	assert.Equal(t, 8, stock)
	assert.Equal(t, 2, sold)

	events.AssertNumberOfCalls(t, "Publish", 2)
}

func TestCheckoutService_GroupsByProductOwnerNotClaimedShop(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sellerA := newSeller(t, store, "a")
	sellerB := newSeller(t, store, "b")
	productA := newProduct(t, store, sellerA, 10, 10)
	svc := NewCheckoutService(store, DefaultPricingPolicy(), false, nil, nil)

	orders, err := svc.CreateOrders(ctx, buyer, checkoutRequest(models.PaymentMethodCOD,
		CartLine{ProductID: productA.ID, ShopID: sellerB.ShopID, Quantity: 1, Price: 0.01},
	))
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, sellerA.ShopID, orders[0].ShopID)
	assert.Equal(t, 10.0, orders[0].Items[0].FinalPrice)
}

func TestCheckoutService_IsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sellerA := newSeller(t, store, "a")
	sellerB := newSeller(t, store, "b")
	productA := newProduct(t, store, sellerA, 60, 10)
	productB := newProduct(t, store, sellerB, 20, 1)
	svc := NewCheckoutService(store, DefaultPricingPolicy(), false, nil, nil)

	_, err := svc.CreateOrders(ctx, buyer, checkoutRequest(models.PaymentMethodCOD,
		CartLine{ProductID: productA.ID, Quantity: 2},
		CartLine{ProductID: productB.ID, Quantity: 5},
	))
	assert.True(t, errors.Is(err, ErrInsufficientStock))

	stock, sold := stockOf(t, store, productA.ID)
	assert.Equal(t, 10, stock)
	assert.Equal(t, 0, sold)

	orders, err := store.Orders().ListByUser(ctx, buyer.UserID)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCheckoutService_MissingProduct(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sellerA := newSeller(t, store, "a")
	productA := newProduct(t, store, sellerA, 60, 10)
	svc := NewCheckoutService(store, DefaultPricingPolicy(), false, nil, nil)

	_, err := svc.CreateOrders(ctx, buyer, checkoutRequest(models.PaymentMethodCOD,
		CartLine{ProductID: productA.ID, Quantity: 1},
		CartLine{ProductID: "missing", Quantity: 1},
	))
	assert.True(t, errors.Is(err, ErrProductNotFound))

	stock, _ := stockOf(t, store, productA.ID)
	assert.Equal(t, 10, stock)
}

func TestCheckoutService_ClampsWhenOversellAllowed(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seller := newSeller(t, store, "a")
	product := newProduct(t, store, seller, 10, 1)
	svc := NewCheckoutService(store, DefaultPricingPolicy(), true, nil, nil)

	_, err := svc.CreateOrders(ctx, buyer, checkoutRequest(models.PaymentMethodCOD, CartLine{ProductID: product.ID, Quantity: 3}))
	require.NoError(t, err)

	stock, sold := stockOf(t, store, product.ID)
	assert.Equal(t, 0, stock)
	assert.Equal(t, 3, sold)
}

func TestCheckoutService_Validation(t *testing.T) {
	ctx := context.Background()
	svc := NewCheckoutService(newTestStore(t), DefaultPricingPolicy(), false, nil, nil)

	_, err := svc.CreateOrders(ctx, buyer, CheckoutRequest{Payment: &models.PaymentInfo{Method: models.PaymentMethodCOD}, Items: []CartLine{{ProductID: "p", Quantity: 1}}})
	assert.True(t, errors.Is(err, ErrMissingFields))

	_, err = svc.CreateOrders(ctx, buyer, checkoutRequest(models.PaymentMethodCOD))
	assert.True(t, errors.Is(err, ErrMissingFields))

	_, err = svc.CreateOrders(ctx, buyer, checkoutRequest("bitcoin", CartLine{ProductID: "p", Quantity: 1}))
	assert.True(t, errors.Is(err, ErrInvalidPaymentMethod))

	_, err = svc.CreateOrders(ctx, buyer, checkoutRequest(models.PaymentMethodCOD, CartLine{ProductID: "p", Quantity: 0}))
	assert.True(t, errors.Is(err, ErrInvalidQuantity))

	_, err = svc.CreateOrders(ctx, Principal{}, checkoutRequest(models.PaymentMethodCOD, CartLine{ProductID: "p", Quantity: 1}))
	assert.True(t, errors.Is(err, ErrNotAuthenticated))
}

func TestCheckoutService_AppliesAndRedeemsCoupons(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sellerA := newSeller(t, store, "a")
	sellerB := newSeller(t, store, "b")
	productA := newProduct(t, store, sellerA, 60, 10)
	productB := newProduct(t, store, sellerB, 20, 10)
	coupon := &models.Coupon{Code: "SAVE10", ShopID: sellerA.ShopID, DiscountPercentage: 10, MinPrice: 0, MaxPrice: 1000,
		Quantity: 5, Status: models.CouponStatusActive, ProductIDs: []string{productA.ID}}
	require.NoError(t, store.Coupons().Create(ctx, coupon))
	svc := NewCheckoutService(store, DefaultPricingPolicy(), false, nil, nil)

	orders, err := svc.CreateOrders(ctx, buyer, checkoutRequest(models.PaymentMethodCOD,
		CartLine{ProductID: productA.ID, Quantity: 2, CouponCode: "save10"},
		CartLine{ProductID: productB.ID, Quantity: 2, CouponCode: "SAVE10"},
	))
	require.NoError(t, err)
	require.Len(t, orders, 2)

	a, b := orders[0], orders[1]
	assert.Equal(t, 54.0, a.Items[0].FinalPrice)
	assert.Equal(t, 60.0, a.Items[0].Price)
	assert.Equal(t, "SAVE10", a.Items[0].CouponCode)
	assert.Equal(t, 108.0, a.Subtotal)
	assert.Equal(t, 12.0, a.Discount)
	assert.Equal(t, 8.64, a.Tax)
	assert.Equal(t, 116.64, a.Total)

	// Another shop's coupon is ignored, not an error.
	assert.Equal(t, 20.0, b.Items[0].FinalPrice)
	assert.Empty(t, b.Items[0].CouponCode)
	assert.Equal(t, 53.19, b.Total)

	redeemed, err := store.Coupons().GetByID(ctx, coupon.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, redeemed.UsedQuantity)
}

func TestCheckoutService_AbsorbsUnusableCoupon(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seller := newSeller(t, store, "a")
	product := newProduct(t, store, seller, 30, 10)
	coupon := &models.Coupon{Code: "SAVE10", ShopID: seller.ShopID, DiscountPercentage: 10, MinPrice: 100, MaxPrice: 500,
		Quantity: 5, Status: models.CouponStatusActive}
	require.NoError(t, store.Coupons().Create(ctx, coupon))
	svc := NewCheckoutService(store, DefaultPricingPolicy(), false, nil, nil)

	orders, err := svc.CreateOrders(ctx, buyer, checkoutRequest(models.PaymentMethodCOD,
		CartLine{ProductID: product.ID, Quantity: 1, CouponCode: "SAVE10"},
		CartLine{ProductID: product.ID, Quantity: 1, CouponCode: "UNKNOWN"},
	))
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, 60.0, orders[0].Subtotal)
	assert.Zero(t, orders[0].Discount)

	current, err := store.Coupons().GetByID(ctx, coupon.ID)
	require.NoError(t, err)
	assert.Zero(t, current.UsedQuantity)
}

func TestCheckoutService_IdempotencyKeyReplaysFirstResult(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seller := newSeller(t, store, "a")
	product := newProduct(t, store, seller, 25, 10)
	svc := NewCheckoutService(store, DefaultPricingPolicy(), false, nil, nil)

	req := checkoutRequest(models.PaymentMethodCOD, CartLine{ProductID: product.ID, Quantity: 2})
	req.IdempotencyKey = "cart-42"

	first, err := svc.CreateOrders(ctx, buyer, req)
	require.NoError(t, err)
	second, err := svc.CreateOrders(ctx, buyer, req)
	require.NoError(t, err)

	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Len(t, second[0].Items, 1)

	stock, sold := stockOf(t, store, product.ID)
	assert.Equal(t, 8, stock)
	assert.Equal(t, 2, sold)

	// The key is scoped to the buyer.
	other, err := svc.CreateOrders(ctx, stranger, req)
	require.NoError(t, err)
	assert.NotEqual(t, first[0].ID, other[0].ID)
}

func TestCheckoutService_ReversesCardPaymentOnFailure(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seller := newSeller(t, store, "a")
	product := newProduct(t, store, seller, 25, 1)

	gateway := new(MockGateway)
	gateway.On("Refund", mock.Anything, "pi_123", 0.0).Return(&payment.Refund{ID: "re_1"}, nil)
	svc := NewCheckoutService(store, DefaultPricingPolicy(), false, gateway, nil)

	req := checkoutRequest(models.PaymentMethodCard, CartLine{ProductID: product.ID, Quantity: 2})
	req.Payment.ID = "pi_123"

	_, err := svc.CreateOrders(ctx, buyer, req)
	assert.True(t, errors.Is(err, ErrInsufficientStock))
	gateway.AssertCalled(t, "Refund", mock.Anything, "pi_123", 0.0)
}

func TestSplitCart_PreservesShopEncounterOrder(t *testing.T) {
	products := map[string]*models.Product{
		"p-1": {ShopID: "shop-b"},
		"p-2": {ShopID: "shop-a"},
		"p-3": {ShopID: "shop-b"},
	}
	groups := SplitCart([]CartLine{{ProductID: "p-1"}, {ProductID: "p-2"}, {ProductID: "p-3"}, {ProductID: "p-9"}}, products)

	require.Len(t, groups, 2)
	assert.Equal(t, "shop-b", groups[0].ShopID)
	assert.Len(t, groups[0].Lines, 2)
	assert.Equal(t, "shop-a", groups[1].ShopID)
}

func TestPricingPolicy_Breakdown(t *testing.T) {
	policy := DefaultPricingPolicy()

	atThreshold := policy.Breakdown(decimal.NewFromFloat(100))
	assert.Equal(t, 9.99, atThreshold.ShippingCost)
	assert.Equal(t, 117.99, atThreshold.Total)

	above := policy.Breakdown(decimal.NewFromFloat(100.01))
	assert.Zero(t, above.ShippingCost)

	assert.Equal(t, 8.99, discountedPrice(9.99, 10))
}
