package repositories_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bazaar/internal/database"
	"bazaar/internal/models"
	"bazaar/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *repositories.GORMStore {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return repositories.NewGORMStore(db)
}

func seedProduct(t *testing.T, store repositories.Store, shopID string, price float64, stock int) *models.Product {
	t.Helper()
	product := &models.Product{ShopID: shopID, Name: "Widget", Price: price, Stock: stock}
	require.NoError(t, store.Products().Create(context.Background(), product))
	return product
}

func TestProductRepository_ReserveStrict(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	product := seedProduct(t, store, "shop-1", 10, 5)

	updated, err := store.Products().Reserve(ctx, product.ID, 3, false)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Stock)
	assert.Equal(t, 3, updated.Sold)

	_, err = store.Products().Reserve(ctx, product.ID, 3, false)
	assert.True(t, errors.Is(err, repositories.ErrInsufficientStock))

	current, err := store.Products().GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, current.Stock)
	assert.Equal(t, 3, current.Sold)
}

func TestProductRepository_ReserveClamp(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	product := seedProduct(t, store, "shop-1", 10, 2)

	updated, err := store.Products().Reserve(ctx, product.ID, 5, true)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Stock)
	assert.Equal(t, 5, updated.Sold)
}

func TestProductRepository_ReserveMissingProduct(t *testing.T) {
	store := newStore(t)
	_, err := store.Products().Reserve(context.Background(), "missing", 1, false)
	assert.True(t, errors.Is(err, repositories.ErrNotFound))
}

func TestProductRepository_ConcurrentReservationsNeverOversell(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	product := seedProduct(t, store, "shop-1", 10, 5)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Products().Reserve(ctx, product.ID, 1, false); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	current, err := store.Products().GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 0, current.Stock)
	assert.Equal(t, 5, current.Sold)
}

func TestProductRepository_UpdateKeepsOwnerAndSold(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	product := seedProduct(t, store, "shop-1", 10, 5)
	_, err := store.Products().Reserve(ctx, product.ID, 2, false)
	require.NoError(t, err)

	product.ShopID = "shop-2"
	product.Sold = 0
	product.Name = "Renamed"
	product.Stock = 7
	require.NoError(t, store.Products().Update(ctx, product))

	current, err := store.Products().GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", current.Name)
	assert.Equal(t, 7, current.Stock)
	assert.Equal(t, "shop-1", current.ShopID)
	assert.Equal(t, 2, current.Sold)
}

func TestProductRepository_AddReview(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	product := seedProduct(t, store, "shop-1", 10, 5)

	require.NoError(t, store.Products().AddReview(ctx, product.ID, 4))
	require.NoError(t, store.Products().AddReview(ctx, product.ID, 5))

	current, err := store.Products().GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, current.NumOfReviews)
	assert.InDelta(t, 4.5, current.Ratings, 0.001)
}

func TestCouponRepository_RedeemHonoursCap(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	coupon := &models.Coupon{Code: "SAVE10", ShopID: "shop-1", DiscountPercentage: 10, MaxPrice: 500, Quantity: 2, Status: models.CouponStatusActive}
	require.NoError(t, store.Coupons().Create(ctx, coupon))

	require.NoError(t, store.Coupons().Redeem(ctx, coupon.ID))
	require.NoError(t, store.Coupons().Redeem(ctx, coupon.ID))
	err := store.Coupons().Redeem(ctx, coupon.ID)
	assert.True(t, errors.Is(err, repositories.ErrLimitReached))

	current, err := store.Coupons().GetByID(ctx, coupon.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, current.UsedQuantity)
}

func TestCouponRepository_CodeLookupAndDuplicates(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	coupon := &models.Coupon{Code: "SAVE10", ShopID: "shop-1", DiscountPercentage: 10, Quantity: 1, Status: models.CouponStatusActive, ProductIDs: []string{"p-1"}}
	require.NoError(t, store.Coupons().Create(ctx, coupon))

	found, err := store.Coupons().GetActiveByCode(ctx, " save10")
	require.NoError(t, err)
	assert.Equal(t, []string{"p-1"}, found.ProductIDs)

	err = store.Coupons().Create(ctx, &models.Coupon{Code: "SAVE10", ShopID: "shop-2", Status: models.CouponStatusActive})
	assert.True(t, errors.Is(err, repositories.ErrDuplicate))

	require.NoError(t, store.Coupons().Deactivate(ctx, coupon.ID))
	_, err = store.Coupons().GetActiveByCode(ctx, "SAVE10")
	assert.True(t, errors.Is(err, repositories.ErrNotFound))
}

func seedOrder(t *testing.T, store repositories.Store, shopID string, status models.OrderStatus, total float64) *models.Order {
	t.Helper()
	order := &models.Order{
		UserID:   "buyer-1",
		ShopID:   shopID,
		Status:   status,
		Subtotal: total,
		Total:    total,
		Payment:  models.PaymentInfo{Method: models.PaymentMethodCard},
		Items:    []models.OrderItem{{ProductID: "p-1", Name: "Widget", Quantity: 1, Price: total, FinalPrice: total}},
	}
	require.NoError(t, store.Orders().Create(context.Background(), order))
	return order
}

func TestOrderRepository_UpdateStatusIsConditional(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	order := seedOrder(t, store, "shop-1", models.OrderStatusPending, 50)

	require.NoError(t, store.Orders().UpdateStatus(ctx, order.ID, models.OrderStatusPending, models.OrderStatusProcessing, nil))
	err := store.Orders().UpdateStatus(ctx, order.ID, models.OrderStatusPending, models.OrderStatusCancelled, nil)
	assert.True(t, errors.Is(err, repositories.ErrConflict))

	current, err := store.Orders().GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusProcessing, current.Status)
	assert.Len(t, current.Items, 1)
}

func TestOrderRepository_MarkItemReviewedOnce(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	order := seedOrder(t, store, "shop-1", models.OrderStatusDelivered, 50)

	require.NoError(t, store.Orders().MarkItemReviewed(ctx, order.ID, "p-1"))
	err := store.Orders().MarkItemReviewed(ctx, order.ID, "p-1")
	assert.True(t, errors.Is(err, repositories.ErrConflict))
}

func TestOrderRepository_SumDeliveredTotal(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	seedOrder(t, store, "shop-1", models.OrderStatusDelivered, 120)
	seedOrder(t, store, "shop-1", models.OrderStatusDelivered, 80)
	seedOrder(t, store, "shop-1", models.OrderStatusShipped, 500)
	seedOrder(t, store, "shop-2", models.OrderStatusDelivered, 999)

	sum, err := store.Orders().SumDeliveredTotal(ctx, "shop-1")
	require.NoError(t, err)
	assert.InDelta(t, 200, sum, 0.001)

	sum, err = store.Orders().SumDeliveredTotal(ctx, "shop-3")
	require.NoError(t, err)
	assert.Zero(t, sum)
}

func TestOrderRepository_DeleteRemovesRefund(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	order := seedOrder(t, store, "shop-1", models.OrderStatusCancelled, 75)
	refund := &models.Refund{OrderID: order.ID, UserID: "buyer-1", Amount: 75, Reason: "changed my mind", Status: models.RefundStatusPending}
	require.NoError(t, store.Refunds().Create(ctx, refund))

	require.NoError(t, store.Orders().Delete(ctx, order.ID))

	_, err := store.Orders().GetByID(ctx, order.ID)
	assert.True(t, errors.Is(err, repositories.ErrNotFound))
	_, err = store.Refunds().GetByID(ctx, refund.ID)
	assert.True(t, errors.Is(err, repositories.ErrNotFound))
}

func TestRefundRepository_ListByShopJoinsOrders(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	mine := seedOrder(t, store, "shop-1", models.OrderStatusCancelled, 75)
	theirs := seedOrder(t, store, "shop-2", models.OrderStatusCancelled, 40)
	require.NoError(t, store.Refunds().Create(ctx, &models.Refund{OrderID: mine.ID, UserID: "buyer-1", Amount: 75, Status: models.RefundStatusPending}))
	require.NoError(t, store.Refunds().Create(ctx, &models.Refund{OrderID: theirs.ID, UserID: "buyer-1", Amount: 40, Status: models.RefundStatusPending}))

	refunds, err := store.Refunds().ListByShop(ctx, "shop-1")
	require.NoError(t, err)
	require.Len(t, refunds, 1)
	assert.Equal(t, mine.ID, refunds[0].OrderID)
	require.NotNil(t, refunds[0].Order)
	assert.Equal(t, "shop-1", refunds[0].Order.ShopID)

	refunds, err = store.Refunds().ListByUser(ctx, "buyer-1")
	require.NoError(t, err)
	assert.Len(t, refunds, 2)
}

func TestWithdrawalRepository_SumOutstanding(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	for _, w := range []models.Withdrawal{
		{ShopID: "shop-1", Amount: 30, Status: models.WithdrawalStatusPending},
		{ShopID: "shop-1", Amount: 20, Status: models.WithdrawalStatusApproved},
		{ShopID: "shop-1", Amount: 500, Status: models.WithdrawalStatusRejected},
		{ShopID: "shop-2", Amount: 70, Status: models.WithdrawalStatusPending},
	} {
		w := w
		require.NoError(t, store.Withdrawals().Create(ctx, &w))
	}

	sum, err := store.Withdrawals().SumOutstanding(ctx, "shop-1")
	require.NoError(t, err)
	assert.InDelta(t, 50, sum, 0.001)

	pending, err := store.Withdrawals().List(ctx, models.WithdrawalStatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	all, err := store.Withdrawals().List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestWithdrawalRepository_UpdateStatusIsConditional(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	w := &models.Withdrawal{ShopID: "shop-1", Amount: 30, IBAN: "DE89370400440532013000", Status: models.WithdrawalStatusPending}
	require.NoError(t, store.Withdrawals().Create(ctx, w))

	now := time.Now()
	require.NoError(t, store.Withdrawals().UpdateStatus(ctx, w.ID, models.WithdrawalStatusPending, models.WithdrawalStatusApproved, now))
	err := store.Withdrawals().UpdateStatus(ctx, w.ID, models.WithdrawalStatusPending, models.WithdrawalStatusRejected, now)
	assert.True(t, errors.Is(err, repositories.ErrConflict))
}

func TestStore_TransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	product := seedProduct(t, store, "shop-1", 10, 5)

	boom := errors.New("boom")
	err := store.Transaction(ctx, func(tx repositories.Store) error {
		if _, err := tx.Products().Reserve(ctx, product.ID, 4, false); err != nil {
			return err
		}
		return boom
	})
	assert.True(t, errors.Is(err, boom))

	current, err := store.Products().GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, current.Stock)
	assert.Equal(t, 0, current.Sold)
}

func TestCheckoutRepository_FindByKey(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	key := "key-1"
	checkout := &models.Checkout{UserID: "buyer-1", IdempotencyKey: &key}
	require.NoError(t, store.Checkouts().Create(ctx, checkout))

	order := &models.Order{CheckoutID: checkout.ID, UserID: "buyer-1", ShopID: "shop-1", Status: models.OrderStatusPending}
	require.NoError(t, store.Orders().Create(ctx, order))

	found, err := store.Checkouts().FindByKey(ctx, "buyer-1", key)
	require.NoError(t, err)
	require.Len(t, found.Orders, 1)
	assert.Equal(t, order.ID, found.Orders[0].ID)

	err = store.Checkouts().Create(ctx, &models.Checkout{UserID: "buyer-1", IdempotencyKey: &key})
	assert.True(t, errors.Is(err, repositories.ErrDuplicate))

	_, err = store.Checkouts().FindByKey(ctx, "buyer-2", key)
	assert.True(t, errors.Is(err, repositories.ErrNotFound))
}
