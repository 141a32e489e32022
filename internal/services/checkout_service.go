package services

import (
	"context"
	"errors"
	"log"
	"time"

	"bazaar/internal/models"
	"bazaar/internal/repositories"
	"bazaar/pkg/payment"

	"github.com/shopspring/decimal"
)

// CartLine is one product entry of a checkout request. ShopID and Price are what the
// client saw; the stored product is authoritative for both.
type CartLine struct {
	ProductID  string  `json:"product_id" validate:"required"`
	ShopID     string  `json:"shop_id"`
	Quantity   int     `json:"quantity" validate:"required,min=1"`
	Price      float64 `json:"price"`
	CouponCode string  `json:"coupon_code"`
}

// CheckoutRequest is everything needed to turn a cart into orders.
type CheckoutRequest struct {
	IdempotencyKey string
	Shipping       *models.ShippingInfo
	Payment        *models.PaymentInfo
	Items          []CartLine
}

// PaymentGateway is the card processor the marketplace charges and refunds through.
type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, amount float64, currency string) (*payment.Intent, error)
	// Refund returns amount of a payment intent; zero or less refunds all of it.
	Refund(ctx context.Context, paymentIntentID string, amount float64) (*payment.Refund, error)
}

// ShopGroup is the slice of a cart sold by a single shop.
type ShopGroup struct {
	ShopID string
	Lines  []CartLine
}

// SplitCart groups cart lines by the shop owning each product, keeping the order in which
// shops first appear. Lines whose product is missing from products are skipped.
func SplitCart(lines []CartLine, products map[string]*models.Product) []ShopGroup {
	var groups []ShopGroup
	index := make(map[string]int)
	for _, line := range lines {
		product, ok := products[line.ProductID]
		if !ok {
			continue
		}
		i, seen := index[product.ShopID]
		if !seen {
			i = len(groups)
			index[product.ShopID] = i
			groups = append(groups, ShopGroup{ShopID: product.ShopID})
		}
		groups[i].Lines = append(groups[i].Lines, line)
	}
	return groups
}

// CheckoutService splits a cart into one order per shop.
type CheckoutService struct {
	store         repositories.Store
	pricing       PricingPolicy
	allowOversell bool
	gateway       PaymentGateway
	events        EventPublisher
	now           func() time.Time
}

// NewCheckoutService creates a new CheckoutService. gateway and events may be nil.
func NewCheckoutService(store repositories.Store, pricing PricingPolicy, allowOversell bool, gateway PaymentGateway, events EventPublisher) *CheckoutService {
	return &CheckoutService{
		store:         store,
		pricing:       pricing,
		allowOversell: allowOversell,
		gateway:       gateway,
		events:        events,
		now:           time.Now,
	}
}

// CreateOrders turns the cart into one pending order per shop. Orders, stock reservations
// and coupon redemptions of one call commit together or not at all. A repeated call with
// the same idempotency key returns the orders of the first successful call.
func (s *CheckoutService) CreateOrders(ctx context.Context, buyer Principal, req CheckoutRequest) ([]models.Order, error) {
	if err := buyer.requireUser(); err != nil {
		return nil, err
	}
	if err := validateCheckout(req); err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" {
		if orders, ok := s.replay(ctx, buyer, req.IdempotencyKey); ok {
			return orders, nil
		}
	}

	orders, err := s.createOrders(ctx, buyer, req)
	if err != nil {
		if req.IdempotencyKey != "" && errors.Is(err, repositories.ErrDuplicate) {
			// A concurrent retry with the same key won the race.
			if orders, ok := s.replay(ctx, buyer, req.IdempotencyKey); ok {
				return orders, nil
			}
		}
		s.reversePayment(ctx, req.Payment)
		return nil, err
	}

	for i := range orders {
		publish(ctx, s.events, EventOrderCreated, orderEvent(&orders[i]))
	}
	return orders, nil
}

func validateCheckout(req CheckoutRequest) error {
	if req.Shipping == nil || req.Payment == nil || len(req.Items) == 0 {
		return ErrMissingFields
	}
	switch req.Payment.Method {
	case models.PaymentMethodCard, models.PaymentMethodPaypal, models.PaymentMethodCOD:
	case "":
		return ErrMissingFields
	default:
		return ErrInvalidPaymentMethod
	}
	for _, line := range req.Items {
		if line.ProductID == "" {
			return ErrMissingFields
		}
		if line.Quantity < 1 {
			return ErrInvalidQuantity
		}
	}
	return nil
}

func (s *CheckoutService) replay(ctx context.Context, buyer Principal, key string) ([]models.Order, bool) {
	checkout, err := s.store.Checkouts().FindByKey(ctx, buyer.UserID, key)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			log.Printf("Warning: idempotency lookup failed for key %s: %v", key, err)
		}
		return nil, false
	}
	log.Printf("Replaying checkout %s for idempotency key %s", checkout.ID, key)
	return checkout.Orders, true
}

func (s *CheckoutService) createOrders(ctx context.Context, buyer Principal, req CheckoutRequest) ([]models.Order, error) {
	var orders []models.Order
	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		checkout := &models.Checkout{UserID: buyer.UserID}
		if req.IdempotencyKey != "" {
			key := req.IdempotencyKey
			checkout.IdempotencyKey = &key
		}
		if err := tx.Checkouts().Create(ctx, checkout); err != nil {
			return err
		}

		products := make(map[string]*models.Product, len(req.Items))
		cartTotal := decimal.Zero
		for _, line := range req.Items {
			product, ok := products[line.ProductID]
			if !ok {
				p, err := tx.Products().GetByID(ctx, line.ProductID)
				if err != nil {
					return notFound(err, ErrProductNotFound)
				}
				product = p
				products[line.ProductID] = product
			}
			cartTotal = cartTotal.Add(decimal.NewFromFloat(product.UnitPrice()).Mul(decimal.NewFromInt(int64(line.Quantity))))
		}

		pricer := &linePricer{tx: tx, cartTotal: cartTotal.Round(2).InexactFloat64(), now: s.now(), applied: map[string]*CouponApplication{}}
		for _, group := range SplitCart(req.Items, products) {
			order, err := s.buildOrder(ctx, tx, pricer, checkout.ID, buyer, req, group, products)
			if err != nil {
				return err
			}
			if err := tx.Orders().Create(ctx, order); err != nil {
				return err
			}
			orders = append(orders, *order)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *CheckoutService) buildOrder(ctx context.Context, tx repositories.Store, pricer *linePricer, checkoutID string, buyer Principal,
	req CheckoutRequest, group ShopGroup, products map[string]*models.Product) (*models.Order, error) {
	order := &models.Order{
		CheckoutID: checkoutID,
		UserID:     buyer.UserID,
		ShopID:     group.ShopID,
		Shipping:   *req.Shipping,
		Payment:    *req.Payment,
		Status:     models.OrderStatusPending,
	}

	subtotal := decimal.Zero
	discount := decimal.Zero
	redeemed := make(map[string]bool)
	for _, line := range group.Lines {
		product := products[line.ProductID]
		unit := product.UnitPrice()

		final, code, err := pricer.price(ctx, line, product, redeemed)
		if err != nil {
			return nil, err
		}
		if _, err := reserveStock(ctx, tx.Products(), product.ID, line.Quantity, s.allowOversell); err != nil {
			return nil, err
		}

		qty := decimal.NewFromInt(int64(line.Quantity))
		subtotal = subtotal.Add(decimal.NewFromFloat(final).Mul(qty))
		discount = discount.Add(decimal.NewFromFloat(unit).Sub(decimal.NewFromFloat(final)).Mul(qty))
		order.Items = append(order.Items, models.OrderItem{
			ProductID:  product.ID,
			Name:       product.Name,
			Quantity:   line.Quantity,
			Price:      unit,
			FinalPrice: final,
			CouponCode: code,
		})
	}

	breakdown := s.pricing.Breakdown(subtotal)
	order.Subtotal = breakdown.Subtotal
	order.Tax = breakdown.Tax
	order.ShippingCost = breakdown.ShippingCost
	order.Total = breakdown.Total
	order.Discount = discount.Round(2).InexactFloat64()
	return order, nil
}

// linePricer resolves coupon codes once per checkout and redeems each coupon once per order.
type linePricer struct {
	tx        repositories.Store
	cartTotal float64
	now       time.Time
	applied   map[string]*CouponApplication // nil entry: code checked and not usable
}

// price returns the unit price after the line's coupon and the code actually applied.
// A coupon that cannot be used is ignored rather than failing the checkout.
func (p *linePricer) price(ctx context.Context, line CartLine, product *models.Product, redeemed map[string]bool) (float64, string, error) {
	unit := product.UnitPrice()
	if line.CouponCode == "" {
		return unit, "", nil
	}

	code := models.NormalizeCouponCode(line.CouponCode)
	app, checked := p.applied[code]
	if !checked {
		var err error
		app, err = evaluateCoupon(ctx, p.tx.Coupons(), code, p.cartTotal, p.now)
		if err != nil {
			var domainErr *Error
			if !errors.As(err, &domainErr) {
				return 0, "", err
			}
			log.Printf("Coupon %s not applied: %v", code, err)
			app = nil
		}
		p.applied[code] = app
	}
	if app == nil || !app.AppliesTo(product.ShopID, product.ID) {
		return unit, "", nil
	}

	if !redeemed[app.CouponID] {
		if err := p.tx.Coupons().Redeem(ctx, app.CouponID); err != nil {
			if !errors.Is(err, repositories.ErrLimitReached) {
				return 0, "", err
			}
			log.Printf("Coupon %s ran out during checkout", code)
			p.applied[code] = nil
			return unit, "", nil
		}
		redeemed[app.CouponID] = true
	}
	return discountedPrice(unit, app.DiscountPercentage), code, nil
}

// reversePayment refunds a captured card payment whose orders could not be created.
func (s *CheckoutService) reversePayment(ctx context.Context, info *models.PaymentInfo) {
	if s.gateway == nil || info == nil || info.Method != models.PaymentMethodCard || info.ID == "" {
		return
	}
	if _, err := s.gateway.Refund(ctx, info.ID, 0); err != nil {
		log.Printf("ERROR: checkout failed and payment %s could not be reversed: %v", info.ID, err)
		return
	}
	log.Printf("Reversed payment %s after failed checkout", info.ID)
}

func orderEvent(order *models.Order) map[string]interface{} {
	return map[string]interface{}{
		"orderID": order.ID,
		"userID":  order.UserID,
		"shopID":  order.ShopID,
		"status":  order.Status,
		"total":   order.Total,
	}
}

