package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"bazaar/internal/models"
	"bazaar/internal/repositories"
)

// CouponInput carries the fields a seller sets when issuing a coupon.
type CouponInput struct {
	Code               string     `json:"code" validate:"required,min=3,max=50"`
	DiscountPercentage int        `json:"discount_percentage" validate:"required,min=1,max=99"`
	MinPrice           float64    `json:"min_price" validate:"gte=0"`
	MaxPrice           float64    `json:"max_price" validate:"gtefield=MinPrice"`
	Quantity           int        `json:"quantity" validate:"required,min=1"`
	ExpiryDate         *time.Time `json:"expiry_date"`
	ProductIDs         []string   `json:"product_ids"`
}

// CouponApplication is the outcome of a successful coupon check.
type CouponApplication struct {
	CouponID           string   `json:"-"`
	Code               string   `json:"code"`
	ShopID             string   `json:"shop_id"`
	DiscountPercentage int      `json:"discount_percentage"`
	ProductIDs         []string `json:"selected_products"`
}

// AppliesTo reports whether the coupon discounts productID of shopID.
func (a *CouponApplication) AppliesTo(shopID, productID string) bool {
	if a.ShopID != shopID {
		return false
	}
	if len(a.ProductIDs) == 0 {
		return true
	}
	for _, id := range a.ProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}

// CouponService validates and manages shop coupons.
type CouponService struct {
	coupons  repositories.CouponRepository
	products repositories.ProductRepository
	now      func() time.Time
}

// NewCouponService creates a new CouponService.
func NewCouponService(coupons repositories.CouponRepository, products repositories.ProductRepository) *CouponService {
	return &CouponService{
		coupons:  coupons,
		products: products,
		now:      time.Now,
	}
}

// Apply checks code against a cart subtotal. It never consumes a redemption; that
// happens when an order using the coupon is created.
func (s *CouponService) Apply(ctx context.Context, code string, cartSubtotal float64) (*CouponApplication, error) {
	return evaluateCoupon(ctx, s.coupons, code, cartSubtotal, s.now())
}

// evaluateCoupon runs the coupon rules in order: lookup, expiry, usage cap, price window.
// An expired coupon is switched to inactive as a side effect.
func evaluateCoupon(ctx context.Context, repo repositories.CouponRepository, code string, subtotal float64, now time.Time) (*CouponApplication, error) {
	coupon, err := repo.GetActiveByCode(ctx, code)
	if err != nil {
		return nil, notFound(err, ErrCouponNotFound)
	}

	if coupon.IsExpired(now) {
		if err := repo.Deactivate(ctx, coupon.ID); err != nil {
			log.Printf("Warning: failed to deactivate expired coupon %s: %v", coupon.Code, err)
		}
		return nil, ErrCouponExpired
	}
	if coupon.Exhausted() {
		return nil, ErrCouponLimitReached
	}
	if !coupon.InRange(subtotal) {
		return nil, ErrCouponOutOfRange
	}

	return &CouponApplication{
		CouponID:           coupon.ID,
		Code:               coupon.Code,
		ShopID:             coupon.ShopID,
		DiscountPercentage: coupon.DiscountPercentage,
		ProductIDs:         append([]string{}, coupon.ProductIDs...),
	}, nil
}

// CreateCoupon issues a coupon for the caller's shop. An empty product list covers every
// product the shop has at this moment.
func (s *CouponService) CreateCoupon(ctx context.Context, seller Principal, input CouponInput) (*models.Coupon, error) {
	if err := seller.requireSeller(); err != nil {
		return nil, err
	}
	code := models.NormalizeCouponCode(input.Code)
	if code == "" || input.DiscountPercentage < 1 || input.DiscountPercentage > 99 ||
		input.MinPrice < 0 || input.MaxPrice < input.MinPrice || input.Quantity < 1 {
		return nil, ErrInvalidCoupon
	}

	shopProducts, err := s.products.ListByShop(ctx, seller.ShopID)
	if err != nil {
		return nil, err
	}
	owned := make(map[string]bool, len(shopProducts))
	for _, p := range shopProducts {
		owned[p.ID] = true
	}

	productIDs := make([]string, 0, len(input.ProductIDs))
	for _, id := range input.ProductIDs {
		if !owned[id] {
			return nil, fmt.Errorf("%w: product %s does not belong to your shop", ErrInvalidCoupon, id)
		}
		productIDs = append(productIDs, id)
	}
	if len(productIDs) == 0 {
		if len(shopProducts) == 0 {
			return nil, fmt.Errorf("%w: the shop has no products to discount", ErrInvalidCoupon)
		}
		for _, p := range shopProducts {
			productIDs = append(productIDs, p.ID)
		}
	}

	coupon := &models.Coupon{
		Code:               code,
		ShopID:             seller.ShopID,
		DiscountPercentage: input.DiscountPercentage,
		MinPrice:           round2(input.MinPrice),
		MaxPrice:           round2(input.MaxPrice),
		Quantity:           input.Quantity,
		Status:             models.CouponStatusActive,
		ExpiryDate:         input.ExpiryDate,
		ProductIDs:         productIDs,
	}
	if err := s.coupons.Create(ctx, coupon); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrDuplicateCoupon
		}
		return nil, err
	}
	return coupon, nil
}

// ListShopCoupons retrieves the coupons of the caller's shop.
func (s *CouponService) ListShopCoupons(ctx context.Context, seller Principal) ([]models.Coupon, error) {
	if err := seller.requireSeller(); err != nil {
		return nil, err
	}
	return s.coupons.ListByShop(ctx, seller.ShopID)
}

// DeleteCoupon removes a coupon of the caller's shop.
func (s *CouponService) DeleteCoupon(ctx context.Context, seller Principal, id string) error {
	coupon, err := s.coupons.GetByID(ctx, id)
	if err != nil {
		return notFound(err, ErrCouponNotFound)
	}
	if !seller.CanManageShop(coupon.ShopID) {
		return ErrNotShopOwner
	}
	return notFound(s.coupons.Delete(ctx, id), ErrCouponNotFound)
}
