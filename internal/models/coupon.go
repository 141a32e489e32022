package models

import (
	"strings"
	"time"
)

// CouponStatus tells whether a coupon can still be applied.
type CouponStatus string

const (
	CouponStatusActive   CouponStatus = "active"
	CouponStatusInactive CouponStatus = "inactive"
)

// Coupon is a percentage discount offered by a shop.
type Coupon struct {
	BaseModel
	Code               string       `json:"code" gorm:"type:varchar(50);uniqueIndex;not null"`
	ShopID             string       `json:"shop_id" gorm:"type:varchar(36);index;not null"`
	DiscountPercentage int          `json:"discount_percentage"`
	MinPrice           float64      `json:"min_price"`
	MaxPrice           float64      `json:"max_price"`
	Quantity           int          `json:"quantity"`
	UsedQuantity       int          `json:"used_quantity"`
	Status             CouponStatus `json:"status" gorm:"type:varchar(20);index"`
	ExpiryDate         *time.Time   `json:"expiry_date,omitempty"`
	ProductIDs         []string     `json:"product_ids" gorm:"type:text;serializer:json"`
}

// NormalizeCouponCode returns the canonical form codes are stored and looked up in.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsExpired reports whether the coupon expiry date is before now.
func (c *Coupon) IsExpired(now time.Time) bool {
	return c.ExpiryDate != nil && c.ExpiryDate.Before(now)
}

// Exhausted reports whether every redemption has been used.
func (c *Coupon) Exhausted() bool {
	return c.UsedQuantity >= c.Quantity
}

// InRange reports whether subtotal falls inside [MinPrice, MaxPrice].
func (c *Coupon) InRange(subtotal float64) bool {
	return subtotal >= c.MinPrice && subtotal <= c.MaxPrice
}
