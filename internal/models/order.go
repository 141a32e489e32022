package models

import (
	"fmt"
	"time"
)

// OrderStatus is a step of the order lifecycle.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether an order may move from s to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PaymentMethod is how the buyer pays for an order.
type PaymentMethod string

const (
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodPaypal PaymentMethod = "paypal"
	PaymentMethodCOD    PaymentMethod = "cod"
)

// ShippingInfo is the address captured when the order is placed.
type ShippingInfo struct {
	FullName   string `json:"full_name" validate:"required"`
	Address    string `json:"address" validate:"required"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code" validate:"required"`
	Country    string `json:"country" validate:"required"`
	Phone      string `json:"phone"`
}

// PaymentInfo is the payment snapshot taken at order time.
type PaymentInfo struct {
	Method PaymentMethod `json:"method" gorm:"type:varchar(20)" validate:"required,oneof=card paypal cod"`
	Status string        `json:"status" gorm:"type:varchar(30)"`
	ID     string        `json:"id" gorm:"type:varchar(100)"` // gateway payment intent id
}

// OrderItem is a single line of an order.
type OrderItem struct {
	ID         uint    `json:"-" gorm:"primaryKey"`
	OrderID    string  `json:"-" gorm:"type:varchar(36);index"`
	ProductID  string  `json:"product_id" gorm:"type:varchar(36);index"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`       // unit price before coupons
	FinalPrice float64 `json:"final_price"` // unit price after coupons
	CouponCode string  `json:"coupon_code,omitempty" gorm:"type:varchar(50)"`
	Reviewed   bool    `json:"reviewed"`
}

// Order is the part of a checkout fulfilled by a single shop.
type Order struct {
	BaseModel
	CheckoutID   string       `json:"checkout_id" gorm:"type:varchar(36);index"`
	UserID       string       `json:"user_id" gorm:"type:varchar(36);index;not null"`
	ShopID       string       `json:"shop_id" gorm:"type:varchar(36);index;not null"`
	Items        []OrderItem  `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Shipping     ShippingInfo `json:"shipping" gorm:"embedded;embeddedPrefix:shipping_"`
	Payment      PaymentInfo  `json:"payment" gorm:"embedded;embeddedPrefix:payment_"`
	Subtotal     float64      `json:"subtotal"`
	Tax          float64      `json:"tax"`
	ShippingCost float64      `json:"shipping_cost"`
	Total        float64      `json:"total"`
	Discount     float64      `json:"discount"`
	Status       OrderStatus  `json:"status" gorm:"type:varchar(20);index"`
	DeliveredAt  *time.Time   `json:"delivered_at,omitempty"`
}

// TransitionTo moves the order to next or returns ErrInvalidTransition.
func (o *Order) TransitionTo(next OrderStatus) error {
	if !o.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: order %s cannot move from %s to %s", ErrInvalidTransition, o.ID, o.Status, next)
	}
	o.Status = next
	if next == OrderStatusDelivered {
		now := time.Now()
		o.DeliveredAt = &now
	}
	return nil
}

// Item returns the line for productID.
func (o *Order) Item(productID string) (*OrderItem, bool) {
	for i := range o.Items {
		if o.Items[i].ProductID == productID {
			return &o.Items[i], true
		}
	}
	return nil, false
}
