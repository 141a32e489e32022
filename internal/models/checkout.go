package models

// Checkout groups the per-shop orders created from one cart.
// IdempotencyKey is nil when the client did not send one.
type Checkout struct {
	BaseModel
	UserID         string  `json:"user_id" gorm:"type:varchar(36);uniqueIndex:idx_checkout_user_key;not null"`
	IdempotencyKey *string `json:"-" gorm:"type:varchar(100);uniqueIndex:idx_checkout_user_key"`
	Orders         []Order `json:"orders,omitempty" gorm:"foreignKey:CheckoutID"`
}
