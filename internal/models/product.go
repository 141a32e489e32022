package models

// Product represents an item a shop sells.
type Product struct {
	BaseModel
	ShopID        string  `json:"shop_id" gorm:"type:varchar(36);index;not null"`
	Name          string  `json:"name" gorm:"type:varchar(150)"`
	Description   string  `json:"description"`
	Price         float64 `json:"price"`
	DiscountPrice float64 `json:"discount_price"` // zero means no discount
	Stock         int     `json:"stock"`
	Sold          int     `json:"sold"`
	Ratings       float64 `json:"ratings"`
	NumOfReviews  int     `json:"num_of_reviews"`
}

// UnitPrice is the price a buyer pays before coupons.
func (p *Product) UnitPrice() float64 {
	if p.DiscountPrice > 0 && p.DiscountPrice < p.Price {
		return p.DiscountPrice
	}
	return p.Price
}
