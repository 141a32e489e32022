package services

import "github.com/shopspring/decimal"

// PricingPolicy holds the tax and shipping rules applied to every shop order.
type PricingPolicy struct {
	TaxRate               float64
	FreeShippingThreshold float64
	ShippingFlatRate      float64
}

// DefaultPricingPolicy charges 8% tax and 9.99 shipping on orders up to 100.
func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		TaxRate:               0.08,
		FreeShippingThreshold: 100,
		ShippingFlatRate:      9.99,
	}
}

// Breakdown is the money summary of one shop order.
type Breakdown struct {
	Subtotal     float64
	Tax          float64
	ShippingCost float64
	Total        float64
}

// Breakdown computes tax, shipping and total for a subtotal.
// Shipping is free only when the subtotal is strictly above the threshold.
func (p PricingPolicy) Breakdown(subtotal decimal.Decimal) Breakdown {
	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(decimal.NewFromFloat(p.TaxRate)).Round(2)
	shipping := decimal.NewFromFloat(p.ShippingFlatRate)
	if subtotal.GreaterThan(decimal.NewFromFloat(p.FreeShippingThreshold)) {
		shipping = decimal.Zero
	}
	return Breakdown{
		Subtotal:     subtotal.InexactFloat64(),
		Tax:          tax.InexactFloat64(),
		ShippingCost: shipping.InexactFloat64(),
		Total:        subtotal.Add(tax).Add(shipping).Round(2).InexactFloat64(),
	}
}

// discountedPrice applies a percentage discount to a unit price.
func discountedPrice(unit float64, percentage int) float64 {
	factor := decimal.NewFromInt(int64(100 - percentage)).Div(decimal.NewFromInt(100))
	return decimal.NewFromFloat(unit).Mul(factor).Round(2).InexactFloat64()
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
