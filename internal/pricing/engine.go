package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/ikrcommerce/ikr-backend/pkg/config"
)

// Engine computes order money fields from configured rates. All values are
// KES rounded to two decimal places.
type Engine struct {
	taxRate               decimal.Decimal
	freeShippingThreshold decimal.Decimal
	shippingFee           decimal.Decimal
}

// Quote is the full price breakdown for an order.
type Quote struct {
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	ShippingAmount decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalAmount    decimal.Decimal
}

// Line is a quantity at a unit price.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// NewEngine builds the engine from pricing configuration.
func NewEngine(cfg config.PricingConfig) *Engine {
	return &Engine{
		taxRate:               cfg.TaxRateDecimal(),
		freeShippingThreshold: cfg.FreeShippingThresholdDecimal(),
		shippingFee:           cfg.ShippingFeeDecimal(),
	}
}

// Subtotal sums the line totals.
func (e *Engine) Subtotal(lines []Line) decimal.Decimal {
	subtotal := decimal.Zero
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return subtotal.Round(2)
}

// Tax applies the configured rate to the pre-discount subtotal.
func (e *Engine) Tax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(e.taxRate).Round(2)
}

// Shipping waives the flat fee once the subtotal reaches the threshold.
// Orders at exactly the threshold ship free.
func (e *Engine) Shipping(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(e.freeShippingThreshold) {
		return decimal.Zero
	}
	return e.shippingFee
}

// Quote assembles the full breakdown. The discount is subtracted last and
// the total is floored at zero.
func (e *Engine) Quote(lines []Line, discount decimal.Decimal) Quote {
	subtotal := e.Subtotal(lines)
	tax := e.Tax(subtotal)
	shipping := e.Shipping(subtotal)

	if discount.IsNegative() {
		discount = decimal.Zero
	}
	total := subtotal.Add(tax).Add(shipping).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Quote{
		Subtotal:       subtotal,
		TaxAmount:      tax,
		ShippingAmount: shipping,
		DiscountAmount: discount.Round(2),
		TotalAmount:    total.Round(2),
	}
}
