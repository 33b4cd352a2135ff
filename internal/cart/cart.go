package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is one cart line, keyed by product id plus variant id in the stored
// document. Price and name are captured when the line is added so the cart
// renders without touching the catalog again.
type Item struct {
	ProductID uuid.UUID       `json:"product_id"`
	VariantID *uuid.UUID      `json:"variant_id,omitempty"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Name      string          `json:"name"`
	Image     *string         `json:"image,omitempty"`
}

// Cart is the session-scoped document stored in redis.
type Cart struct {
	Items map[string]Item `json:"items"`
}

// NewCart returns an empty cart.
func NewCart() *Cart {
	return &Cart{Items: map[string]Item{}}
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// Subtotal sums price times quantity across all lines.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	if c == nil {
		return total
	}
	for _, item := range c.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// ItemsCount sums quantities across all lines.
func (c *Cart) ItemsCount() int {
	count := 0
	if c == nil {
		return count
	}
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}
