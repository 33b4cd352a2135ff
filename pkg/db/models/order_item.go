package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderItem is a line on an order. Product name, SKU and unit price are
// snapshotted at capture time so later catalog edits never rewrite history.
type OrderItem struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID  `gorm:"column:order_id;type:uuid;not null"`
	ProductID uuid.UUID  `gorm:"column:product_id;type:uuid;not null"`
	VariantID *uuid.UUID `gorm:"column:variant_id;type:uuid"`

	ProductName string          `gorm:"column:product_name;not null"`
	SKU         string          `gorm:"column:sku;not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(10,2);not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	TotalPrice  decimal.Decimal `gorm:"column:total_price;type:numeric(10,2);not null"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Snapshot fills the denormalized product fields, but only where they are
// still empty. Existing snapshots are immutable.
func (i *OrderItem) Snapshot(product *Product, variant *ProductVariant) {
	if product == nil {
		return
	}
	if i.ProductName == "" {
		i.ProductName = product.Name
		if variant != nil && variant.Name != "" {
			i.ProductName = product.Name + " / " + variant.Name
		}
	}
	if i.SKU == "" {
		i.SKU = product.SKU
		if variant != nil && variant.SKU != "" {
			i.SKU = variant.SKU
		}
	}
	if i.UnitPrice.IsZero() {
		i.UnitPrice = product.EffectivePrice(variant)
	}
}

// BeforeSave recomputes the line total on every save. Unit price times
// quantity is the only source of truth for total_price.
func (i *OrderItem) BeforeSave(_ *gorm.DB) error {
	i.TotalPrice = i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
	return nil
}
