package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ikrcommerce/ikr-backend/pkg/enums"
)

// Product is the canonical catalog listing. Prices are KES with two
// decimal places.
type Product struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CategoryID     uuid.UUID           `gorm:"column:category_id;type:uuid;not null"`
	Name           string              `gorm:"column:name;not null"`
	Slug           string              `gorm:"column:slug;not null;uniqueIndex"`
	SKU            string              `gorm:"column:sku;not null;uniqueIndex"`
	Description    *string             `gorm:"column:description"`
	Price          decimal.Decimal     `gorm:"column:price;type:numeric(10,2);not null"`
	CompareAtPrice *decimal.Decimal    `gorm:"column:compare_at_price;type:numeric(10,2)"`
	Status         enums.ProductStatus `gorm:"column:status;type:product_status;not null;default:'draft'"`
	StockQuantity  int                 `gorm:"column:stock_quantity;not null;default:0"`
	IsFeatured     bool                `gorm:"column:is_featured;not null;default:false"`
	Category       *Category           `gorm:"foreignKey:CategoryID"`
	Variants       []ProductVariant    `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// IsPurchasable reports whether the product can enter a cart.
func (p Product) IsPurchasable() bool {
	return p.Status == enums.ProductStatusActive && p.StockQuantity > 0
}

// EffectivePrice resolves the unit price for an optional variant override.
func (p Product) EffectivePrice(variant *ProductVariant) decimal.Decimal {
	if variant != nil && variant.PriceOverride != nil {
		return *variant.PriceOverride
	}
	return p.Price
}
