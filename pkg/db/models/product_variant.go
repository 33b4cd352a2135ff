package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductVariant is a sellable variation of a product, such as a size or
// color. A nil PriceOverride inherits the product price.
type ProductVariant struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID     uuid.UUID        `gorm:"column:product_id;type:uuid;not null"`
	Name          string           `gorm:"column:name;not null"`
	SKU           string           `gorm:"column:sku;not null;uniqueIndex"`
	PriceOverride *decimal.Decimal `gorm:"column:price_override;type:numeric(10,2)"`
	StockQuantity int              `gorm:"column:stock_quantity;not null;default:0"`
	IsActive      bool             `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
