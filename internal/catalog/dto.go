package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ikrcommerce/ikr-backend/pkg/enums"
	"github.com/ikrcommerce/ikr-backend/pkg/pagination"
)

// ProductListFilters describe the filter knobs for the browse endpoint.
type ProductListFilters struct {
	CategorySlug string               `json:"category,omitempty"`
	Status       *enums.ProductStatus `json:"status,omitempty"`
	Featured     *bool                `json:"featured,omitempty"`
	PriceMin     *decimal.Decimal     `json:"price_min,omitempty"`
	PriceMax     *decimal.Decimal     `json:"price_max,omitempty"`
	Query        string               `json:"q,omitempty"`
}

// ListProductsInput carries filters plus cursor pagination.
type ListProductsInput struct {
	Filters    ProductListFilters
	Pagination pagination.Params
}

// ProductSummary is the flattened row returned by the list query.
type ProductSummary struct {
	ID             uuid.UUID           `json:"id"`
	SKU            string              `json:"sku"`
	Name           string              `json:"name"`
	Slug           string              `json:"slug"`
	CategorySlug   string              `json:"category_slug"`
	Price          decimal.Decimal     `json:"price"`
	CompareAtPrice *decimal.Decimal    `json:"compare_at_price,omitempty"`
	Status         enums.ProductStatus `json:"status"`
	StockQuantity  int                 `json:"stock_quantity"`
	IsFeatured     bool                `json:"is_featured"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// ProductListResult is one page of summaries plus the next-page cursor.
type ProductListResult struct {
	Products   []ProductSummary `json:"products"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// CreateCategoryInput is the service-level payload for a new category.
type CreateCategoryInput struct {
	Name        string
	Description *string
	ParentID    *uuid.UUID
	SortOrder   int
}

// CreateProductInput is the service-level payload for a new product.
type CreateProductInput struct {
	CategoryID     uuid.UUID
	Name           string
	Description    *string
	Price          decimal.Decimal
	CompareAtPrice *decimal.Decimal
	Status         enums.ProductStatus
	StockQuantity  int
	IsFeatured     bool
	Variants       []CreateVariantInput
}

// CreateVariantInput is a variant row nested in product creation.
type CreateVariantInput struct {
	Name          string
	PriceOverride *decimal.Decimal
	StockQuantity int
}

// UpdateProductInput applies partial updates; nil pointers leave the field
// untouched.
type UpdateProductInput struct {
	Name           *string
	Description    *string
	Price          *decimal.Decimal
	CompareAtPrice *decimal.Decimal
	Status         *enums.ProductStatus
	StockQuantity  *int
	IsFeatured     *bool
}

// ItemSnapshot is the contract the checkout flow captures onto order items:
// the name, SKU, and unit price in effect at purchase time.
type ItemSnapshot struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Name      string
	SKU       string
	UnitPrice decimal.Decimal
}
