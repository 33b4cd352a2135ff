package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ikrcommerce/ikr-backend/pkg/db/models"
)

// Repository defines persistence operations for categories, products, and
// variants.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateCategory(ctx context.Context, category *models.Category) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	FindCategoryBySlug(ctx context.Context, slug string) (*models.Category, error)
	CategorySlugExists(ctx context.Context, slug string) (bool, error)

	CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error)
	UpdateProduct(ctx context.Context, product *models.Product) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindProductBySlug(ctx context.Context, slug string) (*models.Product, error)
	ProductSlugExists(ctx context.Context, slug string) (bool, error)
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)

	CreateVariant(ctx context.Context, variant *models.ProductVariant) (*models.ProductVariant, error)
	DeleteVariant(ctx context.Context, id uuid.UUID) error
	FindVariantByID(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
}
