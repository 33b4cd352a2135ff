package catalog

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"github.com/ikrcommerce/ikr-backend/pkg/db"
	"github.com/ikrcommerce/ikr-backend/pkg/db/models"
	"github.com/ikrcommerce/ikr-backend/pkg/enums"
	pkgerrors "github.com/ikrcommerce/ikr-backend/pkg/errors"
)

// Service exposes catalog management plus the snapshot loader the checkout
// flow consumes.
type Service interface {
	CreateCategory(ctx context.Context, input CreateCategoryInput) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error)

	CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	GetProductBySlug(ctx context.Context, slug string) (*models.Product, error)
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	DeleteVariant(ctx context.Context, id uuid.UUID) error

	Snapshot(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*ItemSnapshot, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds a catalog service with the required dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) CreateCategory(ctx context.Context, input CreateCategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name is required")
	}

	categorySlug, err := s.uniqueSlug(ctx, name, s.repo.CategorySlugExists)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve category slug")
	}

	category := &models.Category{
		ID:          uuid.New(),
		Name:        name,
		Slug:        categorySlug,
		Description: input.Description,
		ParentID:    input.ParentID,
		IsActive:    true,
		SortOrder:   input.SortOrder,
	}
	created, err := s.repo.CreateCategory(ctx, category)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "category already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create category")
	}
	return created, nil
}

func (s *service) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	return rows, nil
}

func (s *service) GetCategoryBySlug(ctx context.Context, categorySlug string) (*models.Category, error) {
	category, err := s.repo.FindCategoryBySlug(ctx, categorySlug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	return category, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if input.CategoryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}

	productSlug, err := s.uniqueSlug(ctx, name, s.repo.ProductSlugExists)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve product slug")
	}

	status := input.Status
	if status == "" {
		status = enums.ProductStatusDraft
	}

	product := &models.Product{
		ID:             uuid.New(),
		CategoryID:     input.CategoryID,
		Name:           name,
		Slug:           productSlug,
		SKU:            NewSKU(),
		Description:    input.Description,
		Price:          input.Price,
		CompareAtPrice: input.CompareAtPrice,
		Status:         status,
		StockQuantity:  input.StockQuantity,
		IsFeatured:     input.IsFeatured,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.CreateProduct(ctx, product); err != nil {
			return err
		}
		for _, v := range input.Variants {
			variant := &models.ProductVariant{
				ID:            uuid.New(),
				ProductID:     product.ID,
				Name:          strings.TrimSpace(v.Name),
				SKU:           VariantSKU(product.SKU),
				PriceOverride: v.PriceOverride,
				StockQuantity: v.StockQuantity,
				IsActive:      true,
			}
			if variant.Name == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "variant name is required")
			}
			if _, err := repo.CreateVariant(ctx, variant); err != nil {
				return err
			}
			product.Variants = append(product.Variants, *variant)
		}
		return nil
	})
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil {
			return nil, appErr
		}
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return product, nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error) {
	product, err := s.repo.FindProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
		}
		product.Name = name
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
		}
		product.Price = *input.Price
	}
	if input.CompareAtPrice != nil {
		product.CompareAtPrice = input.CompareAtPrice
	}
	if input.Status != nil {
		product.Status = *input.Status
	}
	if input.StockQuantity != nil {
		if *input.StockQuantity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock quantity must not be negative")
		}
		product.StockQuantity = *input.StockQuantity
	}
	if input.IsFeatured != nil {
		product.IsFeatured = *input.IsFeatured
	}

	updated, err := s.repo.UpdateProduct(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return updated, nil
}

// DeleteProduct removes a product. Products referenced by order items are
// protected by a RESTRICT constraint and surface as CONFLICT.
func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindProductByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		if db.IsForeignKeyViolation(err) {
			return pkgerrors.New(pkgerrors.CodeConflict, "product is referenced by existing orders")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	return nil
}

func (s *service) GetProductBySlug(ctx context.Context, productSlug string) (*models.Product, error) {
	product, err := s.repo.FindProductBySlug(ctx, productSlug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	result, err := s.repo.ListProducts(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return result, nil
}

// DeleteVariant removes a variant unless order items still reference it.
func (s *service) DeleteVariant(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindVariantByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
	}

	if err := s.repo.DeleteVariant(ctx, id); err != nil {
		if db.IsForeignKeyViolation(err) {
			return pkgerrors.New(pkgerrors.CodeConflict, "variant is referenced by existing orders")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete variant")
	}
	return nil
}

// Snapshot resolves the purchasable state of a product (and optional
// variant) into the fields order items capture at purchase time.
func (s *service) Snapshot(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*ItemSnapshot, error) {
	product, err := s.repo.FindProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsPurchasable() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("product %s is not available for purchase", product.SKU))
	}

	snapshot := &ItemSnapshot{
		ProductID: product.ID,
		Name:      product.Name,
		SKU:       product.SKU,
		UnitPrice: product.Price,
	}

	if variantID != nil {
		var variant *models.ProductVariant
		for i := range product.Variants {
			if product.Variants[i].ID == *variantID {
				variant = &product.Variants[i]
				break
			}
		}
		if variant == nil || !variant.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		snapshot.VariantID = &variant.ID
		snapshot.Name = product.Name + " / " + variant.Name
		snapshot.SKU = variant.SKU
		snapshot.UnitPrice = product.EffectivePrice(variant)
	}

	return snapshot, nil
}

// uniqueSlug slugifies the name and appends a numeric suffix until the slug
// is free.
func (s *service) uniqueSlug(ctx context.Context, name string, exists func(context.Context, string) (bool, error)) (string, error) {
	base := slug.Make(name)
	candidate := base
	for counter := 1; ; counter++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, counter)
	}
}

// NewSKU generates a product SKU in the same shape as order numbers.
func NewSKU() string {
	id := uuid.New()
	return "IKR-" + strings.ToUpper(hex.EncodeToString(id[:4]))
}

// VariantSKU derives a variant SKU from the parent product SKU.
func VariantSKU(productSKU string) string {
	id := uuid.New()
	return productSKU + "-" + strings.ToUpper(hex.EncodeToString(id[:3]))
}
