package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ikrcommerce/ikr-backend/api/responses"
	"github.com/ikrcommerce/ikr-backend/api/validators"
	"github.com/ikrcommerce/ikr-backend/internal/catalog"
	"github.com/ikrcommerce/ikr-backend/pkg/enums"
	pkgerrors "github.com/ikrcommerce/ikr-backend/pkg/errors"
	"github.com/ikrcommerce/ikr-backend/pkg/logger"
	"github.com/ikrcommerce/ikr-backend/pkg/pagination"
)

// ListProducts serves the public product browse endpoint.
func ListProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input, err := parseListProductsQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// Storefront browsing never surfaces drafts or archived products.
		active := enums.ProductStatusActive
		input.Filters.Status = &active

		result, err := svc.ListProducts(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// GetProduct serves a single product by its slug.
func GetProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productSlug := strings.TrimSpace(chi.URLParam(r, "slug"))
		if productSlug == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product slug required"))
			return
		}

		product, err := svc.GetProductBySlug(r.Context(), productSlug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// ListCategories serves the flat category list.
func ListCategories(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := svc.ListCategories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"categories": categories})
	}
}

// GetCategory serves a single category by its slug.
func GetCategory(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categorySlug := strings.TrimSpace(chi.URLParam(r, "slug"))
		if categorySlug == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "category slug required"))
			return
		}

		category, err := svc.GetCategoryBySlug(r.Context(), categorySlug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, category)
	}
}

type createCategoryRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description,omitempty"`
	ParentID    *string `json:"parent_id,omitempty"`
	SortOrder   int     `json:"sort_order,omitempty" validate:"omitempty,min=0"`
}

// AdminCreateCategory creates a category.
func AdminCreateCategory(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createCategoryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := catalog.CreateCategoryInput{
			Name:        payload.Name,
			Description: payload.Description,
			SortOrder:   payload.SortOrder,
		}
		if payload.ParentID != nil {
			parentID, err := uuid.Parse(*payload.ParentID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid parent id"))
				return
			}
			input.ParentID = &parentID
		}

		category, err := svc.CreateCategory(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, category)
	}
}

type createVariantRequest struct {
	Name          string           `json:"name" validate:"required"`
	PriceOverride *decimal.Decimal `json:"price_override,omitempty"`
	StockQuantity int              `json:"stock_quantity" validate:"omitempty,min=0"`
}

type createProductRequest struct {
	CategoryID     string                 `json:"category_id" validate:"required,uuid"`
	Name           string                 `json:"name" validate:"required"`
	Description    *string                `json:"description,omitempty"`
	Price          decimal.Decimal        `json:"price" validate:"required"`
	CompareAtPrice *decimal.Decimal       `json:"compare_at_price,omitempty"`
	Status         *string                `json:"status,omitempty"`
	StockQuantity  int                    `json:"stock_quantity" validate:"omitempty,min=0"`
	IsFeatured     bool                   `json:"is_featured,omitempty"`
	Variants       []createVariantRequest `json:"variants,omitempty" validate:"omitempty,dive"`
}

// AdminCreateProduct creates a product with optional variants.
func AdminCreateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		categoryID, err := uuid.Parse(payload.CategoryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category id"))
			return
		}

		status := enums.ProductStatusDraft
		if payload.Status != nil {
			status, err = enums.ParseProductStatus(strings.TrimSpace(*payload.Status))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
		}

		input := catalog.CreateProductInput{
			CategoryID:     categoryID,
			Name:           payload.Name,
			Description:    payload.Description,
			Price:          payload.Price,
			CompareAtPrice: payload.CompareAtPrice,
			Status:         status,
			StockQuantity:  payload.StockQuantity,
			IsFeatured:     payload.IsFeatured,
		}
		for _, variant := range payload.Variants {
			input.Variants = append(input.Variants, catalog.CreateVariantInput{
				Name:          variant.Name,
				PriceOverride: variant.PriceOverride,
				StockQuantity: variant.StockQuantity,
			})
		}

		product, err := svc.CreateProduct(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

type updateProductRequest struct {
	Name           *string          `json:"name,omitempty"`
	Description    *string          `json:"description,omitempty"`
	Price          *decimal.Decimal `json:"price,omitempty"`
	CompareAtPrice *decimal.Decimal `json:"compare_at_price,omitempty"`
	Status         *string          `json:"status,omitempty"`
	StockQuantity  *int             `json:"stock_quantity,omitempty" validate:"omitempty,min=0"`
	IsFeatured     *bool            `json:"is_featured,omitempty"`
}

// AdminUpdateProduct applies a partial update to a product.
func AdminUpdateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := catalog.UpdateProductInput{
			Name:           payload.Name,
			Description:    payload.Description,
			Price:          payload.Price,
			CompareAtPrice: payload.CompareAtPrice,
			StockQuantity:  payload.StockQuantity,
			IsFeatured:     payload.IsFeatured,
		}
		if payload.Status != nil {
			status, err := enums.ParseProductStatus(strings.TrimSpace(*payload.Status))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			input.Status = &status
		}

		product, err := svc.UpdateProduct(r.Context(), productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// AdminDeleteProduct soft-deletes a product.
func AdminDeleteProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		if err := svc.DeleteProduct(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// AdminDeleteVariant removes a variant.
func AdminDeleteVariant(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		variantID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid variant id"))
			return
		}

		if err := svc.DeleteVariant(r.Context(), variantID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func parseListProductsQuery(r *http.Request) (catalog.ListProductsInput, error) {
	query := r.URL.Query()

	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return catalog.ListProductsInput{}, err
	}

	input := catalog.ListProductsInput{
		Filters: catalog.ProductListFilters{
			CategorySlug: strings.TrimSpace(query.Get("category")),
			Query:        validators.SanitizeString(query.Get("q"), 120),
		},
		Pagination: pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(query.Get("cursor")),
		},
	}

	if raw := strings.TrimSpace(query.Get("featured")); raw != "" {
		featured := raw == "true" || raw == "1"
		input.Filters.Featured = &featured
	}
	if raw := strings.TrimSpace(query.Get("price_min")); raw != "" {
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return catalog.ListProductsInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price_min")
		}
		input.Filters.PriceMin = &value
	}
	if raw := strings.TrimSpace(query.Get("price_max")); raw != "" {
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return catalog.ListProductsInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price_max")
		}
		input.Filters.PriceMax = &value
	}

	return input, nil
}
