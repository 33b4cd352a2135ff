package coupons

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ikrcommerce/ikr-backend/pkg/db/models"
	"github.com/ikrcommerce/ikr-backend/pkg/enums"
	pkgerrors "github.com/ikrcommerce/ikr-backend/pkg/errors"
)

// Service validates coupon codes and computes discounts.
type Service interface {
	Validate(ctx context.Context, input ValidateInput) (*models.Coupon, error)
	Discount(coupon *models.Coupon, amount decimal.Decimal) decimal.Decimal
}

// ValidateInput carries everything the eligibility checks need.
type ValidateInput struct {
	Code        string
	OrderAmount decimal.Decimal
	CustomerID  *uuid.UUID
	Now         time.Time
}

type service struct {
	repo Repository
}

// NewService builds a coupon service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupons repository required")
	}
	return &service{repo: repo}, nil
}

// Validate runs the eligibility checks in a fixed order so the caller gets
// the most specific rejection: active, window start, window end, usage cap,
// minimum amount, first-order restriction.
func (s *service) Validate(ctx context.Context, input ValidateInput) (*models.Coupon, error) {
	code := strings.TrimSpace(input.Code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}

	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}

	now := input.Now
	if now.IsZero() {
		now = time.Now()
	}

	if !coupon.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon is not active")
	}
	if now.Before(coupon.ValidFrom) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon is not yet valid")
	}
	if now.After(coupon.ValidUntil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon has expired")
	}
	if coupon.UsageExhausted() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon usage limit reached")
	}
	if coupon.MinimumAmount != nil && input.OrderAmount.LessThan(*coupon.MinimumAmount) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("order must be at least %s to use this coupon", coupon.MinimumAmount.StringFixed(2)))
	}
	if coupon.FirstOrderOnly {
		if input.CustomerID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon is limited to first orders")
		}
		// Any prior order disqualifies, even one that was never paid.
		prior, err := s.repo.CountOrders(ctx, *input.CustomerID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count orders")
		}
		if prior > 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon is limited to first orders")
		}
	}

	return coupon, nil
}

// Discount computes the amount taken off the order. Fixed coupons never
// exceed the order amount; percentage coupons honor the maximum cap.
func (s *service) Discount(coupon *models.Coupon, amount decimal.Decimal) decimal.Decimal {
	if coupon == nil || amount.IsNegative() || amount.IsZero() {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch coupon.DiscountType {
	case enums.DiscountTypeFixed:
		discount = coupon.Value
		if discount.GreaterThan(amount) {
			discount = amount
		}
	case enums.DiscountTypePercentage:
		discount = amount.Mul(coupon.Value).Div(decimal.NewFromInt(100))
		if coupon.MaximumDiscount != nil && discount.GreaterThan(*coupon.MaximumDiscount) {
			discount = *coupon.MaximumDiscount
		}
		if discount.GreaterThan(amount) {
			discount = amount
		}
	default:
		return decimal.Zero
	}

	return discount.Round(2)
}
