package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ikrcommerce/ikr-backend/api/middleware"
	"github.com/ikrcommerce/ikr-backend/api/responses"
	"github.com/ikrcommerce/ikr-backend/api/validators"
	"github.com/ikrcommerce/ikr-backend/internal/coupons"
	"github.com/ikrcommerce/ikr-backend/pkg/logger"
)

type validateCouponRequest struct {
	Code        string          `json:"code" validate:"required"`
	OrderAmount decimal.Decimal `json:"order_amount" validate:"required"`
}

type validateCouponResponse struct {
	Code     string          `json:"code"`
	Discount decimal.Decimal `json:"discount"`
}

// ValidateCoupon checks a coupon against a prospective order amount and
// quotes the discount it would grant.
func ValidateCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload validateCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := coupons.ValidateInput{
			Code:        validators.SanitizeString(payload.Code, 50),
			OrderAmount: payload.OrderAmount,
			Now:         time.Now().UTC(),
		}
		if customerID := middleware.CustomerIDFromContext(r.Context()); customerID != uuid.Nil {
			input.CustomerID = &customerID
		}

		coupon, err := svc.Validate(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, validateCouponResponse{
			Code:     coupon.Code,
			Discount: svc.Discount(coupon, payload.OrderAmount),
		})
	}
}
