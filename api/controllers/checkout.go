package controllers

import (
	"net/http"

	"github.com/ikrcommerce/ikr-backend/api/middleware"
	"github.com/ikrcommerce/ikr-backend/api/responses"
	"github.com/ikrcommerce/ikr-backend/api/validators"
	"github.com/ikrcommerce/ikr-backend/internal/checkout"
	pkgerrors "github.com/ikrcommerce/ikr-backend/pkg/errors"
	"github.com/ikrcommerce/ikr-backend/pkg/logger"
	"github.com/ikrcommerce/ikr-backend/pkg/types"
)

type addressRequest struct {
	FullName   string `json:"full_name" validate:"required"`
	Phone      string `json:"phone" validate:"required"`
	Email      string `json:"email,omitempty" validate:"omitempty,email"`
	Line1      string `json:"line1" validate:"required"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city" validate:"required"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country" validate:"required"`
}

func (a addressRequest) toAddress() types.Address {
	return types.Address{
		FullName:   validators.SanitizeString(a.FullName, 200),
		Phone:      validators.SanitizeString(a.Phone, 32),
		Email:      validators.SanitizeString(a.Email, 254),
		Line1:      validators.SanitizeString(a.Line1, 255),
		Line2:      validators.SanitizeString(a.Line2, 255),
		City:       validators.SanitizeString(a.City, 120),
		PostalCode: validators.SanitizeString(a.PostalCode, 20),
		Country:    validators.SanitizeString(a.Country, 2),
	}
}

type checkoutRequest struct {
	Shipping              addressRequest  `json:"shipping" validate:"required"`
	Billing               *addressRequest `json:"billing,omitempty"`
	BillingSameAsShipping bool            `json:"billing_same_as_shipping,omitempty"`
	CouponCode            string          `json:"coupon_code,omitempty"`
	CustomerNote          *string         `json:"customer_note,omitempty"`
}

// Checkout captures the session cart into an order for the signed-in
// customer.
func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID := middleware.CustomerIDFromContext(r.Context())
		sessionID := middleware.SessionIDFromContext(r.Context())

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := checkout.Input{
			Shipping:              payload.Shipping.toAddress(),
			BillingSameAsShipping: payload.BillingSameAsShipping,
			CouponCode:            validators.SanitizeString(payload.CouponCode, 50),
			CustomerNote:          payload.CustomerNote,
		}
		if !input.BillingSameAsShipping {
			if payload.Billing == nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "billing address required unless billing_same_as_shipping"))
				return
			}
			input.Billing = payload.Billing.toAddress()
		}

		order, err := svc.Execute(r.Context(), customerID, sessionID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}
