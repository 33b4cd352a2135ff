package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ikrcommerce/ikr-backend/pkg/enums"
	"github.com/ikrcommerce/ikr-backend/pkg/types"
)

// Payment is one attempt to settle an order. CheckoutRequestID is the
// gateway correlation id; reconciliation resolves callbacks through it.
type Payment struct {
	ID      uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`

	Method enums.PaymentMethod `gorm:"column:method;type:payment_method;not null;default:'mpesa'"`
	Status enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'pending'"`

	Amount      decimal.Decimal `gorm:"column:amount;type:numeric(10,2);not null"`
	Currency    string          `gorm:"column:currency;not null;default:'KES'"`
	PhoneNumber string          `gorm:"column:phone_number;not null"`

	MerchantRequestID *string `gorm:"column:merchant_request_id"`
	CheckoutRequestID *string `gorm:"column:checkout_request_id;uniqueIndex"`

	ResultCode         *string        `gorm:"column:result_code"`
	ResultDescription  *string        `gorm:"column:result_description"`
	MpesaReceiptNumber *string        `gorm:"column:mpesa_receipt_number"`
	RawCallback        *types.JSONMap `gorm:"column:raw_callback;type:jsonb"`

	CompletedAt *time.Time `gorm:"column:completed_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// IsSettled reports whether the payment reached a terminal state.
func (p Payment) IsSettled() bool {
	return p.Status.IsTerminal()
}
