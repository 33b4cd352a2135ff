package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ikrcommerce/ikr-backend/pkg/enums"
)

// OrderCreatedEvent signals a captured checkout.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	CustomerID  *uuid.UUID      `json:"customer_id,omitempty"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency"`
	ItemCount   int             `json:"item_count"`
}

// OrderStatusChangedEvent is emitted on every fulfillment transition.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
	ChangedAt   time.Time         `json:"changed_at"`
}

// PaymentInitiatedEvent records an STK push handed to the gateway.
type PaymentInitiatedEvent struct {
	PaymentID         uuid.UUID       `json:"payment_id"`
	OrderID           uuid.UUID       `json:"order_id"`
	OrderNumber       string          `json:"order_number"`
	Amount            decimal.Decimal `json:"amount"`
	PhoneNumber       string          `json:"phone_number"`
	CheckoutRequestID string          `json:"checkout_request_id"`
}

// PaymentSucceededEvent reports a payment confirmed by the gateway.
type PaymentSucceededEvent struct {
	PaymentID          uuid.UUID       `json:"payment_id"`
	OrderID            uuid.UUID       `json:"order_id"`
	OrderNumber        string          `json:"order_number"`
	Amount             decimal.Decimal `json:"amount"`
	MpesaReceiptNumber string          `json:"mpesa_receipt_number,omitempty"`
	CompletedAt        time.Time       `json:"completed_at"`
}

// PaymentFailedEvent reports a declined or abandoned push.
type PaymentFailedEvent struct {
	PaymentID   uuid.UUID `json:"payment_id"`
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	ResultCode  string    `json:"result_code,omitempty"`
	Reason      string    `json:"reason,omitempty"`
}

// CouponRedeemedEvent fires once a coupon's order is paid.
type CouponRedeemedEvent struct {
	CouponID   uuid.UUID       `json:"coupon_id"`
	Code       string          `json:"code"`
	OrderID    uuid.UUID       `json:"order_id"`
	Discount   decimal.Decimal `json:"discount"`
	UsageCount int             `json:"usage_count"`
}
