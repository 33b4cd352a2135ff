package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ikrcommerce/ikr-backend/pkg/enums"
)

// ListFilters describe the inputs supported by the customer orders list.
type ListFilters struct {
	Status        *enums.OrderStatus
	PaymentStatus *enums.OrderPaymentStatus
	DateFrom      *time.Time
	DateTo        *time.Time
}

// OrderSummary exposes the aggregated fields returned in the list.
type OrderSummary struct {
	ID            uuid.UUID                `json:"id"`
	OrderNumber   string                   `json:"order_number"`
	Status        enums.OrderStatus        `json:"status"`
	PaymentStatus enums.OrderPaymentStatus `json:"payment_status"`
	TotalAmount   decimal.Decimal          `json:"total_amount"`
	ItemsCount    int                      `json:"items_count"`
	CreatedAt     time.Time                `json:"created_at"`
}

// OrderList wraps one page of orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// TransitionInput carries a requested status change.
type TransitionInput struct {
	OrderID        uuid.UUID
	To             enums.OrderStatus
	TrackingNumber *string
	InternalNote   *string
}
