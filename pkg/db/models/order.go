package models

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ikrcommerce/ikr-backend/pkg/enums"
	"github.com/ikrcommerce/ikr-backend/pkg/types"
)

// OrderNumberPrefix starts every human-facing order reference.
const OrderNumberPrefix = "IKR-"

// Order is the captured checkout. Monetary fields are recomputed by the
// pricing engine; the model never derives them itself.
type Order struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber string     `gorm:"column:order_number;not null;uniqueIndex"`
	CustomerID  *uuid.UUID `gorm:"column:customer_id;type:uuid"`

	Status        enums.OrderStatus        `gorm:"column:status;type:order_status;not null;default:'pending'"`
	PaymentStatus enums.OrderPaymentStatus `gorm:"column:payment_status;type:order_payment_status;not null;default:'pending'"`

	Shipping              types.Address `gorm:"embedded;embeddedPrefix:shipping_"`
	Billing               types.Address `gorm:"embedded;embeddedPrefix:billing_"`
	BillingSameAsShipping bool          `gorm:"column:billing_same_as_shipping;not null;default:true"`

	ShippingMethodID *uuid.UUID `gorm:"column:shipping_method_id;type:uuid"`
	CouponID         *uuid.UUID `gorm:"column:coupon_id;type:uuid"`
	CouponCode       *string    `gorm:"column:coupon_code"`

	Subtotal       decimal.Decimal `gorm:"column:subtotal;type:numeric(10,2);not null"`
	TaxAmount      decimal.Decimal `gorm:"column:tax_amount;type:numeric(10,2);not null"`
	ShippingAmount decimal.Decimal `gorm:"column:shipping_amount;type:numeric(10,2);not null"`
	DiscountAmount decimal.Decimal `gorm:"column:discount_amount;type:numeric(10,2);not null"`
	TotalAmount    decimal.Decimal `gorm:"column:total_amount;type:numeric(10,2);not null"`

	CustomerNote   *string    `gorm:"column:customer_note"`
	InternalNote   *string    `gorm:"column:internal_note"`
	TrackingNumber *string    `gorm:"column:tracking_number"`
	ShippedAt      *time.Time `gorm:"column:shipped_at"`
	DeliveredAt    *time.Time `gorm:"column:delivered_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeSave assigns the order number on first save and keeps the billing
// address in sync when the customer opted to reuse the shipping address.
// The billing copy is unconditional so later edits to the shipping address
// propagate on every save.
func (o *Order) BeforeSave(_ *gorm.DB) error {
	if strings.TrimSpace(o.OrderNumber) == "" {
		o.OrderNumber = NewOrderNumber()
	}
	if o.BillingSameAsShipping {
		o.Billing = o.Shipping
	}
	return nil
}

// NewOrderNumber builds a reference like IKR-9F2C41AB from a fresh uuid.
func NewOrderNumber() string {
	id := uuid.New()
	return OrderNumberPrefix + strings.ToUpper(hex.EncodeToString(id[:4]))
}

// IsPaid reports whether the order has been settled in full.
func (o Order) IsPaid() bool {
	return o.PaymentStatus == enums.OrderPaymentStatusPaid
}

// ItemsCount sums line quantities.
func (o Order) ItemsCount() int {
	count := 0
	for _, item := range o.Items {
		count += item.Quantity
	}
	return count
}
