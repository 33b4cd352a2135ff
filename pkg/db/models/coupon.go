package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ikrcommerce/ikr-backend/pkg/enums"
)

// Coupon is a redeemable discount code. UsageCount is only incremented
// once payment for the redeeming order is confirmed.
type Coupon struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code        string    `gorm:"column:code;not null;uniqueIndex"`
	Description *string   `gorm:"column:description"`

	DiscountType    enums.DiscountType `gorm:"column:discount_type;type:discount_type;not null"`
	Value           decimal.Decimal    `gorm:"column:value;type:numeric(10,2);not null"`
	MinimumAmount   *decimal.Decimal   `gorm:"column:minimum_amount;type:numeric(10,2)"`
	MaximumDiscount *decimal.Decimal   `gorm:"column:maximum_discount;type:numeric(10,2)"`

	UsageLimit     *int `gorm:"column:usage_limit"`
	UsageCount     int  `gorm:"column:usage_count;not null;default:0"`
	FirstOrderOnly bool `gorm:"column:first_order_only;not null;default:false"`

	IsActive   bool      `gorm:"column:is_active;not null;default:true"`
	ValidFrom  time.Time `gorm:"column:valid_from;not null"`
	ValidUntil time.Time `gorm:"column:valid_until;not null"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// UsageExhausted reports whether the redemption cap has been reached.
func (c Coupon) UsageExhausted() bool {
	return c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit
}
