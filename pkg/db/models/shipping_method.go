package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// ShippingMethod is an operator-configured delivery option. An empty
// AvailableCountries array means the method ships everywhere.
type ShippingMethod struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Description *string   `gorm:"column:description"`

	Fee               decimal.Decimal `gorm:"column:fee;type:numeric(10,2);not null"`
	EstimatedDaysMin  int             `gorm:"column:estimated_days_min;not null;default:1"`
	EstimatedDaysMax  int             `gorm:"column:estimated_days_max;not null;default:7"`

	AvailableCountries pq.StringArray `gorm:"column:available_countries;type:text[];not null;default:ARRAY[]::text[]"`

	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// ServesCountry reports whether the method ships to the given ISO country.
func (m ShippingMethod) ServesCountry(country string) bool {
	if len(m.AvailableCountries) == 0 {
		return true
	}
	for _, c := range m.AvailableCountries {
		if c == country {
			return true
		}
	}
	return false
}
