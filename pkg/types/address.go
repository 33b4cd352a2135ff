package types

import (
	"fmt"
	"strings"
)

// Address captures the contact and delivery fields snapshotted onto an
// order. It is stored as flat columns via gorm's embedded prefix, so the
// shipping and billing copies live side by side on the orders table.
type Address struct {
	FullName   string `json:"full_name" gorm:"column:full_name"`
	Phone      string `json:"phone" gorm:"column:phone"`
	Email      string `json:"email" gorm:"column:email"`
	Line1      string `json:"line1" gorm:"column:line1"`
	Line2      string `json:"line2,omitempty" gorm:"column:line2"`
	City       string `json:"city" gorm:"column:city"`
	PostalCode string `json:"postal_code" gorm:"column:postal_code"`
	Country    string `json:"country" gorm:"column:country"`
}

// Validate enforces the fields every deliverable address needs.
func (a Address) Validate() error {
	if strings.TrimSpace(a.FullName) == "" {
		return fmt.Errorf("address: missing full_name")
	}
	if strings.TrimSpace(a.Phone) == "" {
		return fmt.Errorf("address: missing phone")
	}
	if strings.TrimSpace(a.Line1) == "" {
		return fmt.Errorf("address: missing line1")
	}
	if strings.TrimSpace(a.City) == "" {
		return fmt.Errorf("address: missing city")
	}
	if strings.TrimSpace(a.Country) == "" {
		return fmt.Errorf("address: missing country")
	}
	return nil
}

// IsZero reports whether no field of the address has been set.
func (a Address) IsZero() bool {
	return a == Address{}
}
