package models

import "smartcheckin/src/types"

type Owner struct {
	ID       uint   `gorm:"primarykey" json:"id"`
	Email    string `gorm:"uniqueIndex" json:"email"`
	Password string `json:"-"`
	Name     string `json:"name,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Role     string `gorm:"default:'owner'" json:"role,omitempty"`

	// Default deposit policy applied when creating reservations manually.
	DepositEnabled bool     `json:"deposit_enabled,omitempty"`
	DepositAmount  *float64 `json:"deposit_amount,omitempty"`

	Apartments []Apartment `gorm:"foreignKey:owner_id" json:"apartments,omitempty"`

	types.Timestamps
}
