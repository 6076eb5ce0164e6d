package models

import (
	"time"

	"smartcheckin/src/types"
)

type Reservation struct {
	ID          uint `gorm:"primarykey" json:"id"`
	ApartmentID uint `gorm:"index" json:"apartment_id,omitempty"`

	GuestName  string  `json:"guest_name,omitempty"`
	GuestEmail *string `json:"guest_email,omitempty"`
	GuestPhone string  `json:"guest_phone,omitempty"`

	CheckIn  time.Time               `json:"check_in,omitempty"`
	CheckOut time.Time               `json:"check_out,omitempty"`
	Status   types.ReservationStatus `gorm:"default:'pending'" json:"status,omitempty"`
	Source   string                  `gorm:"default:'manual'" json:"source,omitempty"`

	// ExternalID links a reservation materialized from a calendar feed back
	// to the feed event's uid.
	ExternalID *string `json:"external_id,omitempty"`

	// CheckinToken is the sole credential for the guest-facing flow.
	CheckinToken string  `gorm:"uniqueIndex" json:"-"`
	Notes        *string `json:"notes,omitempty"`

	DepositRequired bool     `json:"deposit_required"`
	DepositAmount   *float64 `json:"deposit_amount,omitempty"`

	Apartment  Apartment   `gorm:"foreignKey:apartment_id" json:"apartment,omitempty"`
	Guest      *Guest      `gorm:"foreignKey:reservation_id" json:"guest,omitempty"`
	Deposit    *Deposit    `gorm:"foreignKey:reservation_id" json:"deposit,omitempty"`
	AccessCode *AccessCode `gorm:"foreignKey:reservation_id" json:"access_code,omitempty"`

	types.Timestamps
}
