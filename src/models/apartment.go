package models

import (
	"time"

	"smartcheckin/src/types"
)

type Apartment struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	OwnerID     uint   `json:"owner_id,omitempty"`
	Name        string `json:"name,omitempty"`
	Address     string `json:"address,omitempty"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `gorm:"default:true" json:"is_active"`

	// Up to three independent feeds, one per booking channel. Any subset may
	// be configured; each carries its own last-sync marker.
	AirbnbIcalURL   *string    `json:"airbnb_ical_url,omitempty"`
	BookingIcalURL  *string    `json:"booking_ical_url,omitempty"`
	IcalURL         *string    `json:"ical_url,omitempty"`
	LastAirbnbSync  *time.Time `json:"last_airbnb_sync,omitempty"`
	LastBookingSync *time.Time `json:"last_booking_sync,omitempty"`
	LastIcalSync    *time.Time `json:"last_ical_sync,omitempty"`

	Owner        Owner         `gorm:"foreignKey:owner_id" json:"-"`
	SmartLock    *SmartLock    `gorm:"foreignKey:apartment_id" json:"smart_lock,omitempty"`
	Reservations []Reservation `gorm:"foreignKey:apartment_id" json:"reservations,omitempty"`

	types.Timestamps
}

// HasFeed reports whether at least one calendar feed URL is configured.
func (a *Apartment) HasFeed() bool {
	return a.AirbnbIcalURL != nil || a.BookingIcalURL != nil || a.IcalURL != nil
}
