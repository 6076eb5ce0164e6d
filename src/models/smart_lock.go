package models

import (
	"time"

	"smartcheckin/src/types"
)

type SmartLock struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	ApartmentID uint   `gorm:"uniqueIndex" json:"apartment_id,omitempty"`
	VendorID    string `json:"vendor_id,omitempty"`
	Name        string `json:"name,omitempty"`

	types.Timestamps
}

// LockToken stores the per-owner access token for the lock vendor, obtained
// through the vendor's OAuth flow out of band.
type LockToken struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	OwnerID      uint      `gorm:"uniqueIndex" json:"owner_id,omitempty"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`

	types.Timestamps
}
