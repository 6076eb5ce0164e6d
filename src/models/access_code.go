package models

import (
	"time"

	"smartcheckin/src/types"
)

// AccessCode is created exactly once per reservation and is immutable except
// for the active flag. Its existence marks a completed check-in.
type AccessCode struct {
	ID            uint `gorm:"primarykey" json:"id"`
	ReservationID uint `gorm:"uniqueIndex" json:"reservation_id,omitempty"`

	LockID     string    `gorm:"default:'manual'" json:"lock_id,omitempty"`
	Code       string    `json:"code,omitempty"`
	ValidFrom  time.Time `json:"valid_from,omitempty"`
	ValidUntil time.Time `json:"valid_until,omitempty"`
	IsActive   bool      `gorm:"default:true" json:"is_active"`

	types.Timestamps
}
