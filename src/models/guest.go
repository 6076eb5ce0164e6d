package models

import (
	"time"

	"smartcheckin/src/types"
)

type Guest struct {
	ID            uint `gorm:"primarykey" json:"id"`
	ReservationID uint `gorm:"uniqueIndex" json:"reservation_id,omitempty"`

	PassportImages  types.StringArray    `gorm:"type:jsonb" json:"passport_images,omitempty"`
	PassportStatus  types.PassportStatus `gorm:"default:'pending'" json:"passport_status,omitempty"`
	RejectionReason *string              `json:"rejection_reason,omitempty"`

	ConsentGiven bool       `json:"consent_given"`
	ConsentDate  *time.Time `json:"consent_date,omitempty"`
	CheckedInAt  *time.Time `json:"checked_in_at,omitempty"`

	Reservation Reservation `gorm:"foreignKey:reservation_id" json:"reservation,omitempty"`

	types.Timestamps
}
