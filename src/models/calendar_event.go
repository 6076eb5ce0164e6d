package models

import (
	"time"

	"smartcheckin/src/types"
)

// CalendarEvent is one entry of an external booking calendar. The
// (apartment_id, uid) pair is the natural key: repeated syncs update the same
// row instead of inserting a duplicate. Rows are never deleted by sync.
type CalendarEvent struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	ApartmentID uint   `gorm:"uniqueIndex:idx_calendar_events_apartment_uid" json:"apartment_id,omitempty"`
	UID         string `gorm:"uniqueIndex:idx_calendar_events_apartment_uid" json:"uid,omitempty"`

	Summary   string    `json:"summary,omitempty"`
	StartDate time.Time `json:"start_date,omitempty"`
	EndDate   time.Time `json:"end_date,omitempty"`

	Apartment Apartment `gorm:"foreignKey:apartment_id" json:"-"`

	types.Timestamps
}
