package models

import "smartcheckin/src/types"

type Notification struct {
	ID            uint                   `gorm:"primarykey" json:"id"`
	OwnerID       uint                   `gorm:"index" json:"owner_id,omitempty"`
	Type          types.NotificationType `json:"type,omitempty"`
	Title         string                 `json:"title,omitempty"`
	Body          string                 `json:"body,omitempty"`
	ReservationID *uint                  `json:"reservation_id,omitempty"`
	IsRead        bool                   `json:"is_read"`

	types.Timestamps
}
