package models

import (
	"time"

	"smartcheckin/src/types"
)

type Deposit struct {
	ID            uint `gorm:"primarykey" json:"id"`
	ReservationID uint `gorm:"uniqueIndex" json:"reservation_id,omitempty"`

	Amount        float64             `json:"amount,omitempty"`
	Currency      string              `gorm:"default:'GEL'" json:"currency,omitempty"`
	Status        types.DepositStatus `gorm:"default:'pending'" json:"status,omitempty"`
	TransactionID *string             `json:"transaction_id,omitempty"`
	PaidAt        *time.Time          `json:"paid_at,omitempty"`

	// Owner confirmation is a manual bookkeeping step, independent of the
	// payment provider's status.
	OwnerConfirmed   bool       `json:"owner_confirmed"`
	OwnerConfirmedAt *time.Time `json:"owner_confirmed_at,omitempty"`

	Reservation Reservation `gorm:"foreignKey:reservation_id" json:"reservation,omitempty"`

	types.Timestamps
}
