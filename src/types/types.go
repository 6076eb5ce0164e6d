package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

// StringArray is stored as a JSON document (jsonb on Postgres, TEXT elsewhere).
type StringArray []string

func (a StringArray) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *StringArray) Scan(value any) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	case nil:
		*a = nil
		return nil
	}
	return errors.New("unsupported source type for StringArray")
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	}
	return errors.New("type assertion to []byte failed")
}

type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type ReservationStatus string

const (
	RESERVATION_PENDING    ReservationStatus = "pending"
	RESERVATION_CHECKED_IN ReservationStatus = "checked_in"
	RESERVATION_COMPLETED  ReservationStatus = "completed"
	RESERVATION_CANCELLED  ReservationStatus = "cancelled"
)

type PassportStatus string

const (
	PASSPORT_PENDING  PassportStatus = "pending"
	PASSPORT_APPROVED PassportStatus = "approved"
	PASSPORT_REJECTED PassportStatus = "rejected"
)

type DepositStatus string

const (
	DEPOSIT_PENDING  DepositStatus = "pending"
	DEPOSIT_PAID     DepositStatus = "paid"
	DEPOSIT_REFUNDED DepositStatus = "refunded"
	// DEPOSIT_HELD is reserved for pre-auth holds.
	DEPOSIT_HELD DepositStatus = "held"
)

// Channel identifies the booking platform a calendar feed or reservation
// originated from.
type Channel string

const (
	CHANNEL_AIRBNB  Channel = "airbnb"
	CHANNEL_BOOKING Channel = "booking"
	CHANNEL_ICAL    Channel = "ical"
	CHANNEL_MANUAL  Channel = "manual"
	CHANNEL_OTHER   Channel = "other"
)

// CheckinState is the derived position of a reservation in the guest
// verification flow. It is computed from persisted records on every read and
// never stored.
type CheckinState string

const (
	CHECKIN_AWAITING_DOCUMENTS CheckinState = "awaiting_documents"
	CHECKIN_AWAITING_CONSENT   CheckinState = "awaiting_consent"
	CHECKIN_AWAITING_DEPOSIT   CheckinState = "awaiting_deposit"
	CHECKIN_AWAITING_APPROVAL  CheckinState = "awaiting_approval"
	CHECKIN_VERIFIED           CheckinState = "verified"
	CHECKIN_CHECKED_IN         CheckinState = "checked_in"
)

type NotificationType string

const (
	NOTIFICATION_PASSPORT_UPLOADED NotificationType = "passport_uploaded"
	NOTIFICATION_DEPOSIT_PAID      NotificationType = "deposit_paid"
)

type LoginRequestBody struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type CreateApartmentRequestBody struct {
	Name           string  `json:"name" binding:"required"`
	Address        string  `json:"address" binding:"required"`
	Description    string  `json:"description,omitempty"`
	AirbnbIcalURL  *string `json:"airbnb_ical_url,omitempty" binding:"omitempty,url"`
	BookingIcalURL *string `json:"booking_ical_url,omitempty" binding:"omitempty,url"`
	IcalURL        *string `json:"ical_url,omitempty" binding:"omitempty,url"`
}

type UpdateApartmentRequestBody struct {
	Name           *string `json:"name,omitempty"`
	Address        *string `json:"address,omitempty"`
	Description    *string `json:"description,omitempty"`
	AirbnbIcalURL  *string `json:"airbnb_ical_url,omitempty" binding:"omitempty,url"`
	BookingIcalURL *string `json:"booking_ical_url,omitempty" binding:"omitempty,url"`
	IcalURL        *string `json:"ical_url,omitempty" binding:"omitempty,url"`
	IsActive       *bool   `json:"is_active,omitempty"`
}

type CreateReservationRequestBody struct {
	ApartmentID     uint     `json:"apartment_id" binding:"required"`
	GuestName       string   `json:"guest_name" binding:"required"`
	GuestEmail      *string  `json:"guest_email,omitempty" binding:"omitempty,email"`
	GuestPhone      string   `json:"guest_phone" binding:"required"`
	CheckIn         string   `json:"check_in" binding:"required" time_format:"2006-01-02 15:04:05 -07:00"`
	CheckOut        string   `json:"check_out" binding:"required,gtdate=CheckIn" time_format:"2006-01-02 15:04:05 -07:00"`
	Notes           *string  `json:"notes,omitempty"`
	DepositRequired bool     `json:"deposit_required,omitempty"`
	DepositAmount   *float64 `json:"deposit_amount,omitempty"`
}

type ReviewPassportRequestBody struct {
	Action          string `json:"action" binding:"required,oneof=approve reject"`
	RejectionReason string `json:"rejection_reason,omitempty"`
}

type PayDepositRequestBody struct {
	CardLast4 string `json:"card_last4,omitempty"`
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type CheckinTokenParams struct {
	Token string `uri:"token" binding:"required"`
}

type AvailabilityQueryParams struct {
	ApartmentID          uint   `form:"apartment_id" binding:"required"`
	CheckIn              string `form:"check_in" binding:"required"`
	CheckOut             string `form:"check_out" binding:"required"`
	ExcludeReservationID *uint  `form:"exclude_reservation_id"`
}
