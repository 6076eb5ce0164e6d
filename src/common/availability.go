package common

import (
	"time"

	"smartcheckin/src/models"
	"smartcheckin/src/types"

	"gorm.io/gorm"
)

// Conflict describes what is blocking a candidate date range: either an
// internal reservation or an external calendar block. When both overlap, the
// reservation is reported.
type Conflict struct {
	Type      string     `json:"type"`
	GuestName string     `json:"guest_name,omitempty"`
	CheckIn   *time.Time `json:"check_in,omitempty"`
	CheckOut  *time.Time `json:"check_out,omitempty"`
	Source    string     `json:"source,omitempty"`
	Summary   string     `json:"summary,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// CheckAvailability reports whether [checkIn, checkOut) collides with a
// non-cancelled reservation or an external calendar block for the apartment.
// Overlap is half-open: a checkout equal to another stay's checkin is fine.
// This pre-check gives a usable error message; the exclusion constraint at
// the persistence layer is what actually closes the race.
func CheckAvailability(tx *gorm.DB, apartmentID uint, checkIn, checkOut time.Time, excludeReservationID *uint) (*Conflict, error) {
	q := tx.
		Model(&models.Reservation{}).
		Where("apartment_id = ?", apartmentID).
		Where("status <> ?", types.RESERVATION_CANCELLED).
		Where("check_in < ? AND check_out > ?", checkOut, checkIn)
	if excludeReservationID != nil {
		q = q.Where("id <> ?", *excludeReservationID)
	}
	var reservations []models.Reservation
	if err := q.Limit(1).Find(&reservations).Error; err != nil {
		return nil, err
	}
	if len(reservations) > 0 {
		r := reservations[0]
		return &Conflict{
			Type:      "reservation",
			GuestName: r.GuestName,
			CheckIn:   &r.CheckIn,
			CheckOut:  &r.CheckOut,
			Source:    r.Source,
		}, nil
	}

	var events []models.CalendarEvent
	if err := tx.
		Model(&models.CalendarEvent{}).
		Where("apartment_id = ?", apartmentID).
		Where("start_date < ? AND end_date > ?", checkOut, checkIn).
		Limit(1).
		Find(&events).Error; err != nil {
		return nil, err
	}
	if len(events) > 0 {
		e := events[0]
		return &Conflict{
			Type:      "ical",
			Summary:   e.Summary,
			StartDate: &e.StartDate,
			EndDate:   &e.EndDate,
		}, nil
	}
	return nil, nil
}
