package common

import (
	"context"
	"fmt"
	"log"
	"time"

	"smartcheckin/src/db"
	"smartcheckin/src/ical"
	"smartcheckin/src/lib"
	"smartcheckin/src/models"
	"smartcheckin/src/types"
	"smartcheckin/src/utils"

	"gorm.io/gorm"
)

type FeedSyncResult struct {
	EventsSeen int `json:"events_seen"`
	Created    int `json:"created"`
	Updated    int `json:"updated"`
}

type ApartmentSyncResult struct {
	ApartmentID   uint   `json:"apartment_id"`
	ApartmentName string `json:"apartment_name"`
	Success       bool   `json:"success"`
	Events        int    `json:"events"`
	Error         string `json:"error,omitempty"`
}

// ErrSyncInProgress is returned when a bulk sync is already holding the
// coordination lease.
var ErrSyncInProgress = fmt.Errorf("calendar sync already in progress")

// ReconcileFeed fetches one calendar feed and merges its events into the
// apartment's stored calendar. Events are keyed by (apartment, uid): a known
// uid updates the existing row in place, a new uid inserts a row and only
// then may materialize a pending reservation. Re-running against an
// unchanged feed creates nothing new.
func ReconcileFeed(apartmentID uint, feedURL string, channel types.Channel) (*FeedSyncResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	content, err := lib.FetchCalendar(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	events := ical.FilterActive(ical.Parse(content, feedURL), time.Now())
	result := &FeedSyncResult{EventsSeen: len(events)}

	dbi := db.GetDb()
	for _, ev := range events {
		ev := ev
		err := dbi.Transaction(func(tx *gorm.DB) error {
			var existing []models.CalendarEvent
			if err := tx.
				Where("apartment_id = ? AND uid = ?", apartmentID, ev.UID).
				Limit(1).
				Find(&existing).Error; err != nil {
				return err
			}

			if len(existing) > 0 {
				if err := tx.
					Model(&models.CalendarEvent{}).
					Where("id = ?", existing[0].ID).
					Updates(map[string]any{
						"summary":    ev.Summary,
						"start_date": ev.StartDate,
						"end_date":   ev.EndDate,
					}).Error; err != nil {
					return err
				}
				result.Updated++
				return nil
			}

			if err := tx.Create(&models.CalendarEvent{
				ApartmentID: apartmentID,
				UID:         ev.UID,
				Summary:     ev.Summary,
				StartDate:   ev.StartDate,
				EndDate:     ev.EndDate,
			}).Error; err != nil {
				return err
			}
			result.Created++

			// Run the materialization in a savepoint so a reservation
			// conflict never takes the event row down with it.
			if err := tx.Transaction(func(tx *gorm.DB) error {
				return materializeReservation(tx, apartmentID, ev, channel)
			}); err != nil {
				log.Printf("[calendar-sync] skipping reservation for event %s: %s\n", ev.UID, err.Error())
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

// materializeReservation turns a newly seen feed event into a pending
// reservation. Placeholder blocks never become reservations, and an event
// whose stay window overlaps an existing live reservation is left alone.
// That guards against double materialization across syncs and keeps the
// insert clear of the reservations_no_overlap constraint.
func materializeReservation(tx *gorm.DB, apartmentID uint, ev ical.Event, channel types.Channel) error {
	name, phone := ical.ExtractGuestInfo(ev)
	if name == ical.PlaceholderGuestName {
		return nil
	}

	var existing []models.Reservation
	if err := tx.
		Where("apartment_id = ? AND status <> ? AND check_in < ? AND check_out > ?",
			apartmentID, types.RESERVATION_CANCELLED, ev.EndDate, ev.StartDate).
		Limit(1).
		Find(&existing).Error; err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	uid := ev.UID
	return tx.Create(&models.Reservation{
		ApartmentID:  apartmentID,
		GuestName:    name,
		GuestPhone:   phone,
		CheckIn:      ev.StartDate,
		CheckOut:     ev.EndDate,
		Source:       string(channel),
		ExternalID:   &uid,
		Status:       types.RESERVATION_PENDING,
		CheckinToken: utils.GenerateCheckinToken(),
	}).Error
}

type feedSlot struct {
	url     *string
	channel types.Channel
	column  string
}

func feedSlots(apartment *models.Apartment) []feedSlot {
	return []feedSlot{
		{apartment.AirbnbIcalURL, types.CHANNEL_AIRBNB, "last_airbnb_sync"},
		{apartment.BookingIcalURL, types.CHANNEL_BOOKING, "last_booking_sync"},
		{apartment.IcalURL, types.CHANNEL_ICAL, "last_ical_sync"},
	}
}

// SyncApartment runs every configured feed of one apartment. Feeds fail
// independently: a broken feed is logged and its last-sync marker is simply
// not advanced, while the other feeds still run. Whatever markers did
// succeed are persisted in a single update afterwards.
func SyncApartment(apartment *models.Apartment) (*FeedSyncResult, error) {
	totals := &FeedSyncResult{}
	updates := map[string]any{}

	for _, slot := range feedSlots(apartment) {
		if slot.url == nil || *slot.url == "" {
			continue
		}
		result, err := ReconcileFeed(apartment.ID, *slot.url, slot.channel)
		if err != nil {
			log.Printf("[calendar-sync] %s feed failed for apartment %d (%s): %s\n", slot.channel, apartment.ID, apartment.Name, err.Error())
			continue
		}
		totals.EventsSeen += result.EventsSeen
		totals.Created += result.Created
		totals.Updated += result.Updated
		updates[slot.column] = time.Now()
	}

	if len(updates) > 0 {
		if err := db.GetDb().
			Model(&models.Apartment{}).
			Where("id = ?", apartment.ID).
			Updates(updates).Error; err != nil {
			return totals, err
		}
	}
	return totals, nil
}

// SyncAllApartments reconciles every active apartment that has at least one
// feed configured. Intended for the scheduler-guarded entry point; a short
// lease prevents an overlapping retrigger from running a second pass.
func SyncAllApartments() ([]ApartmentSyncResult, error) {
	ok, release := lib.AcquireLease(context.Background(), "sync:calendars", 10*time.Minute)
	if !ok {
		return nil, ErrSyncInProgress
	}
	defer release()

	dbi := db.GetDb()
	var apartments []models.Apartment
	if err := dbi.
		Model(&models.Apartment{}).
		Where("is_active = ?", true).
		Where("airbnb_ical_url IS NOT NULL OR booking_ical_url IS NOT NULL OR ical_url IS NOT NULL").
		Find(&apartments).Error; err != nil {
		return nil, err
	}

	log.Printf("[calendar-sync] Starting sync for %d apartments\n", len(apartments))
	results := make([]ApartmentSyncResult, 0, len(apartments))
	for i := range apartments {
		apartment := &apartments[i]
		totals, err := SyncApartment(apartment)
		r := ApartmentSyncResult{
			ApartmentID:   apartment.ID,
			ApartmentName: apartment.Name,
			Success:       err == nil,
			Events:        totals.EventsSeen,
		}
		if err != nil {
			r.Error = err.Error()
		} else {
			log.Printf("[calendar-sync] Synced %s: %d events\n", apartment.Name, totals.EventsSeen)
		}
		results = append(results, r)
	}
	return results, nil
}
