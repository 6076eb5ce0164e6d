package common

import (
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"smartcheckin/src/db"
	"smartcheckin/src/models"
	"smartcheckin/src/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type ReconcileTestSuite struct {
	suite.Suite
	DB        *gorm.DB
	Apartment models.Apartment
	Feed      string
	Server    *httptest.Server
}

func newTestDB(t *testing.T, name string) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	d, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("error opening test database: %s", err.Error())
	}
	err = d.AutoMigrate(
		&models.Owner{},
		&models.Apartment{},
		&models.Reservation{},
		&models.Guest{},
		&models.Deposit{},
		&models.AccessCode{},
		&models.CalendarEvent{},
		&models.SmartLock{},
		&models.LockToken{},
		&models.Notification{},
	)
	if err != nil {
		t.Fatalf("error migration: %s", err.Error())
	}
	return d
}

func (s *ReconcileTestSuite) SetupSuite() {
	d := newTestDB(s.T(), "reconcile_test")
	db.NewDB(d)
	s.DB = d

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, s.Feed)
	}))

	owner := models.Owner{Email: "owner@example.com", Name: "Test Owner"}
	if err := d.Create(&owner).Error; err != nil {
		log.Fatalf("Could not create owner: %s\n", err.Error())
	}
	feedURL := s.Server.URL + "/airbnb.ics"
	s.Apartment = models.Apartment{
		OwnerID:       owner.ID,
		Name:          "Old Town Loft",
		Address:       "12 Example St",
		IsActive:      true,
		AirbnbIcalURL: &feedURL,
	}
	if err := d.Create(&s.Apartment).Error; err != nil {
		log.Fatalf("Could not create apartment: %s\n", err.Error())
	}
}

func (s *ReconcileTestSuite) TearDownSuite() {
	s.Server.Close()
	inner, err := s.DB.DB()
	if err != nil {
		return
	}
	inner.Close()
}

func (s *ReconcileTestSuite) SetupTest() {
	s.DB.Exec("DELETE FROM calendar_events")
	s.DB.Exec("DELETE FROM reservations")
}

func feedDocument(events ...string) string {
	doc := "BEGIN:VCALENDAR\r\nVERSION:2.0\r\n"
	for _, e := range events {
		doc += e
	}
	return doc + "END:VCALENDAR\r\n"
}

func feedEvent(uid, summary string, start, end time.Time) string {
	return fmt.Sprintf(
		"BEGIN:VEVENT\r\nUID:%s\r\nDTSTART;VALUE=DATE:%s\r\nDTEND;VALUE=DATE:%s\r\nSUMMARY:%s\r\nEND:VEVENT\r\n",
		uid, start.Format("20060102"), end.Format("20060102"), summary,
	)
}

func (s *ReconcileTestSuite) TestReconcileIsIdempotent() {
	start := time.Now().AddDate(0, 0, 7)
	end := start.AddDate(0, 0, 3)
	s.Feed = feedDocument(
		feedEvent("uid-1@airbnb.com", "John Smith (HMABC)", start, end),
		feedEvent("uid-2@airbnb.com", "Reserved", end, end.AddDate(0, 0, 2)),
	)

	result, err := ReconcileFeed(s.Apartment.ID, *s.Apartment.AirbnbIcalURL, types.CHANNEL_AIRBNB)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), 2, result.EventsSeen)
	assert.Equal(s.T(), 2, result.Created)
	assert.Equal(s.T(), 0, result.Updated)

	result, err = ReconcileFeed(s.Apartment.ID, *s.Apartment.AirbnbIcalURL, types.CHANNEL_AIRBNB)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), 0, result.Created)
	assert.Equal(s.T(), 2, result.Updated)

	var count int64
	s.DB.Model(&models.CalendarEvent{}).Count(&count)
	assert.EqualValues(s.T(), 2, count)
}

func (s *ReconcileTestSuite) TestReconcileUpdatesChangedEvents() {
	start := time.Now().AddDate(0, 0, 7)
	end := start.AddDate(0, 0, 3)
	s.Feed = feedDocument(feedEvent("uid-3@airbnb.com", "Jane Doe", start, end))

	_, err := ReconcileFeed(s.Apartment.ID, *s.Apartment.AirbnbIcalURL, types.CHANNEL_AIRBNB)
	assert.NoError(s.T(), err)

	// Dates shift on the platform; same uid must update in place.
	s.Feed = feedDocument(feedEvent("uid-3@airbnb.com", "Jane Doe", start.AddDate(0, 0, 1), end.AddDate(0, 0, 1)))
	result, err := ReconcileFeed(s.Apartment.ID, *s.Apartment.AirbnbIcalURL, types.CHANNEL_AIRBNB)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), 0, result.Created)
	assert.Equal(s.T(), 1, result.Updated)

	var events []models.CalendarEvent
	s.DB.Where("apartment_id = ? AND uid = ?", s.Apartment.ID, "uid-3@airbnb.com").Find(&events)
	assert.Len(s.T(), events, 1)
}

func (s *ReconcileTestSuite) TestPlaceholderEventsDoNotMaterialize() {
	start := time.Now().AddDate(0, 0, 7)
	end := start.AddDate(0, 0, 3)
	s.Feed = feedDocument(
		feedEvent("uid-4@airbnb.com", "Not available", start, end),
		feedEvent("uid-5@airbnb.com", "Blocked", end, end.AddDate(0, 0, 2)),
	)

	_, err := ReconcileFeed(s.Apartment.ID, *s.Apartment.AirbnbIcalURL, types.CHANNEL_AIRBNB)
	assert.NoError(s.T(), err)

	var eventCount, reservationCount int64
	s.DB.Model(&models.CalendarEvent{}).Count(&eventCount)
	s.DB.Model(&models.Reservation{}).Count(&reservationCount)
	assert.EqualValues(s.T(), 2, eventCount)
	assert.EqualValues(s.T(), 0, reservationCount)
}

func (s *ReconcileTestSuite) TestNamedEventMaterializesPendingReservation() {
	start := time.Now().AddDate(0, 0, 7)
	end := start.AddDate(0, 0, 3)
	s.Feed = feedDocument(feedEvent("uid-6@airbnb.com", "John Smith", start, end))

	_, err := ReconcileFeed(s.Apartment.ID, *s.Apartment.AirbnbIcalURL, types.CHANNEL_AIRBNB)
	assert.NoError(s.T(), err)

	var reservations []models.Reservation
	s.DB.Where("apartment_id = ?", s.Apartment.ID).Find(&reservations)
	assert.Len(s.T(), reservations, 1)
	r := reservations[0]
	assert.Equal(s.T(), "John Smith", r.GuestName)
	assert.Equal(s.T(), types.RESERVATION_PENDING, r.Status)
	assert.Equal(s.T(), string(types.CHANNEL_AIRBNB), r.Source)
	assert.NotEmpty(s.T(), r.CheckinToken)
	assert.NotNil(s.T(), r.ExternalID)
	assert.Equal(s.T(), "uid-6@airbnb.com", *r.ExternalID)

	// A second sync of the same feed must not duplicate the reservation.
	_, err = ReconcileFeed(s.Apartment.ID, *s.Apartment.AirbnbIcalURL, types.CHANNEL_AIRBNB)
	assert.NoError(s.T(), err)
	var count int64
	s.DB.Model(&models.Reservation{}).Count(&count)
	assert.EqualValues(s.T(), 1, count)
}

func (s *ReconcileTestSuite) TestOverlappingEventKeepsFeedSyncing() {
	today := time.Now()
	day := func(offset int) time.Time {
		return time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.Local).AddDate(0, 0, offset)
	}

	booked := models.Reservation{
		ApartmentID:  s.Apartment.ID,
		GuestName:    "Existing Guest",
		CheckIn:      day(5),
		CheckOut:     day(8),
		Source:       "manual",
		Status:       types.RESERVATION_PENDING,
		CheckinToken: "token-overlap-test",
	}
	assert.NoError(s.T(), s.DB.Create(&booked).Error)

	s.Feed = feedDocument(
		feedEvent("uid-8@airbnb.com", "Clashing Guest", day(6), day(10)),
		feedEvent("uid-9@airbnb.com", "Later Guest", day(12), day(14)),
	)

	result, err := ReconcileFeed(s.Apartment.ID, *s.Apartment.AirbnbIcalURL, types.CHANNEL_AIRBNB)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), 2, result.Created)

	// Both event rows land even though one window is already booked.
	var events int64
	s.DB.Model(&models.CalendarEvent{}).Where("apartment_id = ?", s.Apartment.ID).Count(&events)
	assert.EqualValues(s.T(), 2, events)

	// The clashing event stays a bare calendar block; the later one
	// materializes as usual.
	var clashing int64
	s.DB.Model(&models.Reservation{}).Where("external_id = ?", "uid-8@airbnb.com").Count(&clashing)
	assert.EqualValues(s.T(), 0, clashing)

	var later []models.Reservation
	s.DB.Where("external_id = ?", "uid-9@airbnb.com").Find(&later)
	assert.Len(s.T(), later, 1)
	assert.Equal(s.T(), "Later Guest", later[0].GuestName)
}

func (s *ReconcileTestSuite) TestPastEventsAreIgnored() {
	start := time.Now().AddDate(0, 0, -10)
	end := start.AddDate(0, 0, 3)
	s.Feed = feedDocument(feedEvent("uid-7@airbnb.com", "Old Guest", start, end))

	result, err := ReconcileFeed(s.Apartment.ID, *s.Apartment.AirbnbIcalURL, types.CHANNEL_AIRBNB)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), 0, result.EventsSeen)

	var count int64
	s.DB.Model(&models.CalendarEvent{}).Count(&count)
	assert.EqualValues(s.T(), 0, count)
}

func (s *ReconcileTestSuite) TestSyncApartmentAdvancesOnlySucceededFeeds() {
	badServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer badServer.Close()

	start := time.Now().AddDate(0, 0, 7)
	s.Feed = feedDocument(feedEvent("uid-8@airbnb.com", "Working Feed Guest", start, start.AddDate(0, 0, 2)))

	badURL := badServer.URL + "/booking.ics"
	apartment := s.Apartment
	apartment.BookingIcalURL = &badURL

	_, err := SyncApartment(&apartment)
	assert.NoError(s.T(), err)

	var refreshed models.Apartment
	s.DB.First(&refreshed, apartment.ID)
	assert.NotNil(s.T(), refreshed.LastAirbnbSync)
	assert.Nil(s.T(), refreshed.LastBookingSync)
}

func TestReconcileTestSuite(t *testing.T) {
	suite.Run(t, new(ReconcileTestSuite))
}
