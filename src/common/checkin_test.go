package common

import (
	"testing"
	"time"

	"smartcheckin/src/db"
	"smartcheckin/src/models"
	"smartcheckin/src/types"
	"smartcheckin/src/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type CheckinTestSuite struct {
	suite.Suite
	DB    *gorm.DB
	Owner models.Owner
}

func (s *CheckinTestSuite) SetupSuite() {
	d := newTestDB(s.T(), "checkin_test")
	db.NewDB(d)
	s.DB = d

	s.Owner = models.Owner{Email: "host@example.com", Name: "Host"}
	if err := d.Create(&s.Owner).Error; err != nil {
		s.T().Fatalf("Could not create owner: %s", err.Error())
	}
}

func (s *CheckinTestSuite) TearDownSuite() {
	inner, err := s.DB.DB()
	if err != nil {
		return
	}
	inner.Close()
}

func (s *CheckinTestSuite) SetupTest() {
	s.DB.Exec("DELETE FROM access_codes")
	s.DB.Exec("DELETE FROM deposits")
	s.DB.Exec("DELETE FROM guests")
	s.DB.Exec("DELETE FROM reservations")
	s.DB.Exec("DELETE FROM notifications")
	s.DB.Exec("DELETE FROM apartments")
}

func (s *CheckinTestSuite) newReservation(depositRequired bool) *models.Reservation {
	apartment := models.Apartment{
		OwnerID:  s.Owner.ID,
		Name:     "Riverside Flat",
		Address:  "1 River Rd",
		IsActive: true,
	}
	s.Require().NoError(s.DB.Create(&apartment).Error)

	amount := 200.0
	today := time.Now()
	checkIn := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.Local)
	reservation := models.Reservation{
		ApartmentID:     apartment.ID,
		GuestName:       "John Smith",
		GuestPhone:      "+995555123456",
		CheckIn:         checkIn,
		CheckOut:        checkIn.AddDate(0, 0, 3),
		Status:          types.RESERVATION_PENDING,
		Source:          string(types.CHANNEL_MANUAL),
		CheckinToken:    utils.GenerateCheckinToken(),
		DepositRequired: depositRequired,
	}
	if depositRequired {
		reservation.DepositAmount = &amount
	}
	s.Require().NoError(s.DB.Create(&reservation).Error)
	return &reservation
}

func (s *CheckinTestSuite) addGuest(r *models.Reservation, consent bool, status types.PassportStatus) *models.Guest {
	guest := models.Guest{
		ReservationID:  r.ID,
		PassportImages: types.StringArray{"/uploads/passports/riverside-flat/1/doc.jpg"},
		PassportStatus: status,
		ConsentGiven:   consent,
	}
	if consent {
		now := time.Now()
		guest.ConsentDate = &now
	}
	s.Require().NoError(s.DB.Create(&guest).Error)
	return &guest
}

func (s *CheckinTestSuite) TestDeriveStatePriorities() {
	r := &models.Reservation{Status: types.RESERVATION_PENDING}
	assert.Equal(s.T(), types.CHECKIN_AWAITING_DOCUMENTS, DeriveState(r))

	r.Guest = &models.Guest{PassportImages: types.StringArray{"a.jpg"}}
	assert.Equal(s.T(), types.CHECKIN_AWAITING_CONSENT, DeriveState(r))

	r.Guest.ConsentGiven = true
	r.DepositRequired = true
	assert.Equal(s.T(), types.CHECKIN_AWAITING_DEPOSIT, DeriveState(r))

	r.Deposit = &models.Deposit{Status: types.DEPOSIT_PAID}
	r.Guest.PassportStatus = types.PASSPORT_PENDING
	assert.Equal(s.T(), types.CHECKIN_AWAITING_APPROVAL, DeriveState(r))

	r.Guest.PassportStatus = types.PASSPORT_APPROVED
	assert.Equal(s.T(), types.CHECKIN_VERIFIED, DeriveState(r))

	r.AccessCode = &models.AccessCode{Code: "123456"}
	assert.Equal(s.T(), types.CHECKIN_CHECKED_IN, DeriveState(r))
}

func (s *CheckinTestSuite) TestStatusUnknownToken() {
	_, code, err := GetCheckinStatus("no-such-token")
	assert.Error(s.T(), err)
	assert.Equal(s.T(), 404, code)
}

func (s *CheckinTestSuite) TestStatusExpiredStay() {
	r := s.newReservation(false)
	s.DB.Model(&models.Reservation{}).
		Where("id = ?", r.ID).
		Update("check_out", time.Now().AddDate(0, 0, -1))

	_, code, err := GetCheckinStatus(r.CheckinToken)
	assert.Error(s.T(), err)
	assert.Equal(s.T(), 410, code)
}

func (s *CheckinTestSuite) TestStatusCancelledReservation() {
	r := s.newReservation(false)
	s.DB.Model(&models.Reservation{}).
		Where("id = ?", r.ID).
		Update("status", types.RESERVATION_CANCELLED)

	_, code, err := GetCheckinStatus(r.CheckinToken)
	assert.Error(s.T(), err)
	assert.Equal(s.T(), 410, code)
}

func (s *CheckinTestSuite) TestConsentRequiresDocuments() {
	r := s.newReservation(false)
	_, code, err := GiveConsent(r.CheckinToken)
	assert.Error(s.T(), err)
	assert.Equal(s.T(), 400, code)
}

func (s *CheckinTestSuite) TestConsentIsIdempotent() {
	r := s.newReservation(false)
	s.addGuest(r, false, types.PASSPORT_PENDING)

	guest, code, err := GiveConsent(r.CheckinToken)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), 200, code)
	assert.True(s.T(), guest.ConsentGiven)
	first := *guest.ConsentDate

	guest, _, err = GiveConsent(r.CheckinToken)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), first.Unix(), guest.ConsentDate.Unix())
}

func (s *CheckinTestSuite) TestReviewRejectNeedsReason() {
	r := s.newReservation(false)
	guest := s.addGuest(r, true, types.PASSPORT_PENDING)

	_, code, err := ReviewPassport(s.Owner.ID, guest.ID, "reject", "")
	assert.Error(s.T(), err)
	assert.Equal(s.T(), 400, code)

	reviewed, code, err := ReviewPassport(s.Owner.ID, guest.ID, "reject", "Photo is blurry")
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), 200, code)
	assert.Equal(s.T(), types.PASSPORT_REJECTED, reviewed.PassportStatus)
	assert.Equal(s.T(), "Photo is blurry", *reviewed.RejectionReason)

	// The owner may reverse a decision; approval clears the reason.
	reviewed, _, err = ReviewPassport(s.Owner.ID, guest.ID, "approve", "")
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), types.PASSPORT_APPROVED, reviewed.PassportStatus)
	assert.Nil(s.T(), reviewed.RejectionReason)
}

func (s *CheckinTestSuite) TestReviewForeignGuestIsNotFound() {
	other := models.Owner{Email: "other@example.com"}
	s.Require().NoError(s.DB.Create(&other).Error)

	r := s.newReservation(false)
	guest := s.addGuest(r, true, types.PASSPORT_PENDING)

	_, code, err := ReviewPassport(other.ID, guest.ID, "approve", "")
	assert.Error(s.T(), err)
	assert.Equal(s.T(), 404, code)
}

func (s *CheckinTestSuite) TestPayDepositMockFlow() {
	r := s.newReservation(true)
	s.addGuest(r, true, types.PASSPORT_PENDING)

	payment, code, err := PayDeposit(r.CheckinToken, "4242424242424242")
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), 200, code)
	assert.Equal(s.T(), types.DEPOSIT_PAID, payment.Deposit.Status)
	assert.NotNil(s.T(), payment.Deposit.TransactionID)
	assert.Contains(s.T(), *payment.Deposit.TransactionID, "MOCK-")
	assert.Contains(s.T(), *payment.Deposit.TransactionID, "4242")
	assert.NotNil(s.T(), payment.Deposit.PaidAt)

	// A settled deposit cannot be paid twice.
	again, code, err := PayDeposit(r.CheckinToken, "4242")
	assert.Error(s.T(), err)
	assert.Equal(s.T(), 400, code)
	assert.Equal(s.T(), "Deposit already paid", err.Error())
	assert.Nil(s.T(), again)

	var stored models.Deposit
	assert.NoError(s.T(), s.DB.Where("reservation_id = ?", r.ID).First(&stored).Error)
	assert.Equal(s.T(), *payment.Deposit.TransactionID, *stored.TransactionID)
}

func (s *CheckinTestSuite) TestPayDepositRequiresConsent() {
	r := s.newReservation(true)
	s.addGuest(r, false, types.PASSPORT_PENDING)

	_, code, err := PayDeposit(r.CheckinToken, "")
	assert.Error(s.T(), err)
	assert.Equal(s.T(), 400, code)
}

func (s *CheckinTestSuite) TestPayDepositNotRequired() {
	r := s.newReservation(false)
	s.addGuest(r, true, types.PASSPORT_APPROVED)

	_, code, err := PayDeposit(r.CheckinToken, "")
	assert.Error(s.T(), err)
	assert.Equal(s.T(), 400, code)
}

func (s *CheckinTestSuite) TestCompleteBlockedWhilePending() {
	r := s.newReservation(false)
	s.addGuest(r, true, types.PASSPORT_PENDING)

	_, code, err := CompleteCheckin(r.CheckinToken)
	assert.Error(s.T(), err)
	assert.Equal(s.T(), 400, code)
	ferr, ok := err.(*FlowError)
	assert.True(s.T(), ok)
	assert.Equal(s.T(), CodePassportPending, ferr.Code)
}

func (s *CheckinTestSuite) TestCompleteBlockedWhenRejected() {
	r := s.newReservation(false)
	guest := s.addGuest(r, true, types.PASSPORT_REJECTED)
	reason := "Document expired"
	s.DB.Model(&models.Guest{}).Where("id = ?", guest.ID).Update("rejection_reason", reason)

	_, code, err := CompleteCheckin(r.CheckinToken)
	assert.Error(s.T(), err)
	assert.Equal(s.T(), 400, code)
	ferr, ok := err.(*FlowError)
	assert.True(s.T(), ok)
	assert.Equal(s.T(), CodePassportRejected, ferr.Code)
	assert.Equal(s.T(), reason, ferr.Reason)
}

func (s *CheckinTestSuite) TestCompleteBlockedByUnpaidDeposit() {
	r := s.newReservation(true)
	s.addGuest(r, true, types.PASSPORT_APPROVED)

	_, code, err := CompleteCheckin(r.CheckinToken)
	assert.Error(s.T(), err)
	assert.Equal(s.T(), 400, code)
	ferr, ok := err.(*FlowError)
	assert.True(s.T(), ok)
	assert.Equal(s.T(), CodeDepositPending, ferr.Code)
}

func (s *CheckinTestSuite) TestCompleteIssuesCodeOnceAndIsIdempotent() {
	r := s.newReservation(false)
	s.addGuest(r, true, types.PASSPORT_APPROVED)

	accessCode, code, err := CompleteCheckin(r.CheckinToken)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), 200, code)
	assert.Len(s.T(), accessCode.Code, 6)
	assert.Equal(s.T(), r.CheckIn.Unix(), accessCode.ValidFrom.Unix())
	assert.Equal(s.T(), r.CheckOut.Unix(), accessCode.ValidUntil.Unix())

	var refreshed models.Reservation
	s.DB.First(&refreshed, r.ID)
	assert.Equal(s.T(), types.RESERVATION_CHECKED_IN, refreshed.Status)

	var guest models.Guest
	s.DB.Where("reservation_id = ?", r.ID).First(&guest)
	assert.NotNil(s.T(), guest.CheckedInAt)

	again, code, err := CompleteCheckin(r.CheckinToken)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), 200, code)
	assert.Equal(s.T(), accessCode.Code, again.Code)

	var count int64
	s.DB.Model(&models.AccessCode{}).Where("reservation_id = ?", r.ID).Count(&count)
	assert.EqualValues(s.T(), 1, count)
}

func (s *CheckinTestSuite) TestUnlockRequiresCompletedCheckin() {
	r := s.newReservation(false)
	s.addGuest(r, true, types.PASSPORT_APPROVED)

	_, code, err := Unlock(r.CheckinToken)
	assert.Error(s.T(), err)
	assert.Equal(s.T(), 400, code)
}

func (s *CheckinTestSuite) TestUnlockOutsideValidityWindow() {
	r := s.newReservation(false)
	s.addGuest(r, true, types.PASSPORT_APPROVED)
	_, _, err := CompleteCheckin(r.CheckinToken)
	assert.NoError(s.T(), err)

	s.DB.Model(&models.AccessCode{}).
		Where("reservation_id = ?", r.ID).
		Update("valid_from", time.Now().Add(24*time.Hour))

	_, code, err := Unlock(r.CheckinToken)
	assert.Error(s.T(), err)
	assert.Equal(s.T(), 400, code)
}

func (s *CheckinTestSuite) TestUnlockDemoMode() {
	r := s.newReservation(false)
	s.addGuest(r, true, types.PASSPORT_APPROVED)
	_, _, err := CompleteCheckin(r.CheckinToken)
	assert.NoError(s.T(), err)

	message, code, err := Unlock(r.CheckinToken)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), 200, code)
	assert.Equal(s.T(), "Unlock command sent (demo mode)", message)
}

func (s *CheckinTestSuite) TestCreateReservationRejectsOverlap() {
	r := s.newReservation(false)

	body := &types.CreateReservationRequestBody{
		ApartmentID: r.ApartmentID,
		GuestName:   "Second Guest",
		GuestPhone:  "+995555000000",
		CheckIn:     r.CheckIn.AddDate(0, 0, 1).Format("2006-01-02"),
		CheckOut:    r.CheckOut.AddDate(0, 0, 1).Format("2006-01-02"),
	}
	_, conflict, code, err := CreateReservation(s.Owner.ID, body)
	assert.Error(s.T(), err)
	assert.Equal(s.T(), 409, code)
	assert.NotNil(s.T(), conflict)
	assert.Equal(s.T(), "reservation", conflict.Type)
	assert.Equal(s.T(), r.GuestName, conflict.GuestName)
}

func (s *CheckinTestSuite) TestCreateReservationBackToBackStays() {
	r := s.newReservation(false)

	// Check-in on the previous stay's check-out day is allowed.
	body := &types.CreateReservationRequestBody{
		ApartmentID: r.ApartmentID,
		GuestName:   "Next Guest",
		GuestPhone:  "+995555000001",
		CheckIn:     r.CheckOut.Format("2006-01-02"),
		CheckOut:    r.CheckOut.AddDate(0, 0, 2).Format("2006-01-02"),
	}
	created, conflict, code, err := CreateReservation(s.Owner.ID, body)
	assert.NoError(s.T(), err)
	assert.Nil(s.T(), conflict)
	assert.Equal(s.T(), 201, code)
	assert.NotEmpty(s.T(), created.CheckinToken)
}

func (s *CheckinTestSuite) TestCreateReservationDepositValidation() {
	r := s.newReservation(false)

	body := &types.CreateReservationRequestBody{
		ApartmentID:     r.ApartmentID,
		GuestName:       "Deposit Guest",
		GuestPhone:      "+995555000002",
		CheckIn:         time.Now().AddDate(0, 1, 0).Format("2006-01-02"),
		CheckOut:        time.Now().AddDate(0, 1, 3).Format("2006-01-02"),
		DepositRequired: true,
	}
	_, _, code, err := CreateReservation(s.Owner.ID, body)
	assert.Error(s.T(), err)
	assert.Equal(s.T(), 400, code)

	amount := 150.0
	body.DepositAmount = &amount
	created, _, code, err := CreateReservation(s.Owner.ID, body)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), 201, code)

	var deposit models.Deposit
	assert.NoError(s.T(), s.DB.Where("reservation_id = ?", created.ID).First(&deposit).Error)
	assert.Equal(s.T(), amount, deposit.Amount)
	assert.Equal(s.T(), types.DEPOSIT_PENDING, deposit.Status)
}

func TestCheckinTestSuite(t *testing.T) {
	suite.Run(t, new(CheckinTestSuite))
}
