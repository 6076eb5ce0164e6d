package common

import (
	"errors"
	"net/http"

	"smartcheckin/src/db"
	"smartcheckin/src/models"
	"smartcheckin/src/types"
	"smartcheckin/src/utils"

	"gorm.io/gorm"
)

// CreateReservation inserts a manual reservation after checking the dates
// against existing reservations and external calendar blocks. The
// availability check and the insert share one transaction.
func CreateReservation(ownerID uint, body *types.CreateReservationRequestBody) (*models.Reservation, *Conflict, int, error) {
	if body.DepositRequired && (body.DepositAmount == nil || *body.DepositAmount <= 0) {
		return nil, nil, http.StatusBadRequest, errors.New("A positive deposit amount is required when a deposit is enabled")
	}

	dbi := db.GetDb()
	var apartments []models.Apartment
	if err := dbi.
		Where("id = ? AND owner_id = ?", body.ApartmentID, ownerID).
		Limit(1).
		Find(&apartments).Error; err != nil {
		return nil, nil, http.StatusInternalServerError, err
	}
	if len(apartments) == 0 {
		return nil, nil, http.StatusNotFound, errors.New("Apartment not found")
	}

	checkIn, err := utils.ParseStayDate(body.CheckIn)
	if err != nil {
		return nil, nil, http.StatusBadRequest, errors.New("Invalid check-in date")
	}
	checkOut, err := utils.ParseStayDate(body.CheckOut)
	if err != nil {
		return nil, nil, http.StatusBadRequest, errors.New("Invalid check-out date")
	}
	if !checkOut.After(checkIn) {
		return nil, nil, http.StatusBadRequest, errors.New("Check-out must be after check-in")
	}

	reservation := models.Reservation{
		ApartmentID:     body.ApartmentID,
		GuestName:       body.GuestName,
		GuestEmail:      body.GuestEmail,
		GuestPhone:      body.GuestPhone,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Status:          types.RESERVATION_PENDING,
		Source:          string(types.CHANNEL_MANUAL),
		Notes:           body.Notes,
		DepositRequired: body.DepositRequired,
		DepositAmount:   body.DepositAmount,
		CheckinToken:    utils.GenerateCheckinToken(),
	}

	var conflict *Conflict
	err = dbi.Transaction(func(tx *gorm.DB) error {
		c, err := CheckAvailability(tx, body.ApartmentID, checkIn, checkOut, nil)
		if err != nil {
			return err
		}
		if c != nil {
			conflict = c
			return errors.New("dates unavailable")
		}
		if err := tx.Create(&reservation).Error; err != nil {
			return err
		}
		if reservation.DepositRequired {
			return tx.Create(&models.Deposit{
				ReservationID: reservation.ID,
				Amount:        *reservation.DepositAmount,
				Status:        types.DEPOSIT_PENDING,
			}).Error
		}
		return nil
	})
	if err != nil {
		if conflict != nil {
			return nil, conflict, http.StatusConflict, errors.New("The selected dates are not available")
		}
		return nil, nil, http.StatusInternalServerError, err
	}
	return &reservation, nil, http.StatusCreated, nil
}
