package common

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"smartcheckin/src/db"
	"smartcheckin/src/lib"
	"smartcheckin/src/models"
	"smartcheckin/src/types"
	"smartcheckin/src/utils"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// DeriveState maps a reservation's persisted facts onto the guest flow step.
// The state is never stored; it is recomputed on every read so the flow can
// not drift out of sync with the underlying records.
func DeriveState(r *models.Reservation) types.CheckinState {
	if r.AccessCode != nil || r.Status == types.RESERVATION_CHECKED_IN {
		return types.CHECKIN_CHECKED_IN
	}
	if r.Guest == nil || len(r.Guest.PassportImages) == 0 {
		return types.CHECKIN_AWAITING_DOCUMENTS
	}
	if !r.Guest.ConsentGiven {
		return types.CHECKIN_AWAITING_CONSENT
	}
	if r.DepositRequired && (r.Deposit == nil || r.Deposit.Status != types.DEPOSIT_PAID) {
		return types.CHECKIN_AWAITING_DEPOSIT
	}
	if r.Guest.PassportStatus != types.PASSPORT_APPROVED {
		return types.CHECKIN_AWAITING_APPROVAL
	}
	return types.CHECKIN_VERIFIED
}

// loadReservationByToken is the shared entry point of every guest-facing
// operation. Unknown tokens are a 404; known tokens whose stay already ended
// or whose reservation was cancelled are 410 so clients can stop retrying.
func loadReservationByToken(token string) (*models.Reservation, int, error) {
	var reservations []models.Reservation
	err := db.GetDb().
		Preload("Apartment").
		Preload("Apartment.SmartLock").
		Preload("Guest").
		Preload("Deposit").
		Preload("AccessCode").
		Where("checkin_token = ?", token).
		Limit(1).
		Find(&reservations).Error
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	if len(reservations) == 0 {
		return nil, http.StatusNotFound, errors.New("Reservation not found")
	}
	r := &reservations[0]
	if r.Status == types.RESERVATION_CANCELLED {
		return nil, http.StatusGone, errors.New("Reservation was cancelled")
	}
	if time.Now().After(r.CheckOut) {
		return nil, http.StatusGone, errors.New("Check-in link has expired")
	}
	return r, http.StatusOK, nil
}

type CheckinStatus struct {
	State       types.CheckinState `json:"state"`
	GuestName   string             `json:"guest_name"`
	Apartment   string             `json:"apartment"`
	Address     string             `json:"address"`
	CheckIn     time.Time          `json:"check_in"`
	CheckOut    time.Time          `json:"check_out"`
	Deposit    *models.Deposit    `json:"deposit,omitempty"`
	Guest      *models.Guest      `json:"guest,omitempty"`
	AccessCode *models.AccessCode `json:"access_code,omitempty"`
}

// GetCheckinStatus returns the guest view of a reservation.
func GetCheckinStatus(token string) (*CheckinStatus, int, error) {
	r, status, err := loadReservationByToken(token)
	if err != nil {
		return nil, status, err
	}
	return &CheckinStatus{
		State:      DeriveState(r),
		GuestName:  r.GuestName,
		Apartment:  r.Apartment.Name,
		Address:    r.Apartment.Address,
		CheckIn:    r.CheckIn,
		CheckOut:   r.CheckOut,
		Deposit:    r.Deposit,
		Guest:      r.Guest,
		AccessCode: r.AccessCode,
	}, http.StatusOK, nil
}

type UploadResult struct {
	Guest    *models.Guest `json:"guest"`
	Accepted int           `json:"accepted"`
}

// UploadPassports stores the accepted documents and appends them to the
// guest record, creating it on first upload. Unsupported files are skipped
// individually; the whole operation fails only when nothing was accepted.
// Any new upload puts the documents back under review.
func UploadPassports(token string, files []*multipart.FileHeader) (*UploadResult, int, error) {
	r, status, err := loadReservationByToken(token)
	if err != nil {
		return nil, status, err
	}
	if r.AccessCode != nil {
		return nil, http.StatusBadRequest, errors.New("Check-in is already complete")
	}

	keyPrefix := fmt.Sprintf("passports/%s/%d", slug.Make(r.Apartment.Name), r.ID)
	stored := types.StringArray{}
	for _, fh := range files {
		contentType := fh.Header.Get("Content-Type")
		if !utils.AllowedPassportType(contentType) {
			log.Printf("Skipping unsupported upload %s (%s)\n", fh.Filename, contentType)
			continue
		}
		name := fmt.Sprintf("%d-%s.%s", time.Now().UnixMilli(), utils.GenerateAccessCode(), utils.FileExt(fh.Filename))
		location, err := lib.StorePassportImage(context.Background(), keyPrefix, name, contentType, fh)
		if err != nil {
			return nil, http.StatusInternalServerError, err
		}
		stored = append(stored, location)
	}
	if len(stored) == 0 {
		return nil, http.StatusBadRequest, errors.New("No supported documents in upload")
	}

	var guest models.Guest
	err = db.GetDb().Transaction(func(tx *gorm.DB) error {
		var guests []models.Guest
		if err := tx.Where("reservation_id = ?", r.ID).Limit(1).Find(&guests).Error; err != nil {
			return err
		}
		if len(guests) == 0 {
			guest = models.Guest{
				ReservationID:  r.ID,
				PassportImages: stored,
				PassportStatus: types.PASSPORT_PENDING,
			}
			return tx.Create(&guest).Error
		}
		guest = guests[0]
		guest.PassportImages = append(guest.PassportImages, stored...)
		guest.PassportStatus = types.PASSPORT_PENDING
		guest.RejectionReason = nil
		return tx.Save(&guest).Error
	})
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}

	NotifyPassportUploaded(r, len(stored))
	return &UploadResult{Guest: &guest, Accepted: len(stored)}, http.StatusOK, nil
}

// GiveConsent records the guest's agreement to the house rules. Consent
// requires at least one uploaded document; repeating it is a no-op that
// keeps the original timestamp.
func GiveConsent(token string) (*models.Guest, int, error) {
	r, status, err := loadReservationByToken(token)
	if err != nil {
		return nil, status, err
	}
	if r.Guest == nil || len(r.Guest.PassportImages) == 0 {
		return nil, http.StatusBadRequest, errors.New("Upload your documents before giving consent")
	}
	if r.Guest.ConsentGiven {
		return r.Guest, http.StatusOK, nil
	}
	now := time.Now()
	err = db.GetDb().
		Model(&models.Guest{}).
		Where("id = ?", r.Guest.ID).
		Updates(map[string]any{"consent_given": true, "consent_date": now}).Error
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	r.Guest.ConsentGiven = true
	r.Guest.ConsentDate = &now
	return r.Guest, http.StatusOK, nil
}

// ReviewPassport applies the owner's approve or reject decision. Rejection
// requires a reason; approval clears any previous one. The owner may change
// a decision until check-in completes.
func ReviewPassport(ownerID uint, guestID uint, action string, reason string) (*models.Guest, int, error) {
	dbi := db.GetDb()
	var guests []models.Guest
	err := dbi.
		Joins("JOIN reservations ON reservations.id = guests.reservation_id").
		Joins("JOIN apartments ON apartments.id = reservations.apartment_id").
		Where("guests.id = ? AND apartments.owner_id = ?", guestID, ownerID).
		Limit(1).
		Find(&guests).Error
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	if len(guests) == 0 {
		return nil, http.StatusNotFound, errors.New("Guest not found")
	}
	guest := guests[0]

	switch action {
	case "approve":
		guest.PassportStatus = types.PASSPORT_APPROVED
		guest.RejectionReason = nil
	case "reject":
		if reason == "" {
			return nil, http.StatusBadRequest, errors.New("A rejection reason is required")
		}
		guest.PassportStatus = types.PASSPORT_REJECTED
		guest.RejectionReason = &reason
	default:
		return nil, http.StatusBadRequest, errors.New("Unknown review action")
	}
	if err := dbi.Save(&guest).Error; err != nil {
		return nil, http.StatusInternalServerError, err
	}
	return &guest, http.StatusOK, nil
}

type DepositPayment struct {
	Deposit    *models.Deposit `json:"deposit"`
	PaymentURL string          `json:"payment_url,omitempty"`
}

// PayDeposit starts (or mock-completes) the deposit payment. The deposit row
// is created lazily on first attempt. With a configured payment provider the
// guest is redirected to the vendor's page and the deposit stays pending
// until the callback lands; without one the payment succeeds immediately
// with a mock transaction id.
func PayDeposit(token string, cardLast4 string) (*DepositPayment, int, error) {
	r, status, err := loadReservationByToken(token)
	if err != nil {
		return nil, status, err
	}
	if !r.DepositRequired {
		return nil, http.StatusBadRequest, errors.New("No deposit is required for this reservation")
	}
	if r.Guest == nil || !r.Guest.ConsentGiven {
		return nil, http.StatusBadRequest, errors.New("Complete the previous check-in steps first")
	}

	dbi := db.GetDb()
	deposit := r.Deposit
	if deposit == nil {
		amount := 0.0
		if r.DepositAmount != nil {
			amount = *r.DepositAmount
		}
		deposit = &models.Deposit{
			ReservationID: r.ID,
			Amount:        amount,
			Currency:      "GEL",
			Status:        types.DEPOSIT_PENDING,
		}
		if err := dbi.Create(deposit).Error; err != nil {
			return nil, http.StatusInternalServerError, err
		}
	}
	if deposit.Status == types.DEPOSIT_PAID {
		return nil, http.StatusBadRequest, errors.New("Deposit already paid")
	}

	ipay := lib.GetIPayClient()
	if ipay.IsConfigured() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		res, err := ipay.CreatePayment(ctx, lib.PaymentRequest{
			OrderID: fmt.Sprintf("DEP-%d", deposit.ID),
			Amount:  deposit.Amount,
		})
		if err != nil {
			log.Printf("Payment creation failed for deposit %d: %s\n", deposit.ID, err.Error())
			return nil, http.StatusBadGateway, errors.New("Payment provider is unavailable, try again later")
		}
		if err := dbi.
			Model(&models.Deposit{}).
			Where("id = ?", deposit.ID).
			Update("transaction_id", res.TransactionID).Error; err != nil {
			return nil, http.StatusInternalServerError, err
		}
		deposit.TransactionID = &res.TransactionID
		return &DepositPayment{Deposit: deposit, PaymentURL: res.PaymentURL}, http.StatusOK, nil
	}

	// No provider configured: simulate a successful card payment so the demo
	// flow can proceed end to end.
	last4 := cardLast4
	if len(last4) > 4 {
		last4 = last4[len(last4)-4:]
	}
	txid := fmt.Sprintf("MOCK-%d-%s", time.Now().UnixMilli(), last4)
	now := time.Now()
	err = dbi.
		Model(&models.Deposit{}).
		Where("id = ?", deposit.ID).
		Updates(map[string]any{
			"status":         types.DEPOSIT_PAID,
			"transaction_id": txid,
			"paid_at":        now,
		}).Error
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	deposit.Status = types.DEPOSIT_PAID
	deposit.TransactionID = &txid
	deposit.PaidAt = &now

	NotifyDepositPaid(r, deposit.Amount, deposit.Currency)
	return &DepositPayment{Deposit: deposit}, http.StatusOK, nil
}

// ConfirmDeposit marks a paid deposit as acknowledged by the owner.
func ConfirmDeposit(ownerID uint, depositID uint) (*models.Deposit, int, error) {
	dbi := db.GetDb()
	var deposits []models.Deposit
	err := dbi.
		Joins("JOIN reservations ON reservations.id = deposits.reservation_id").
		Joins("JOIN apartments ON apartments.id = reservations.apartment_id").
		Where("deposits.id = ? AND apartments.owner_id = ?", depositID, ownerID).
		Limit(1).
		Find(&deposits).Error
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	if len(deposits) == 0 {
		return nil, http.StatusNotFound, errors.New("Deposit not found")
	}
	deposit := deposits[0]
	if deposit.Status != types.DEPOSIT_PAID {
		return nil, http.StatusBadRequest, errors.New("Only a paid deposit can be confirmed")
	}
	now := time.Now()
	deposit.OwnerConfirmed = true
	deposit.OwnerConfirmedAt = &now
	if err := dbi.Save(&deposit).Error; err != nil {
		return nil, http.StatusInternalServerError, err
	}
	return &deposit, http.StatusOK, nil
}

// CompleteCheckin verifies every precondition, then issues the access code.
// Calling it again after success returns the existing code unchanged. The
// smart-lock passcode push is best effort: a vendor failure never blocks the
// guest, the code simply stays manual-entry only.
func CompleteCheckin(token string) (*models.AccessCode, int, error) {
	r, status, err := loadReservationByToken(token)
	if err != nil {
		return nil, status, err
	}
	if r.AccessCode != nil {
		return r.AccessCode, http.StatusOK, nil
	}
	if r.Guest == nil || len(r.Guest.PassportImages) == 0 {
		return nil, http.StatusBadRequest, errors.New("Upload your documents first")
	}
	if !r.Guest.ConsentGiven {
		return nil, http.StatusBadRequest, errors.New("Consent to the house rules first")
	}
	switch r.Guest.PassportStatus {
	case types.PASSPORT_APPROVED:
	case types.PASSPORT_REJECTED:
		ferr := NewFlowError(CodePassportRejected, "Your documents were rejected, upload new ones")
		if r.Guest.RejectionReason != nil {
			ferr.Reason = *r.Guest.RejectionReason
		}
		return nil, http.StatusBadRequest, ferr
	default:
		return nil, http.StatusBadRequest, NewFlowError(CodePassportPending, "Your documents are still under review")
	}
	if r.DepositRequired && (r.Deposit == nil || r.Deposit.Status != types.DEPOSIT_PAID) {
		return nil, http.StatusBadRequest, NewFlowError(CodeDepositPending, "Pay the security deposit first")
	}

	code := utils.GenerateAccessCode()
	lockID := "manual"
	if r.Apartment.SmartLock != nil {
		lockID = r.Apartment.SmartLock.VendorID
		pushLockPasscode(r, code)
	}

	accessCode := models.AccessCode{
		ReservationID: r.ID,
		LockID:        lockID,
		Code:          code,
		ValidFrom:     r.CheckIn,
		ValidUntil:    r.CheckOut,
		IsActive:      true,
	}
	now := time.Now()
	err = db.GetDb().Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&accessCode).Error; err != nil {
			return err
		}
		if err := tx.
			Model(&models.Guest{}).
			Where("id = ?", r.Guest.ID).
			Update("checked_in_at", now).Error; err != nil {
			return err
		}
		return tx.
			Model(&models.Reservation{}).
			Where("id = ?", r.ID).
			Update("status", types.RESERVATION_CHECKED_IN).Error
	})
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	return &accessCode, http.StatusOK, nil
}

// pushLockPasscode registers the generated code on the apartment's smart
// lock. Failures are logged and swallowed.
func pushLockPasscode(r *models.Reservation, code string) {
	ttlock := lib.GetTTLockClient()
	if !ttlock.IsConfigured() {
		return
	}
	lockID, err := strconv.ParseInt(r.Apartment.SmartLock.VendorID, 10, 64)
	if err != nil {
		log.Printf("Invalid lock vendor id %q for apartment %d\n", r.Apartment.SmartLock.VendorID, r.ApartmentID)
		return
	}
	var tokens []models.LockToken
	if err := db.GetDb().Where("owner_id = ?", r.Apartment.OwnerID).Limit(1).Find(&tokens).Error; err != nil || len(tokens) == 0 {
		log.Printf("No lock token for owner %d, passcode stays manual\n", r.Apartment.OwnerID)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	label := fmt.Sprintf("Guest: %s", r.GuestName)
	if _, err := ttlock.CreatePasscode(ctx, tokens[0].AccessToken, lockID, code, r.CheckIn, r.CheckOut, label); err != nil {
		log.Printf("Could not push passcode to lock %d: %s\n", lockID, err.Error())
	}
}

// Unlock fires a remote unlock for a checked-in guest inside the code's
// validity window. When the vendor call fails or no lock is configured the
// request still succeeds in demo mode so on-site testing is possible.
func Unlock(token string) (string, int, error) {
	r, status, err := loadReservationByToken(token)
	if err != nil {
		return "", status, err
	}
	if r.AccessCode == nil || r.Status != types.RESERVATION_CHECKED_IN {
		return "", http.StatusBadRequest, errors.New("Complete your check-in first")
	}
	now := time.Now()
	if now.Before(r.AccessCode.ValidFrom) || now.After(r.AccessCode.ValidUntil) {
		return "", http.StatusBadRequest, errors.New("Access code is not valid at this time")
	}

	ttlock := lib.GetTTLockClient()
	if r.Apartment.SmartLock != nil && ttlock.IsConfigured() {
		if lockID, err := strconv.ParseInt(r.Apartment.SmartLock.VendorID, 10, 64); err == nil {
			var tokens []models.LockToken
			if err := db.GetDb().Where("owner_id = ?", r.Apartment.OwnerID).Limit(1).Find(&tokens).Error; err == nil && len(tokens) > 0 {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if uerr := ttlock.Unlock(ctx, tokens[0].AccessToken, lockID); uerr == nil {
					return "Door unlocked via smart lock", http.StatusOK, nil
				} else {
					log.Printf("Remote unlock failed for lock %d: %s\n", lockID, uerr.Error())
				}
			}
		}
	}
	return "Unlock command sent (demo mode)", http.StatusOK, nil
}
