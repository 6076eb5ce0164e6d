package common

import (
	"fmt"
	"log"
	"os"

	"smartcheckin/src/db"
	"smartcheckin/src/lib"
	"smartcheckin/src/models"
	"smartcheckin/src/types"
)

// CreateNotification records an owner notification and, when mail is
// configured, sends a copy by email. Notification failures never fail the
// guest operation that triggered them.
func CreateNotification(ownerID uint, kind types.NotificationType, title, body string, reservationID *uint) {
	n := models.Notification{
		OwnerID:       ownerID,
		Type:          kind,
		Title:         title,
		Body:          body,
		ReservationID: reservationID,
	}
	if err := db.GetDb().Create(&n).Error; err != nil {
		log.Printf("Error creating notification: %s\n", err.Error())
		return
	}
	if !lib.SMTPConfigured() {
		return
	}
	var owner models.Owner
	if err := db.GetDb().First(&owner, ownerID).Error; err != nil {
		log.Printf("Error loading owner %d for notification: %s\n", ownerID, err.Error())
		return
	}
	if err := lib.SendMail(&lib.SendMailInput{
		From:    os.Getenv("SMTP_FROM"),
		To:      []string{owner.Email},
		Subject: title,
		Body:    body,
	}); err != nil {
		log.Printf("Error sending notification email: %s\n", err.Error())
	}
}

func NotifyPassportUploaded(reservation *models.Reservation, count int) {
	var apartment models.Apartment
	if err := db.GetDb().First(&apartment, reservation.ApartmentID).Error; err != nil {
		log.Printf("Error loading apartment for notification: %s\n", err.Error())
		return
	}
	id := reservation.ID
	CreateNotification(
		apartment.OwnerID,
		types.NOTIFICATION_PASSPORT_UPLOADED,
		"Passport documents uploaded",
		fmt.Sprintf("%s uploaded %d document(s) for %s. Review them to approve the check-in.", reservation.GuestName, count, apartment.Name),
		&id,
	)
}

func NotifyDepositPaid(reservation *models.Reservation, amount float64, currency string) {
	var apartment models.Apartment
	if err := db.GetDb().First(&apartment, reservation.ApartmentID).Error; err != nil {
		log.Printf("Error loading apartment for notification: %s\n", err.Error())
		return
	}
	id := reservation.ID
	CreateNotification(
		apartment.OwnerID,
		types.NOTIFICATION_DEPOSIT_PAID,
		"Deposit paid",
		fmt.Sprintf("%s paid a %.2f %s deposit for %s.", reservation.GuestName, amount, currency, apartment.Name),
		&id,
	)
}
