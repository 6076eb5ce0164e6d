package boot

import (
	"log"
	"os"
	"strconv"
	"time"

	"smartcheckin/src/db"
	"smartcheckin/src/models"
	"smartcheckin/src/types"
	"smartcheckin/src/utils"

	"github.com/go-faker/faker/v4"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedDemoData populates an empty database with a demo owner, apartments and
// reservations so the guest flow can be exercised without real feeds. Gated
// on SEED_DEMO_DATA and skipped when owners already exist.
func SeedDemoData() {
	enabled, err := strconv.ParseBool(os.Getenv("SEED_DEMO_DATA"))
	if err != nil || !enabled {
		return
	}
	dbi := db.GetDb()
	var count int64
	if err := dbi.Model(&models.Owner{}).Count(&count).Error; err != nil || count > 0 {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("demo1234"), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Error hashing demo password: %s\n", err.Error())
		return
	}
	err = dbi.Transaction(func(tx *gorm.DB) error {
		owner := models.Owner{
			Email:    "demo@example.com",
			Password: string(hash),
			Name:     faker.Name(),
			Phone:    faker.Phonenumber(),
		}
		if err := tx.Create(&owner).Error; err != nil {
			return err
		}
		for i := 0; i < 2; i++ {
			apartment := models.Apartment{
				OwnerID:  owner.ID,
				Name:     faker.Word() + " Apartment",
				Address:  faker.GetRealAddress().Address,
				IsActive: true,
			}
			if err := tx.Create(&apartment).Error; err != nil {
				return err
			}
			checkIn := time.Now().AddDate(0, 0, i*7)
			reservation := models.Reservation{
				ApartmentID:  apartment.ID,
				GuestName:    faker.Name(),
				GuestPhone:   faker.Phonenumber(),
				CheckIn:      checkIn,
				CheckOut:     checkIn.AddDate(0, 0, 4),
				Status:       types.RESERVATION_PENDING,
				Source:       string(types.CHANNEL_MANUAL),
				CheckinToken: utils.GenerateCheckinToken(),
			}
			if err := tx.Create(&reservation).Error; err != nil {
				return err
			}
			log.Printf("Seeded reservation %d, check-in link: %s\n", reservation.ID, utils.CheckinURL(reservation.CheckinToken))
		}
		return nil
	})
	if err != nil {
		log.Printf("Error seeding demo data: %s\n", err.Error())
	}
}
