package boot

import (
	"log"
	"os"
	"strconv"
	"time"

	"smartcheckin/src/common"
	"smartcheckin/src/db"
	"smartcheckin/src/lib"
	"smartcheckin/src/models"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(
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
		log.Fatalf("error migration: %s", err.Error())
	}

	installOverlapGuard(db)

	return db
}

// installOverlapGuard adds a database-level exclusion constraint so two
// overlapping non-cancelled reservations for the same apartment can never
// both commit, whatever the application-level pre-check saw. Postgres only;
// on other engines the statements fail and the pre-check stands alone.
func installOverlapGuard(db *gorm.DB) {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS btree_gist").Error; err != nil {
		log.Printf("Could not enable btree_gist: %s\n", err.Error())
		return
	}
	err := db.Exec(`
		DO $$ BEGIN
			ALTER TABLE reservations
				ADD CONSTRAINT reservations_no_overlap
				EXCLUDE USING gist (
					apartment_id WITH =,
					tsrange(check_in, check_out) WITH &&
				)
				WHERE (status <> 'cancelled');
		EXCEPTION WHEN duplicate_table OR duplicate_object THEN NULL;
		END $$
	`).Error
	if err != nil {
		log.Printf("Could not install reservation overlap constraint: %s\n", err.Error())
	}
}

// InitScheduler starts the periodic calendar sync when SYNC_CRON_MINUTES is
// set. Without it the sync only runs on demand.
func InitScheduler() {
	minutes, err := strconv.Atoi(os.Getenv("SYNC_CRON_MINUTES"))
	if err != nil || minutes < 1 {
		log.Println("Periodic calendar sync disabled")
		return
	}
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return
	}
	j, err := sched.NewJob(
		gocron.DurationJob(time.Duration(minutes)*time.Minute),
		gocron.NewTask(func() {
			if _, err := common.SyncAllApartments(); err != nil {
				log.Printf("Scheduled calendar sync failed: %s\n", err.Error())
			}
		}),
	)
	if err != nil {
		log.Printf("Error running job: %s\n", err.Error())
		return
	}
	sched.Start()
	log.Printf("Calendar sync every %dm, job ID: %s\n", minutes, j.ID().String())
}

func StopScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		return
	}
	if err := sched.Shutdown(); err != nil {
		log.Printf("Error shutting down scheduler: %s\n", err.Error())
	}
}
