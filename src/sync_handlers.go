package main

import (
	"errors"
	"log"
	"net/http"

	"smartcheckin/src/common"
	"smartcheckin/src/db"
	"smartcheckin/src/models"

	"github.com/gin-gonic/gin"
)

// syncHandlers exposes the bulk calendar sync for an external cron caller.
func syncHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/sync/calendars", func(ctx *gin.Context) {
			results, err := common.SyncAllApartments()
			if err != nil {
				if errors.Is(err, common.ErrSyncInProgress) {
					ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
					return
				}
				log.Printf("Error on SyncAllApartments: %s\n", err.Error())
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": results, "count": len(results)})
		}).
		GET("/sync/calendars", func(ctx *gin.Context) {
			db := db.GetDb()
			var apartments []models.Apartment
			if err := db.
				Model(&models.Apartment{}).
				Where("is_active = ?", true).
				Find(&apartments).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			type syncStatus struct {
				ApartmentID     uint   `json:"apartment_id"`
				Name            string `json:"name"`
				HasFeed         bool   `json:"has_feed"`
				LastAirbnbSync  any    `json:"last_airbnb_sync"`
				LastBookingSync any    `json:"last_booking_sync"`
				LastIcalSync    any    `json:"last_ical_sync"`
			}
			statuses := make([]syncStatus, 0, len(apartments))
			for _, a := range apartments {
				statuses = append(statuses, syncStatus{
					ApartmentID:     a.ID,
					Name:            a.Name,
					HasFeed:         a.HasFeed(),
					LastAirbnbSync:  a.LastAirbnbSync,
					LastBookingSync: a.LastBookingSync,
					LastIcalSync:    a.LastIcalSync,
				})
			}
			ctx.JSON(http.StatusOK, gin.H{"data": statuses})
		})
	return g
}
