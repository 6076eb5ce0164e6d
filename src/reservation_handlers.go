package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path"

	"smartcheckin/src/common"
	"smartcheckin/src/db"
	"smartcheckin/src/models"
	"smartcheckin/src/types"
	"smartcheckin/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/yeqown/go-qrcode"
)

func reservationHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/reservations", func(ctx *gin.Context) {
			ownerId := ctx.GetUint("id")
			db := db.GetDb()
			var reservations []models.Reservation
			q := db.
				Model(&models.Reservation{}).
				Joins("JOIN apartments ON apartments.id = reservations.apartment_id").
				Where("apartments.owner_id = ?", ownerId).
				Preload("Apartment").
				Preload("Guest").
				Preload("Deposit").
				Preload("AccessCode").
				Order("check_in DESC")
			if status := ctx.Query("status"); status != "" {
				q = q.Where("reservations.status = ?", status)
			}
			if apartmentId := ctx.Query("apartment_id"); apartmentId != "" {
				q = q.Where("reservations.apartment_id = ?", apartmentId)
			}
			if err := q.Find(&reservations).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": reservations, "count": len(reservations)})
		}).
		POST("/reservations", func(ctx *gin.Context) {
			var body types.CreateReservationRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ownerId := ctx.GetUint("id")
			reservation, conflict, status, err := common.CreateReservation(ownerId, &body)
			if err != nil {
				log.Printf("Error on CreateReservation: %s\n", err.Error())
				if conflict != nil {
					ctx.JSON(status, gin.H{"error": err.Error(), "conflict": conflict})
					return
				}
				ctx.JSON(status, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(status, gin.H{
				"data":         reservation,
				"checkin_link": utils.CheckinURL(reservation.CheckinToken),
			})
		}).
		GET("/reservations/check-availability", func(ctx *gin.Context) {
			var query types.AvailabilityQueryParams
			if err := ctx.ShouldBindQuery(&query); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			checkIn, err := utils.ParseStayDate(query.CheckIn)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid check-in date"})
				return
			}
			checkOut, err := utils.ParseStayDate(query.CheckOut)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid check-out date"})
				return
			}
			conflict, err := common.CheckAvailability(db.GetDb(), query.ApartmentID, checkIn, checkOut, query.ExcludeReservationID)
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"available": conflict == nil, "conflict": conflict})
		}).
		GET("/reservations/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			ownerId := ctx.GetUint("id")
			reservation, err := ownedReservation(ownerId, params.ID)
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{
				"data":         reservation,
				"state":        common.DeriveState(reservation),
				"checkin_link": utils.CheckinURL(reservation.CheckinToken),
			})
		}).
		POST("/reservations/:id/cancel", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			ownerId := ctx.GetUint("id")
			reservation, err := ownedReservation(ownerId, params.ID)
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			if reservation.Status == types.RESERVATION_CANCELLED {
				ctx.JSON(http.StatusOK, gin.H{"data": reservation})
				return
			}
			if err := db.GetDb().
				Model(&models.Reservation{}).
				Where("id = ?", reservation.ID).
				Update("status", types.RESERVATION_CANCELLED).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			reservation.Status = types.RESERVATION_CANCELLED
			ctx.JSON(http.StatusOK, gin.H{"data": reservation})
		}).
		GET("/reservations/:id/qr", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			ownerId := ctx.GetUint("id")
			reservation, err := ownedReservation(ownerId, params.ID)
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			qrc, err := qrcode.New(utils.CheckinURL(reservation.CheckinToken))
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			tempdir := os.Getenv("TEMP_DIR")
			if tempdir == "" {
				tempdir = os.TempDir()
			}
			filepath := path.Join(tempdir, fmt.Sprintf("checkin-%d.jpeg", reservation.ID))
			if err := qrc.Save(filepath); err != nil {
				log.Printf("Could not save qrcode to file [%s]: %s\n", filepath, err.Error())
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.FileAttachment(filepath, "checkin-qr.jpeg")
		})
	return g
}

func ownedReservation(ownerId, reservationId uint) (*models.Reservation, error) {
	var reservations []models.Reservation
	err := db.GetDb().
		Model(&models.Reservation{}).
		Joins("JOIN apartments ON apartments.id = reservations.apartment_id").
		Where("reservations.id = ? AND apartments.owner_id = ?", reservationId, ownerId).
		Preload("Apartment").
		Preload("Guest").
		Preload("Deposit").
		Preload("AccessCode").
		Limit(1).
		Find(&reservations).Error
	if err != nil {
		return nil, err
	}
	if len(reservations) == 0 {
		return nil, fmt.Errorf("Reservation not found")
	}
	return &reservations[0], nil
}
