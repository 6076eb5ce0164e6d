package main

import (
	"net/http"

	"smartcheckin/src/common"
	"smartcheckin/src/db"
	"smartcheckin/src/models"
	"smartcheckin/src/types"

	"github.com/gin-gonic/gin"
)

func passportHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/passports", func(ctx *gin.Context) {
			ownerId := ctx.GetUint("id")
			db := db.GetDb()
			var guests []models.Guest
			q := db.
				Model(&models.Guest{}).
				Joins("JOIN reservations ON reservations.id = guests.reservation_id").
				Joins("JOIN apartments ON apartments.id = reservations.apartment_id").
				Where("apartments.owner_id = ?", ownerId).
				Preload("Reservation").
				Preload("Reservation.Apartment").
				Order("guests.created_at DESC")
			if status := ctx.Query("status"); status != "" {
				q = q.Where("guests.passport_status = ?", status)
			}
			if err := q.Find(&guests).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": guests, "count": len(guests)})
		}).
		PATCH("/passports/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.ReviewPassportRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ownerId := ctx.GetUint("id")
			guest, status, err := common.ReviewPassport(ownerId, params.ID, body.Action, body.RejectionReason)
			if err != nil {
				ctx.JSON(status, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": guest})
		})
	return g
}
