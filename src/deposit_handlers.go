package main

import (
	"net/http"

	"smartcheckin/src/common"
	"smartcheckin/src/db"
	"smartcheckin/src/models"
	"smartcheckin/src/types"

	"github.com/gin-gonic/gin"
)

func depositHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/deposits", func(ctx *gin.Context) {
			ownerId := ctx.GetUint("id")
			db := db.GetDb()
			var deposits []models.Deposit
			q := db.
				Model(&models.Deposit{}).
				Joins("JOIN reservations ON reservations.id = deposits.reservation_id").
				Joins("JOIN apartments ON apartments.id = reservations.apartment_id").
				Where("apartments.owner_id = ?", ownerId).
				Preload("Reservation").
				Preload("Reservation.Apartment").
				Order("deposits.created_at DESC")
			if status := ctx.Query("status"); status != "" {
				q = q.Where("deposits.status = ?", status)
			}
			if err := q.Find(&deposits).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": deposits, "count": len(deposits)})
		}).
		POST("/deposits/:id/confirm", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			ownerId := ctx.GetUint("id")
			deposit, status, err := common.ConfirmDeposit(ownerId, params.ID)
			if err != nil {
				ctx.JSON(status, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": deposit})
		})
	return g
}
