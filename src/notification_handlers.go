package main

import (
	"net/http"

	"smartcheckin/src/db"
	"smartcheckin/src/models"
	"smartcheckin/src/types"

	"github.com/gin-gonic/gin"
)

func notificationHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/notifications", func(ctx *gin.Context) {
			ownerId := ctx.GetUint("id")
			db := db.GetDb()
			var notifications []models.Notification
			q := db.
				Model(&models.Notification{}).
				Where("owner_id = ?", ownerId).
				Order("created_at DESC")
			if ctx.Query("unread") == "true" {
				q = q.Where("is_read = ?", false)
			}
			if err := q.Find(&notifications).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": notifications, "count": len(notifications)})
		}).
		POST("/notifications/:id/read", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			ownerId := ctx.GetUint("id")
			result := db.GetDb().
				Model(&models.Notification{}).
				Where("id = ? AND owner_id = ?", params.ID, ownerId).
				Update("is_read", true)
			if result.Error != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": result.Error.Error()})
				return
			}
			if result.RowsAffected == 0 {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		POST("/notifications/read-all", func(ctx *gin.Context) {
			ownerId := ctx.GetUint("id")
			if err := db.GetDb().
				Model(&models.Notification{}).
				Where("owner_id = ? AND is_read = ?", ownerId, false).
				Update("is_read", true).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		})
	return g
}
