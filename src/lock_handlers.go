package main

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"smartcheckin/src/db"
	"smartcheckin/src/lib"
	"smartcheckin/src/models"
	"smartcheckin/src/types"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// lockHandlers manages the owner's smart-lock vendor link: the OAuth token
// exchange, attaching a lock to an apartment and the battery readout.
func lockHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/locks/connect", func(ctx *gin.Context) {
			var body struct {
				Code string `json:"code" binding:"required"`
			}
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ttlock := lib.GetTTLockClient()
			if !ttlock.IsConfigured() {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "Smart lock vendor is not configured"})
				return
			}
			token, err := ttlock.ExchangeCode(ctx, body.Code)
			if err != nil {
				log.Printf("Error exchanging lock vendor code: %s\n", err.Error())
				ctx.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
				return
			}
			ownerId := ctx.GetUint("id")
			lockToken := models.LockToken{
				OwnerID:      ownerId,
				AccessToken:  token.AccessToken,
				RefreshToken: token.RefreshToken,
				ExpiresAt:    time.Now().Add(time.Duration(token.ExpiresIn) * time.Second),
			}
			err = db.GetDb().
				Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "owner_id"}},
					UpdateAll: true,
				}).
				Create(&lockToken).Error
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"expires_at": lockToken.ExpiresAt})
		}).
		POST("/apartments/:id/lock", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body struct {
				VendorID string `json:"vendor_id" binding:"required"`
				Name     string `json:"name,omitempty"`
			}
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ownerId := ctx.GetUint("id")
			apartment, err := ownedApartment(ownerId, params.ID)
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			lock := models.SmartLock{
				ApartmentID: apartment.ID,
				VendorID:    body.VendorID,
				Name:        body.Name,
			}
			err = db.GetDb().Transaction(func(tx *gorm.DB) error {
				if err := tx.Where("apartment_id = ?", apartment.ID).Delete(&models.SmartLock{}).Error; err != nil {
					return err
				}
				return tx.Create(&lock).Error
			})
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": lock})
		}).
		GET("/apartments/:id/lock/battery", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			ownerId := ctx.GetUint("id")
			apartment, err := ownedApartment(ownerId, params.ID)
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			if apartment.SmartLock == nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "No smart lock attached to this apartment"})
				return
			}
			ttlock := lib.GetTTLockClient()
			if !ttlock.IsConfigured() {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "Smart lock vendor is not configured"})
				return
			}
			lockId, err := strconv.ParseInt(apartment.SmartLock.VendorID, 10, 64)
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid lock vendor id"})
				return
			}
			var tokens []models.LockToken
			if err := db.GetDb().Where("owner_id = ?", ownerId).Limit(1).Find(&tokens).Error; err != nil || len(tokens) == 0 {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "Connect your lock vendor account first"})
				return
			}
			level, err := ttlock.BatteryLevel(ctx, tokens[0].AccessToken, lockId)
			if err != nil {
				ctx.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"battery": level})
		})
	return g
}
