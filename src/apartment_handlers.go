package main

import (
	"errors"
	"log"
	"net/http"

	"smartcheckin/src/common"
	"smartcheckin/src/db"
	"smartcheckin/src/models"
	"smartcheckin/src/types"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func apartmentHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/apartments", func(ctx *gin.Context) {
			ownerId := ctx.GetUint("id")
			db := db.GetDb()
			var apartments []models.Apartment
			if err := db.
				Model(&models.Apartment{}).
				Where("owner_id = ?", ownerId).
				Preload("SmartLock").
				Find(&apartments).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": apartments, "count": len(apartments)})
		}).
		POST("/apartments", func(ctx *gin.Context) {
			var body types.CreateApartmentRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ownerId := ctx.GetUint("id")
			apartment := models.Apartment{
				OwnerID:        ownerId,
				Name:           body.Name,
				Address:        body.Address,
				Description:    body.Description,
				AirbnbIcalURL:  body.AirbnbIcalURL,
				BookingIcalURL: body.BookingIcalURL,
				IcalURL:        body.IcalURL,
				IsActive:       true,
			}
			if err := db.GetDb().Create(&apartment).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": apartment})
		}).
		GET("/apartments/:id", func(ctx *gin.Context) {
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
			ctx.JSON(http.StatusOK, gin.H{"data": apartment})
		}).
		PATCH("/apartments/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.UpdateApartmentRequestBody
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
			updates := map[string]any{}
			if body.Name != nil {
				updates["name"] = *body.Name
			}
			if body.Address != nil {
				updates["address"] = *body.Address
			}
			if body.Description != nil {
				updates["description"] = *body.Description
			}
			if body.AirbnbIcalURL != nil {
				updates["airbnb_ical_url"] = *body.AirbnbIcalURL
			}
			if body.BookingIcalURL != nil {
				updates["booking_ical_url"] = *body.BookingIcalURL
			}
			if body.IcalURL != nil {
				updates["ical_url"] = *body.IcalURL
			}
			if body.IsActive != nil {
				updates["is_active"] = *body.IsActive
			}
			if len(updates) > 0 {
				if err := db.GetDb().
					Model(&models.Apartment{}).
					Where("id = ?", apartment.ID).
					Updates(updates).Error; err != nil {
					ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
					return
				}
			}
			refreshed, err := ownedApartment(ownerId, params.ID)
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": refreshed})
		}).
		DELETE("/apartments/:id", func(ctx *gin.Context) {
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
			// Soft deactivation: history and reservations stay queryable.
			if err := db.GetDb().
				Model(&models.Apartment{}).
				Where("id = ?", apartment.ID).
				Update("is_active", false).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		POST("/apartments/:id/sync", func(ctx *gin.Context) {
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
			if !apartment.HasFeed() {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "No calendar feed configured for this apartment"})
				return
			}
			result, err := common.SyncApartment(apartment)
			if err != nil {
				log.Printf("Error syncing apartment %d: %s\n", apartment.ID, err.Error())
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": result})
		})
	return g
}

func ownedApartment(ownerId, apartmentId uint) (*models.Apartment, error) {
	var apartment models.Apartment
	err := db.GetDb().
		Model(&models.Apartment{}).
		Where("id = ? AND owner_id = ?", apartmentId, ownerId).
		Preload("SmartLock").
		First(&apartment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.New("Apartment not found")
	}
	return &apartment, err
}
