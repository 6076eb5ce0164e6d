package main

import (
	"log"
	"net/http"

	"smartcheckin/src/common"
	"smartcheckin/src/types"

	"github.com/gin-gonic/gin"
)

// checkinHandlers serves the guest flow. No owner session here: the
// reservation token in the path is the only credential.
func checkinHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/checkin/:token", func(ctx *gin.Context) {
			var params types.CheckinTokenParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			status, code, err := common.GetCheckinStatus(params.Token)
			if err != nil {
				ctx.JSON(code, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": status})
		}).
		POST("/checkin/:token/passport", func(ctx *gin.Context) {
			var params types.CheckinTokenParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			form, err := ctx.MultipartForm()
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			files := form.File["passports"]
			if len(files) == 0 {
				files = form.File["passport"]
			}
			if len(files) == 0 {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "No documents in upload"})
				return
			}
			result, code, err := common.UploadPassports(params.Token, files)
			if err != nil {
				log.Printf("Error on UploadPassports: %s\n", err.Error())
				ctx.JSON(code, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": result})
		}).
		POST("/checkin/:token/consent", func(ctx *gin.Context) {
			var params types.CheckinTokenParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			guest, code, err := common.GiveConsent(params.Token)
			if err != nil {
				ctx.JSON(code, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": guest})
		}).
		POST("/checkin/:token/pay-deposit", func(ctx *gin.Context) {
			var params types.CheckinTokenParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.PayDepositRequestBody
			_ = ctx.ShouldBindBodyWithJSON(&body)
			payment, code, err := common.PayDeposit(params.Token, body.CardLast4)
			if err != nil {
				log.Printf("Error on PayDeposit: %s\n", err.Error())
				ctx.JSON(code, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": payment})
		}).
		POST("/checkin/:token/complete", func(ctx *gin.Context) {
			var params types.CheckinTokenParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			accessCode, code, err := common.CompleteCheckin(params.Token)
			if err != nil {
				if ferr, ok := err.(*common.FlowError); ok {
					ctx.JSON(code, ferr)
					return
				}
				ctx.JSON(code, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": accessCode})
		}).
		POST("/checkin/:token/unlock", func(ctx *gin.Context) {
			var params types.CheckinTokenParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			message, code, err := common.Unlock(params.Token)
			if err != nil {
				ctx.JSON(code, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"message": message})
		})
	return g
}
