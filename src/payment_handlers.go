package main

import (
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"smartcheckin/src/common"
	"smartcheckin/src/db"
	"smartcheckin/src/lib"
	"smartcheckin/src/models"
	"smartcheckin/src/types"

	"github.com/gin-gonic/gin"
)

// paymentHandlers receives the payment vendor's server-to-server callback.
// The callback is authenticated by its signature, not by a session.
func paymentHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/callback/ipay", func(ctx *gin.Context) {
			if err := ctx.Request.ParseForm(); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			data := map[string]string{}
			for k, v := range ctx.Request.PostForm {
				if len(v) > 0 {
					data[k] = v[0]
				}
			}
			status, err := lib.GetIPayClient().ProcessCallback(data)
			if err != nil {
				log.Printf("Rejected payment callback: %s\n", err.Error())
				ctx.Status(http.StatusBadRequest)
				return
			}

			depositId, ok := parseDepositOrder(status.OrderID)
			if !ok {
				log.Printf("Payment callback with unknown order id %q\n", status.OrderID)
				ctx.Status(http.StatusBadRequest)
				return
			}

			dbi := db.GetDb()
			var deposits []models.Deposit
			if err := dbi.
				Preload("Reservation").
				Where("id = ?", depositId).
				Limit(1).
				Find(&deposits).Error; err != nil || len(deposits) == 0 {
				ctx.Status(http.StatusNotFound)
				return
			}
			deposit := deposits[0]

			switch status.Status {
			case lib.PAYMENT_SUCCESS:
				now := time.Now()
				if err := dbi.
					Model(&models.Deposit{}).
					Where("id = ?", deposit.ID).
					Updates(map[string]any{
						"status":         types.DEPOSIT_PAID,
						"transaction_id": status.TransactionID,
						"paid_at":        now,
					}).Error; err != nil {
					ctx.Status(http.StatusInternalServerError)
					return
				}
				common.NotifyDepositPaid(&deposit.Reservation, deposit.Amount, deposit.Currency)
			case lib.PAYMENT_REFUNDED:
				if err := dbi.
					Model(&models.Deposit{}).
					Where("id = ?", deposit.ID).
					Update("status", types.DEPOSIT_REFUNDED).Error; err != nil {
					ctx.Status(http.StatusInternalServerError)
					return
				}
			case lib.PAYMENT_FAILED:
				log.Printf("Payment failed for deposit %d: %s\n", deposit.ID, status.ResultMessage)
			}
			ctx.Status(http.StatusOK)
		})
	return g
}

func parseDepositOrder(orderId string) (uint, bool) {
	raw, found := strings.CutPrefix(orderId, "DEP-")
	if !found {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}
