package middlewares

import (
	"os"

	"github.com/gin-gonic/gin"
)

// SyncAuthMiddleware guards the bulk sync trigger with a shared secret so an
// external scheduler can call it without an owner session. With the secret
// unset the endpoint is closed.
func SyncAuthMiddleware(ctx *gin.Context) {
	secret := os.Getenv("SYNC_SECRET_KEY")
	if secret == "" || ctx.Request.Header.Get("Authorization") != "Bearer "+secret {
		ctx.AbortWithStatus(401)
		return
	}
}
