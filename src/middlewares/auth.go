package middlewares

import (
	"log"
	"os"
	"strconv"
	"strings"

	"smartcheckin/src/db"
	"smartcheckin/src/models"
	"smartcheckin/src/types"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func AuthMiddleware(ctx *gin.Context) {
	bearerToken := ctx.Request.Header.Get("Authorization")
	if !strings.HasPrefix(bearerToken, "Bearer ") {
		ctx.AbortWithStatus(401)
		return
	}
	reqToken := strings.TrimPrefix(bearerToken, "Bearer ")
	if reqToken == "" {
		ctx.AbortWithStatus(401)
		return
	}
	claims := &types.Claims{}
	tkn, err := jwt.ParseWithClaims(reqToken, claims, func(t *jwt.Token) (any, error) {
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil {
		log.Printf("token error: %s\n", err.Error())
		ctx.AbortWithStatus(401)
		return
	}
	if !tkn.Valid {
		ctx.AbortWithStatus(401)
		return
	}

	uid, err := strconv.Atoi(claims.Subject)
	if err != nil {
		log.Println("error parsing claims:", err.Error())
		ctx.AbortWithStatus(401)
		return
	}
	var owner models.Owner
	db.GetDb().Model(&models.Owner{}).Where("id = ?", uint(uid)).Find(&owner)
	if owner.ID < 1 || owner.ID != uint(uid) {
		ctx.AbortWithStatus(401)
		return
	}
	ctx.Set("email", owner.Email)
	ctx.Set("id", owner.ID)
	ctx.Set("role", owner.Role)
}
