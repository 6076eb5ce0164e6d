package controllers

import (
	"errors"
	"net/http"

	"smartcheckin/src/db"
	"smartcheckin/src/models"
	"smartcheckin/src/types"
	"smartcheckin/src/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// AuthLogin checks the owner's credentials and returns a signed token. Bad
// email and bad password produce the same response.
func AuthLogin(ctx *gin.Context) (*string, int, error) {
	var body types.LoginRequestBody
	if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}

	var owners []models.Owner
	if err := db.GetDb().Where("email = ?", body.Email).Limit(1).Find(&owners).Error; err != nil {
		return nil, http.StatusInternalServerError, err
	}
	if len(owners) == 0 {
		return nil, http.StatusUnauthorized, errors.New("Invalid credentials")
	}
	owner := owners[0]
	if err := bcrypt.CompareHashAndPassword([]byte(owner.Password), []byte(body.Password)); err != nil {
		return nil, http.StatusUnauthorized, errors.New("Invalid credentials")
	}

	token, err := utils.GenerateJWT(owner.Email, owner.ID, owner.Role)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	return &token, http.StatusOK, nil
}
