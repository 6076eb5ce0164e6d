package utils

import (
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"os"
	"strings"
	"time"

	"smartcheckin/src/config"
	"smartcheckin/src/types"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// GenerateAccessCode produces a 6-digit numeric lock code.
func GenerateAccessCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		log.Printf("Error generating access code: %s\n", err.Error())
		return "000000"
	}
	return fmt.Sprintf("%06d", n.Int64()+100000)
}

// GenerateCheckinToken returns the unguessable per-reservation credential
// for the guest flow.
func GenerateCheckinToken() string {
	return uuid.NewString()
}

// CheckinURL builds the guest-facing link for a reservation.
func CheckinURL(token string) string {
	return fmt.Sprintf("%s/checkin/%s", config.AppHost(), token)
}

func GenerateJWT(email string, id uint, role string) (string, error) {
	now := time.Now()
	claims := types.Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(id),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	return token.SignedString([]byte(os.Getenv("JWT_SECRET")))
}

// ParseStayDate accepts either a full timestamp or a bare date.
func ParseStayDate(value string) (time.Time, error) {
	if t, err := time.Parse(config.TIME_PARSE_FORMAT, value); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", value, time.Local)
}

var allowedPassportTypes = map[string]bool{
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
	"application/pdf": true,
}

// AllowedPassportType reports whether an uploaded document's content type is
// accepted. Unsupported files are skipped per-file, not per-request.
func AllowedPassportType(contentType string) bool {
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return allowedPassportTypes[strings.ToLower(strings.TrimSpace(contentType))]
}

// FileExt returns a safe lowercase extension for a stored upload name.
func FileExt(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 || i == len(filename)-1 {
		return "bin"
	}
	return strings.ToLower(filename[i+1:])
}
