package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned when platform id/secret don't match.
var ErrInvalidCredentials = errors.New("invalid platform credentials")

// HashSecret uses bcrypt to hash a plaintext platform secret.
func HashSecret(plain string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckSecret compares a bcrypt hash with the plaintext.
func CheckSecret(hash, plain string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	return err == nil
}

// SharedSecret guards machine-to-machine endpoints (the egress webhook) with
// a static bearer token.
func SharedSecret(secret string) gin.HandlerFunc {
	expected := []byte("Bearer " + secret)
	return func(c *gin.Context) {
		header := []byte(c.GetHeader("Authorization"))
		if subtle.ConstantTimeCompare(header, expected) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
