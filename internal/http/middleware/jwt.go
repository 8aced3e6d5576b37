package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
)

// Identity is the authenticated caller: a participant acting on behalf of
// one platform tenant.
type Identity struct {
	PlatformID    string
	ParticipantID string
	Username      string
}

// GenerateJWT signs a token embedding the participant in "sub" and the
// owning platform in "pid".
func GenerateJWT(ident Identity, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  ident.ParticipantID,
		"pid":  ident.PlatformID,
		"name": ident.Username,
		"exp":  time.Now().Add(72 * time.Hour).Unix(),
	})
	return token.SignedString([]byte(secret))
}

// verifies the JWT and returns the embedded identity (unexported, only used internally).
func parseToken(tokenString, secret string) (*Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, errors.New("invalid sub claim")
	}
	pid, ok := claims["pid"].(string)
	if !ok || pid == "" {
		return nil, errors.New("invalid pid claim")
	}
	name, _ := claims["name"].(string)
	return &Identity{PlatformID: pid, ParticipantID: sub, Username: name}, nil
}

// JWTMiddleware checks "Authorization: Bearer <token>", verifies it and sets
// "identity" in context.
func JWTMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing auth header"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid auth header"})
			return
		}

		ident, err := parseToken(parts[1], secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set("identity", ident)
		c.Next()
	}
}

// GetIdentity retrieves the *Identity from Gin context (after JWTMiddleware has run).
func GetIdentity(c *gin.Context) (*Identity, bool) {
	v, exists := c.Get("identity")
	if !exists {
		return nil, false
	}
	ident, ok := v.(*Identity)
	return ident, ok
}
