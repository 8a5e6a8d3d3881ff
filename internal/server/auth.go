package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/franckalain/fooddiary/internal/observability"
)

const userIDKey = "userID"

// AuthMiddleware resolves the user of a request. With a secret it requires
// an HS256 bearer token, taken from the Authorization header or the token
// query parameter (browsers cannot set headers on websocket upgrades), whose
// uid or sub claim is the user id. Without a secret it trusts the X-User-ID
// header or the uid query parameter.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var uid string
		if secret == "" {
			uid = c.GetHeader("X-User-ID")
			if uid == "" {
				uid = c.Query("uid")
			}
			if uid == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user id required"})
				return
			}
		} else {
			tokenString := bearerToken(c)
			if tokenString == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
				return
			}

			var err error
			uid, err = parseUserID(tokenString, []byte(secret))
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
		}

		c.Set(userIDKey, uid)
		c.Request = c.Request.WithContext(observability.WithUserID(c.Request.Context(), uid))
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}

func parseUserID(tokenString string, secret []byte) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}
	if uid, _ := claims["uid"].(string); uid != "" {
		return uid, nil
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New("user claim missing")
	}
	return sub, nil
}

// GenerateToken signs a token for uid valid for ttl
func GenerateToken(secret, uid string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is not configured")
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": uid,
		"uid": uid,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	})
	return token.SignedString([]byte(secret))
}

func userID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
