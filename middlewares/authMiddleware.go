package middlewares

import (
	"log"
	"net/http"
	"strings"

	authUtils "campusfix-be/utils"

	"github.com/gin-gonic/gin"
)

const (
	AuthCookie    = "auth_token"
	ContextUserID = "user_id"
	ContextEmail  = "user_email"
	bearerPrefix  = "Bearer "
)

// tokenFrom reads the token from the Authorization header, falling back to
// the auth_token cookie.
func tokenFrom(c *gin.Context) string {
	authHeader := c.Request.Header.Get("Authorization")
	if authHeader != "" {
		if strings.HasPrefix(authHeader, bearerPrefix) {
			return authHeader[len(bearerPrefix):]
		}
		return authHeader
	}
	if cookie, err := c.Cookie(AuthCookie); err == nil {
		return cookie
	}
	return ""
}

// AuthMiddleware rejects requests without a valid user token.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := tokenFrom(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No authorization token provided"})
			c.Abort()
			return
		}

		identity, err := authUtils.ParseToken(secret, tokenString)
		if err != nil {
			log.Printf("Token validation failed: %v", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization token"})
			c.Abort()
			return
		}

		c.Set(ContextUserID, identity.UserID)
		c.Set(ContextEmail, identity.Email)
		c.Next()
	}
}

// OptionalAuth sets the user when a valid token is present and otherwise
// lets the request through anonymously.
func OptionalAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString := tokenFrom(c); tokenString != "" {
			if identity, err := authUtils.ParseToken(secret, tokenString); err == nil {
				c.Set(ContextUserID, identity.UserID)
				c.Set(ContextEmail, identity.Email)
			}
		}
		c.Next()
	}
}

// UserID returns the authenticated user id, or "".
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

func UserEmail(c *gin.Context) string {
	return c.GetString(ContextEmail)
}
