package middlewares

import (
	"errors"
	"log"
	"net/http"

	"campusfix-be/session"

	"github.com/gin-gonic/gin"
)

const (
	AdminCookie = "admin_session"
	AdminHeader = "X-Admin-Session"
)

func adminSessionID(c *gin.Context) string {
	if id := c.Request.Header.Get(AdminHeader); id != "" {
		return id
	}
	if id, err := c.Cookie(AdminCookie); err == nil {
		return id
	}
	return ""
}

// AdminSession restores the admin session, if any, into the request context.
// It never rejects; an expired session is cleared and the request continues
// anonymously.
func AdminSession(auth *session.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := adminSessionID(c)
		if id == "" {
			c.Next()
			return
		}

		s, err := auth.Restore(c.Request.Context(), id)
		switch {
		case err == nil:
			c.Request = c.Request.WithContext(session.WithAdmin(c.Request.Context(), s))
		case errors.Is(err, session.ErrSessionExpired), errors.Is(err, session.ErrNoSession):
		default:
			log.Printf("admin session lookup failed: %v", err)
		}
		c.Next()
	}
}

// RequireAdmin rejects requests that carry no valid admin session.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := session.AdminFrom(c.Request.Context()); !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Admin session required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func IsAdmin(c *gin.Context) bool {
	_, ok := session.AdminFrom(c.Request.Context())
	return ok
}
