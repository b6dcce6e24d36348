package controllers

import (
	"errors"
	"log"
	"net/http"

	"campusfix-be/config"
	"campusfix-be/middlewares"
	"campusfix-be/session"

	"github.com/gin-gonic/gin"
)

type AdminController struct {
	auth *session.Authenticator
	cfg  *config.Config
}

func NewAdminController(auth *session.Authenticator, cfg *config.Config) *AdminController {
	return &AdminController{auth: auth, cfg: cfg}
}

func (a *AdminController) Login(c *gin.Context) {
	var input struct {
		AdminID  string `json:"admin_id" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := requestContext(c, a.cfg.RequestTimeout)
	defer cancel()

	s, err := a.auth.Login(ctx, input.AdminID, input.Password)
	if err != nil {
		if errors.Is(err, session.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid admin credentials"})
			return
		}
		log.Printf("admin login: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	maxAge := int(s.ExpiresAt.Sub(s.IssuedAt).Seconds())
	http.SetCookie(c.Writer, newCookie(a.cfg, middlewares.AdminCookie, s.ID, maxAge))
	c.JSON(http.StatusOK, gin.H{"session": s})
}

// Session reports whether the request carries a live admin session.
func (a *AdminController) Session(c *gin.Context) {
	s, ok := session.AdminFrom(c.Request.Context())
	if !ok {
		c.JSON(http.StatusOK, gin.H{"admin": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"admin": true, "session": s})
}

func (a *AdminController) Logout(c *gin.Context) {
	if s, ok := session.AdminFrom(c.Request.Context()); ok {
		ctx, cancel := requestContext(c, a.cfg.RequestTimeout)
		defer cancel()
		if err := a.auth.Logout(ctx, s.ID); err != nil {
			log.Printf("admin logout: %v", err)
		}
	}
	http.SetCookie(c.Writer, newCookie(a.cfg, middlewares.AdminCookie, "", -1))
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}
