package controllers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"campusfix-be/config"
	"campusfix-be/middlewares"
	"campusfix-be/models"
	"campusfix-be/repository"
	authUtils "campusfix-be/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type AuthController struct {
	users repository.UserStore
	cfg   *config.Config
}

func NewAuthController(users repository.UserStore, cfg *config.Config) *AuthController {
	return &AuthController{users: users, cfg: cfg}
}

// RegisterUser creates an account. It does not sign the user in.
func (a *AuthController) RegisterUser(c *gin.Context) {
	var input struct {
		Name     string `json:"name" binding:"required,max=50"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := models.NewUser(input.Name, input.Email, input.Password, time.Now().UTC())
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		respondError(c, repository.NewValidationError("password", "must be at most 72 bytes"))
		return
	}
	if err != nil {
		log.Printf("auth: hash password: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	ctx, cancel := requestContext(c, a.cfg.RequestTimeout)
	defer cancel()

	switch err := a.users.Create(ctx, user); {
	case errors.Is(err, repository.ErrDuplicate):
		c.JSON(http.StatusBadRequest, gin.H{"error": "User with this email already exists"})
	case err != nil:
		respondError(c, err)
	default:
		c.JSON(http.StatusCreated, user.Profile())
	}
}

// LoginUser issues a token both as the auth cookie and in the body, for
// clients that cannot keep cookies.
func (a *AuthController) LoginUser(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := requestContext(c, a.cfg.RequestTimeout)
	defer cancel()

	user, err := a.users.FindByEmail(ctx, input.Email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		respondError(c, err)
		return
	}
	if user == nil || !user.PasswordMatches(input.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := authUtils.GenerateToken(a.cfg.JWTSecret, user.ID.Hex(), user.Email)
	if err != nil {
		log.Printf("auth: sign token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}
	http.SetCookie(c.Writer, newCookie(a.cfg, middlewares.AuthCookie, token, int(authUtils.TokenTTL.Seconds())))

	c.JSON(http.StatusOK, struct {
		models.Profile
		Token string `json:"token"`
	}{user.Profile(), token})
}

func (a *AuthController) GetMe(c *gin.Context) {
	ctx, cancel := requestContext(c, a.cfg.RequestTimeout)
	defer cancel()

	user, err := a.users.FindByID(ctx, middlewares.UserID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, user.Profile())
}

// LogoutUser clears the auth cookie. Issued tokens stay valid until expiry.
func (a *AuthController) LogoutUser(c *gin.Context) {
	http.SetCookie(c.Writer, newCookie(a.cfg, middlewares.AuthCookie, "", -1))
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// newCookie builds an HttpOnly cookie. Production serves the frontend from
// another origin, so the cookie is host-only, Secure and SameSite=None.
func newCookie(cfg *config.Config, name, value string, maxAge int) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		MaxAge:   maxAge,
		Path:     "/",
		Domain:   cfg.Domain,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if cfg.IsProduction() {
		ck.Domain = ""
		ck.Secure = true
		ck.SameSite = http.SameSiteNoneMode
	}
	return ck
}
