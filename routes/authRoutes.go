package routes

import (
	"campusfix-be/controllers"
	"campusfix-be/middlewares"

	"github.com/gin-gonic/gin"
)

// AuthRoutes sets up the authentication routes
func AuthRoutes(r *gin.Engine, authController *controllers.AuthController, secret string) {
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authController.RegisterUser)
		auth.POST("/login", authController.LoginUser)
		auth.POST("/logout", authController.LogoutUser)
		auth.GET("/me", middlewares.AuthMiddleware(secret), authController.GetMe)
	}
}
