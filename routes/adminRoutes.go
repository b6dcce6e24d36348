package routes

import (
	"campusfix-be/controllers"
	"campusfix-be/middlewares"

	"github.com/gin-gonic/gin"
)

// AdminRoutes sets up the admin session routes. The session itself is
// restored by the global AdminSession middleware.
func AdminRoutes(r *gin.Engine, adminController *controllers.AdminController) {
	admin := r.Group("/api/admin")
	{
		admin.POST("/login", adminController.Login)
		admin.GET("/session", adminController.Session)
		admin.POST("/logout", middlewares.RequireAdmin(), adminController.Logout)
	}
}
