package routes

import (
	"campusfix-be/controllers"

	"github.com/gin-gonic/gin"
)

func MapRoutes(r *gin.Engine, mapController *controllers.MapController) {
	m := r.Group("/api/map")
	{
		m.GET("/pins", mapController.GetPins)
		m.POST("/locate", mapController.Locate)
		m.POST("/adding", mapController.SetAdding)
		m.POST("/click", mapController.Click)
		m.POST("/pins", mapController.CommitPin)
		m.GET("/pins/:id", mapController.GetPin)
		m.DELETE("/pins/:id", mapController.DeletePin)
	}
}
