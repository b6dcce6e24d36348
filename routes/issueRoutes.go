package routes

import (
	"campusfix-be/controllers"
	"campusfix-be/middlewares"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// IssueLimits configures the report rate limiter. A nil Redis client
// disables it.
type IssueLimits struct {
	Redis      *redis.Client
	QueueName  string
	DailyLimit int
}

// IssueRoutes sets up the issue routes. Ownership and admin checks happen in
// the board, so most routes only need the optional identity set globally.
func IssueRoutes(r *gin.Engine, issueController *controllers.IssueController, secret string, limits IssueLimits) {
	r.GET("/", issueController.Home)

	issue := r.Group("/api/issues")
	{
		issue.GET("", issueController.GetAllIssues)
		issue.GET("/stats", issueController.GetStats)
		issue.POST("",
			middlewares.AuthMiddleware(secret),
			middlewares.IssueRateLimiter(limits.Redis, limits.QueueName, limits.DailyLimit),
			issueController.CreateIssue,
		)
		issue.GET("/:id", issueController.GetIssue)
		issue.PATCH("/:id/status", issueController.UpdateStatus)
		issue.DELETE("/:id", issueController.DeleteIssue)
		issue.POST("/:id/upvote", issueController.ToggleUpvote)
		issue.GET("/:id/upvote", issueController.CheckUpvote)
		issue.GET("/:id/responses", issueController.GetResponses)
		issue.POST("/:id/responses", issueController.AddResponse)
		issue.GET("/:id/history", issueController.GetStatusHistory)
	}
}
