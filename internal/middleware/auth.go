package middleware

import (
	"net/http"
	"time"

	"billing-bridge/internal/response"
	"billing-bridge/internal/services"

	"github.com/gin-gonic/gin"
)

var (
	ProjectService *services.ProjectService
	Limiter        *services.RateLimiter
)

// InitProjectManager initializes the project manager
func InitProjectManager() {
	ProjectService = services.NewProjectService()
	Limiter = services.NewRateLimiter()
}

// ProjectAuthMiddleware provides project authentication middleware
func ProjectAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get project ID and API key
		projectID := c.GetHeader("X-Project-ID")
		apiKey := c.GetHeader("X-API-Key")

		// If not passed via header, try to get from query parameters
		if projectID == "" {
			projectID = c.Query("project_id")
		}
		if apiKey == "" {
			apiKey = c.Query("api_key")
		}

		if projectID == "" || apiKey == "" {
			c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Missing project_id or api_key"))
			c.Abort()
			return
		}

		if !ProjectService.ValidateProject(projectID, apiKey) {
			c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid project_id or api_key"))
			c.Abort()
			return
		}

		c.Set("project_id", projectID)
		c.Set("request_time", time.Now())
		c.Next()
	}
}

// RateLimitMiddleware enforces the project's per-minute request budget.
// Must run after ProjectAuthMiddleware.
func RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.GetString("project_id")
		if projectID == "" {
			c.Next()
			return
		}

		limit := 0
		if project, err := ProjectService.GetProject(projectID); err == nil {
			limit = project.RateLimit
		}

		if !Limiter.Allow(c.Request.Context(), projectID, limit) {
			c.JSON(http.StatusTooManyRequests, response.Error(http.StatusTooManyRequests, "Rate limit exceeded"))
			c.Abort()
			return
		}
		c.Next()
	}
}
