package api

import (
	"net/http"

	"billing-bridge/internal/config"
	"billing-bridge/internal/middleware"
	"billing-bridge/internal/models"
	"billing-bridge/internal/response"

	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up all routes
func SetupRoutes(r *gin.Engine, b *Bridge) {
	// Initialize project manager
	middleware.InitProjectManager()

	// API route group
	api := r.Group("/api")
	{
		// Billing routes (require project authentication)
		bg := api.Group("/billing")
		bg.Use(middleware.ProjectAuthMiddleware())
		bg.Use(middleware.RateLimitMiddleware())
		{
			bg.POST("/init", b.InitBilling)
			bg.POST("/products", b.GetProducts)
			bg.POST("/buy", b.Buy)
			bg.POST("/consume", b.Consume)
			bg.POST("/restore", b.Restore)
			bg.POST("/subscribe", b.Subscribe)
		}

		// Store notification routes (store-initiated, no project auth)
		store := api.Group("/store")
		{
			store.POST("/notifications", b.StoreNotificationHandler)
		}

		// Project management routes (for admin use)
		admin := api.Group("/admin")
		{
			admin.GET("/projects", b.GetProjects)
			admin.POST("/projects", b.CreateProject)
			admin.PUT("/projects/:id", b.UpdateProject)
			admin.DELETE("/projects/:id", b.DeleteProject)
		}
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "billing-bridge",
			"ready":   b.Billing.Ready(),
			"mode":    config.AppConfig.Mode,
		})
	})
}

// GetProjects gets all projects
func (b *Bridge) GetProjects(c *gin.Context) {
	projects, err := b.Projects.GetAllProjects()
	if err != nil {
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to get projects")
		return
	}
	response.SuccessJSON(c, projects)
}

// CreateProjectRequest represents create project request
type CreateProjectRequest struct {
	ProjectID          string `json:"project_id" binding:"required"`
	ProjectName        string `json:"project_name" binding:"required"`
	APIKey             string `json:"api_key" binding:"required"`
	Description        string `json:"description"`
	BundleID           string `json:"bundle_id"`
	PackageName        string `json:"package_name"`
	RateLimit          int    `json:"rate_limit"`
	MaxRequests        int    `json:"max_requests"`
	WebhookCallbackURL string `json:"webhook_callback_url"`
	WebhookSecret      string `json:"webhook_secret"`
}

// CreateProject creates a new project
func (b *Bridge) CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	// Set defaults
	if req.RateLimit == 0 {
		req.RateLimit = 60 // 60 requests per minute
	}
	if req.MaxRequests == 0 {
		req.MaxRequests = 1000 // 1000 requests per day
	}

	project := &models.Project{
		ProjectID:          req.ProjectID,
		ProjectName:        req.ProjectName,
		APIKey:             req.APIKey,
		Description:        req.Description,
		BundleID:           req.BundleID,
		PackageName:        req.PackageName,
		RateLimit:          req.RateLimit,
		MaxRequests:        req.MaxRequests,
		WebhookCallbackURL: req.WebhookCallbackURL,
		WebhookSecret:      req.WebhookSecret,
		IsActive:           true,
	}
	if err := b.Projects.CreateProject(project); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Failed to create project: "+err.Error())
		return
	}

	response.JSON(c, http.StatusCreated, response.Success(project))
}

// UpdateProjectRequest represents update project request
type UpdateProjectRequest struct {
	ProjectName        string `json:"project_name"`
	Description        string `json:"description"`
	BundleID           string `json:"bundle_id"`
	PackageName        string `json:"package_name"`
	RateLimit          int    `json:"rate_limit"`
	MaxRequests        int    `json:"max_requests"`
	IsActive           *bool  `json:"is_active"`
	WebhookCallbackURL string `json:"webhook_callback_url"`
	WebhookSecret      string `json:"webhook_secret"`
}

// UpdateProject updates an existing project
func (b *Bridge) UpdateProject(c *gin.Context) {
	projectID := c.Param("id")
	if projectID == "" {
		response.ErrorJSON(c, http.StatusBadRequest, "Project ID is required")
		return
	}

	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	updates := make(map[string]interface{})
	if req.ProjectName != "" {
		updates["project_name"] = req.ProjectName
	}
	if req.Description != "" {
		updates["description"] = req.Description
	}
	if req.BundleID != "" {
		updates["bundle_id"] = req.BundleID
	}
	if req.PackageName != "" {
		updates["package_name"] = req.PackageName
	}
	if req.RateLimit > 0 {
		updates["rate_limit"] = req.RateLimit
	}
	if req.MaxRequests > 0 {
		updates["max_requests"] = req.MaxRequests
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.WebhookCallbackURL != "" {
		updates["webhook_callback_url"] = req.WebhookCallbackURL
	}
	if req.WebhookSecret != "" {
		updates["webhook_secret"] = req.WebhookSecret
	}

	if err := b.Projects.UpdateProject(projectID, updates); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Failed to update project: "+err.Error())
		return
	}

	response.SuccessJSON(c, nil)
}

// DeleteProject deletes a project
func (b *Bridge) DeleteProject(c *gin.Context) {
	projectID := c.Param("id")
	if projectID == "" {
		response.ErrorJSON(c, http.StatusBadRequest, "Project ID is required")
		return
	}

	if err := b.Projects.DeleteProject(projectID); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Failed to delete project: "+err.Error())
		return
	}

	response.SuccessJSON(c, nil)
}
