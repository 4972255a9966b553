package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/givehub/backend/internal/config"
	"github.com/givehub/backend/internal/handlers"
	"github.com/givehub/backend/internal/middleware"
)

// SetupRoutes registers all API routes
func SetupRoutes(router *gin.Engine, cfg *config.Config, projectHandler *handlers.ProjectHandler, adminHandler *handlers.AdminProjectHandler) {
	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(cfg.JWT))

	// Project owner surface
	projects := api.Group("/projects")
	{
		projects.POST("", projectHandler.CreateProject)
		projects.POST("/:id/updates", projectHandler.AddUpdate)
		projects.POST("/:id/verification-form", projectHandler.CreateForm)
	}
	api.PUT("/verification-forms/:id/step", projectHandler.SaveFormStep)
	api.POST("/verification-forms/:id/submit", projectHandler.SubmitForm)

	// Admin console surface
	admin := api.Group("/admin")
	admin.Use(middleware.AdminRequired())
	{
		admin.POST("/projects/bulk", adminHandler.BulkAction)
		admin.GET("/projects/:id/history", adminHandler.GetHistory)
		admin.POST("/verification-forms/:id/verify", adminHandler.VerifyForm)
		admin.POST("/verification-forms/:id/reject", adminHandler.RejectForm)
		admin.POST("/verification-forms/:id/make-draft", adminHandler.MakeDraftForm)
		admin.POST("/verification-forms/bulk", adminHandler.BulkReviewForms)
	}
}
