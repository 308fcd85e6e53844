package v1

import (
	"urltracker/api/v1/auth"
	"urltracker/api/v1/clienterrors"
	"urltracker/api/v1/contentevents"
	"urltracker/api/v1/middleware"
	"urltracker/api/v1/redirects"
	"urltracker/internal/config"
	"urltracker/internal/httpx"
	"urltracker/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Services bundles the engine services the admin API is built on.
type Services struct {
	Redirects     *service.Redirects
	ClientErrors  *service.ClientErrors
	ContentEvents *service.ContentEvents
	NodeRegistry  *service.NodeRegistry
}

// SetupRouter sets up the API v1 routes
func SetupRouter(r *gin.Engine, db *gorm.DB, cfg *config.Config, svc Services) {
	v1 := r.Group("/api/v1")
	{
		// Public routes (no authentication required)
		v1.GET("/ping", pingHandler)

		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/login", auth.LoginHandler(db, cfg))
		}

		// Protected routes (authentication required)
		protected := v1.Group("")
		protected.Use(middleware.AuthRequired())
		{
			protected.GET("/me", meHandler)

			// Redirect rule routes
			redirectsHandler := redirects.NewHandler(svc.Redirects)
			redirectsGroup := protected.Group("/redirects")
			{
				redirectsGroup.GET("", redirectsHandler.List)
				redirectsGroup.POST("/create", redirectsHandler.Create)
				redirectsGroup.POST("/update", redirectsHandler.Update)
				redirectsGroup.POST("/delete", redirectsHandler.Delete)
				redirectsGroup.GET("/export", redirectsHandler.Export)
				redirectsGroup.POST("/import", redirectsHandler.Import)
			}

			// Content lifecycle notifications from the host CMS
			eventsHandler := contentevents.NewHandler(svc.ContentEvents, svc.NodeRegistry)
			protected.POST("/content-events", eventsHandler.Post)

			// Client error (tracked miss) routes
			clientErrorsHandler := clienterrors.NewHandler(svc.ClientErrors)
			clientErrorsGroup := protected.Group("/client-errors")
			{
				clientErrorsGroup.GET("", clientErrorsHandler.List)
				clientErrorsGroup.POST("/ignore", clientErrorsHandler.Ignore)
				clientErrorsGroup.POST("/unignore", clientErrorsHandler.Unignore)
				clientErrorsGroup.POST("/delete", clientErrorsHandler.Delete)

				// Ignore list routes
				clientErrorsGroup.GET("/ignore-rules", clientErrorsHandler.ListIgnoreRules)
				clientErrorsGroup.POST("/ignore-rules/create", clientErrorsHandler.CreateIgnoreRule)
				clientErrorsGroup.POST("/ignore-rules/delete", clientErrorsHandler.DeleteIgnoreRule)
			}
		}
	}
}

// pingHandler handles the ping request using unified response
func pingHandler(c *gin.Context) {
	httpx.OK(c, gin.H{
		"pong": true,
	})
}

// meHandler returns current user information
func meHandler(c *gin.Context) {
	uid, _ := c.Get("uid")
	username, _ := c.Get("username")
	role, _ := c.Get("role")

	httpx.OK(c, gin.H{
		"uid":      uid,
		"username": username,
		"role":     role,
	})
}
