package main

import (
	"github.com/gin-gonic/gin"
	"github.com/raterly/backend/internal/config"
	"github.com/raterly/backend/internal/handlers"
	"github.com/raterly/backend/internal/middleware"
	"github.com/raterly/backend/internal/models"
)

// registerRoutes wires every HTTP endpoint. Public surface: review intake,
// published listings and health. Everything else requires authentication;
// cross-tenant and destructive operations require the superadmin role.
func registerRoutes(r *gin.Engine, cfg *config.Config, app *appServices) {
	r.Use(middleware.CORS())

	db := models.GetDB()
	healthHandler := handlers.NewHealthHandler()
	reviewHandler := handlers.NewReviewHandler(db, app.intakeService)
	reportHandler := handlers.NewReportHandler(db)
	dashboardHandler := handlers.NewDashboardHandler(db)
	digestHandler := handlers.NewDigestHandler(db, app.digestService, app.businessService)
	businessHandler := handlers.NewBusinessHandler(db, app.businessService)

	r.GET("/health", healthHandler.CheckHealth)

	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/login", app.authHandler.Login)
		}

		// Review intake is open to guests; abuse gates run per business
		// policy and the rate limiter caps per-IP throughput.
		api.POST("/reviews", middleware.RateLimit(5, 10), reviewHandler.Create)
		api.GET("/businesses/:id/reviews", reviewHandler.ListPublic)

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired())
		{
			// Auth
			protected.GET("/auth/me", app.authHandler.GetCurrentUser)
			protected.POST("/auth/logout", app.authHandler.Logout)
			protected.POST("/auth/password", app.authHandler.ChangePassword)

			// Dashboard
			protected.GET("/dashboard/stats", dashboardHandler.GetStats)

			// Review administration
			protected.GET("/reviews", reviewHandler.List)
			protected.PUT("/reviews/:id/status", reviewHandler.UpdateStatus)
			protected.PUT("/reviews/:id/privacy", reviewHandler.SetPrivacy)
			protected.PUT("/reviews/:id/order", reviewHandler.SetOrder)
			protected.POST("/reviews/:id/reply", reviewHandler.Reply)

			// Reports
			protected.GET("/reports/summary", reportHandler.Summary)
			protected.GET("/reports/trend", reportHandler.Trend)
			protected.GET("/reports/top/:dimension", reportHandler.Top)
			protected.GET("/reports/sentiment", reportHandler.Sentiment)
			protected.GET("/reports/compare/branches", reportHandler.CompareBranches)

			// Digests
			protected.GET("/digests", digestHandler.List)
			protected.POST("/digests/generate", digestHandler.Generate)
			protected.GET("/digests/countries", digestHandler.Countries)

			// Business settings
			protected.GET("/businesses/:id", businessHandler.Get)
			protected.PUT("/businesses/:id", businessHandler.Update)

			// Superadmin-only
			admin := protected.Group("")
			admin.Use(middleware.SuperadminRequired())
			{
				admin.POST("/businesses", businessHandler.Create)
				admin.DELETE("/reviews/:id", reviewHandler.Delete)
			}
		}
	}
}
