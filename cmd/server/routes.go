package main

import (
	"github.com/gin-gonic/gin"

	"github.com/huangang/adsentry/internal/handlers"
	"github.com/huangang/adsentry/internal/middleware"
	"github.com/huangang/adsentry/internal/models"
	"github.com/huangang/adsentry/internal/services"
	"github.com/huangang/adsentry/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	// Rate limiter for the unauthenticated intake route
	intakeLimiter := middleware.NewRateLimiter(10, 20)

	// Health check (liveness only; detailed health is under /api)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "adsentry"})
	})

	// Prometheus metrics
	r.GET("/metrics", handlers.Metrics)

	videoHandler := handlers.NewVideoHandler(models.GetDB(), svc.cfg, svc.intakeService, svc.reviewService, svc.taskQueue)
	reviewHandler := handlers.NewReviewHandler(models.GetDB(), svc.reviewService, svc.taskQueue)

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/login", svc.authHandler.Login)
			auth.POST("/refresh", svc.authHandler.Refresh)
			auth.GET("/config", svc.authHandler.GetAuthConfig)
		}

		// SSE events (public, carries run status only)
		sseHandler := handlers.NewSSEHandler(services.GetSSEHub())
		api.GET("/events/reviews", sseHandler.StreamReviewEvents)

		// Intake by path (public, used by the email collaborator; rate limited)
		api.POST("/videos/intake", intakeLimiter.Middleware(), videoHandler.Intake)

		// Protected routes (any authenticated role)
		protected := api.Group("")
		protected.Use(middleware.AuthRequired())
		{
			// Auth
			protected.GET("/auth/me", svc.authHandler.GetCurrentUser)
			protected.POST("/auth/logout", svc.authHandler.Logout)
			protected.POST("/auth/change-password", svc.authHandler.ChangePassword)

			// Detailed health
			healthHandler := handlers.NewHealthHandler()
			protected.GET("/health", healthHandler.CheckHealth)

			// Dashboard
			dashboardHandler := handlers.NewDashboardHandler(models.GetDB())
			protected.GET("/dashboard/stats", dashboardHandler.GetStats)

			// Video assets (read)
			protected.GET("/videos", videoHandler.List)
			protected.GET("/videos/:id", videoHandler.GetByID)

			// Review runs (read)
			protected.GET("/reviews", reviewHandler.List)
			protected.GET("/reviews/:id", reviewHandler.GetByID)
			protected.GET("/reviews/:id/report", reviewHandler.GetReport)

			// Effective rule set
			rulesHandler := handlers.NewRulesHandler(svc.cfg)
			protected.GET("/rules", rulesHandler.List)
		}

		// Reviewer routes (write operations on assets and runs)
		reviewer := api.Group("")
		reviewer.Use(middleware.AuthRequired(), middleware.RoleRequired("reviewer"), middleware.AuditLog())
		{
			reviewer.POST("/videos", videoHandler.Upload)
			reviewer.DELETE("/videos/:id", videoHandler.Delete)

			reviewer.POST("/reviews", reviewHandler.Start)
			reviewer.POST("/reviews/batch", reviewHandler.StartBatch)
			reviewer.POST("/reviews/:id/abort", reviewHandler.Abort)
			reviewer.POST("/reviews/:id/retry", reviewHandler.Retry)
			reviewer.POST("/reviews/:id/report/regenerate", reviewHandler.RegenerateReport)
			reviewer.DELETE("/reviews/:id", reviewHandler.Delete)
		}

		// Admin only routes
		admin := api.Group("")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired(), middleware.AuditLog())
		{
			// Users
			userHandler := handlers.NewUserHandler(models.GetDB())
			admin.GET("/users", userHandler.List)
			admin.POST("/users", userHandler.Create)
			admin.PUT("/users/:id", userHandler.Update)
			admin.DELETE("/users/:id", userHandler.Delete)

			// IM Bots
			imBotHandler := handlers.NewIMBotHandler(models.GetDB())
			admin.GET("/im-bots", imBotHandler.List)
			admin.GET("/im-bots/active", imBotHandler.GetAllActive)
			admin.GET("/im-bots/:id", imBotHandler.GetByID)
			admin.POST("/im-bots", imBotHandler.Create)
			admin.PUT("/im-bots/:id", imBotHandler.Update)
			admin.DELETE("/im-bots/:id", imBotHandler.Delete)
			admin.POST("/im-bots/:id/test", imBotHandler.TestWebhook)

			// AI usage accounting
			aiUsageHandler := handlers.NewAIUsageHandler(models.GetDB())
			admin.GET("/ai-usage/stats", aiUsageHandler.GetStats)
			admin.GET("/ai-usage/trend", aiUsageHandler.GetDailyTrend)
			admin.GET("/ai-usage/providers", aiUsageHandler.GetProviderBreakdown)

			// System Logs
			systemLogHandler := handlers.NewSystemLogHandler(models.GetDB())
			admin.GET("/system-logs", systemLogHandler.List)
			admin.GET("/system-logs/modules", systemLogHandler.GetModules)
			admin.POST("/system-logs/cleanup", systemLogHandler.Cleanup)

			// System Config
			systemConfigHandler := handlers.NewSystemConfigHandler(models.GetDB(), svc.digestService)
			admin.GET("/system-config/ldap", systemConfigHandler.GetLDAPConfig)
			admin.PUT("/system-config/ldap", systemConfigHandler.UpdateLDAPConfig)
			admin.GET("/system-config/digest", systemConfigHandler.GetDigestConfig)
			admin.PUT("/system-config/digest", systemConfigHandler.UpdateDigestConfig)
			admin.GET("/system-config/retention", systemConfigHandler.GetRetentionConfig)
			admin.PUT("/system-config/retention", systemConfigHandler.UpdateRetentionConfig)
			admin.GET("/system-config/email", systemConfigHandler.GetEmailConfig)
			admin.PUT("/system-config/email", systemConfigHandler.UpdateEmailConfig)
			admin.GET("/system-config/holiday-countries", systemConfigHandler.GetHolidayCountries)

			// Daily Digests
			dailyDigestHandler := handlers.NewDailyDigestHandler(svc.digestService)
			admin.GET("/digests", dailyDigestHandler.List)
			admin.GET("/digests/:id", dailyDigestHandler.Get)
			admin.POST("/digests/generate", dailyDigestHandler.Generate)
			admin.POST("/digests/:id/resend", dailyDigestHandler.Resend)

			// Maintenance
			maintenanceHandler := handlers.NewMaintenanceHandler(models.GetDB(), svc.cfg)
			admin.POST("/maintenance/cleanup", maintenanceHandler.Cleanup)
		}
	}
}
