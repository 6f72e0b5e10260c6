package routes

import (
	"clinic-portal-server/internal/clinic"
	"clinic-portal-server/internal/config"
	"clinic-portal-server/internal/handlers"
	"clinic-portal-server/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, clinicClient *clinic.Client, log zerolog.Logger) {
	// Initialize handlers; the calendar session registry is shared so logout
	// can evict the cached controller
	sessions := handlers.NewCalendarSessions()
	authHandler := handlers.NewAuthHandler(db, cfg, clinicClient, sessions, log)
	calendarHandler := handlers.NewCalendarHandler(db, cfg, clinicClient, sessions, log)
	referenceHandler := handlers.NewReferenceHandler(db, clinicClient, log)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
			authRoutes.POST("/password-reset/request", authHandler.RequestPasswordReset)
			authRoutes.POST("/password-reset/confirm", authHandler.ConfirmPasswordReset)
		}
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg)) // Apply JWT authentication middleware
	{
		// Auth related (profile, logout)
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
		}

		// Calendar interaction loop: one stateful edit session per patient
		calendarRoutes := private.Group("/calendar")
		{
			calendarRoutes.GET("", calendarHandler.GetCalendar)
			calendarRoutes.POST("/refresh", calendarHandler.RefreshCalendar)
			calendarRoutes.POST("/slots", calendarHandler.SelectSlot)
			calendarRoutes.POST("/events/:id/open", calendarHandler.OpenEvent)
			calendarRoutes.PUT("/form", calendarHandler.UpdateForm)
			calendarRoutes.POST("/save", calendarHandler.Save)
			calendarRoutes.POST("/delete", calendarHandler.RequestDelete)
			calendarRoutes.POST("/delete/confirm", calendarHandler.ConfirmDelete)
			calendarRoutes.POST("/delete/cancel", calendarHandler.CancelDelete)
			calendarRoutes.POST("/close", calendarHandler.CloseForm)
			calendarRoutes.GET("/upcoming", calendarHandler.GetUpcoming)
			calendarRoutes.GET("/history", calendarHandler.GetHistory)
		}

		// Read-only reference data for the booking form
		referenceRoutes := private.Group("/reference")
		{
			referenceRoutes.GET("/branch-offices", referenceHandler.GetBranchOffices)
			referenceRoutes.GET("/employees", referenceHandler.GetEmployees)
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
