package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"clinic-scheduler-server/internal/config"
	"clinic-scheduler-server/internal/handlers"
	"clinic-scheduler-server/internal/middleware"
	"clinic-scheduler-server/internal/models"
	"clinic-scheduler-server/internal/notify"
	"clinic-scheduler-server/internal/scheduling"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, notifier notify.Notifier, reminders *scheduling.ReminderScheduler, log zerolog.Logger) {
	// Initialize scheduling services and handlers
	catalog := scheduling.NewCatalog(db)
	store := scheduling.NewAppointmentStore(db, log)
	lifecycle := scheduling.NewLifecycle(db, notifier, log)

	authHandler := handlers.NewAuthHandler(db, cfg)
	userHandler := handlers.NewUserHandler(db)
	appointmentHandler := handlers.NewAppointmentHandler(store, lifecycle, reminders)
	availabilityHandler := handlers.NewAvailabilityHandler(catalog)
	consultationHandler := handlers.NewConsultationHandler(db)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg)) // Apply JWT authentication middleware
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
		}

		// User management routes
		userRoutes := private.Group("/users")
		{
			// Accessible by all authenticated users, for booking
			userRoutes.GET("/providers", userHandler.GetProviders)

			// Accessible by providers and admins
			userRoutes.GET("/patients", userHandler.GetPatients)

			// Admin-only routes
			adminRoutes := userRoutes.Group("")
			adminRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
			{
				adminRoutes.POST("", userHandler.CreateUser)
				adminRoutes.GET("", userHandler.GetUsers)
				adminRoutes.GET("/:id", userHandler.GetUserByID)
				adminRoutes.PUT("/:id", userHandler.UpdateUser)
				adminRoutes.DELETE("/:id", userHandler.DeleteUser)
			}
		}

		// Availability window routes (provider manages own, admin manages any;
		// enforced in the handler)
		providerRoutes := private.Group("/providers/:providerId")
		{
			providerRoutes.GET("/windows", availabilityHandler.GetProviderWindows)
			providerRoutes.PUT("/windows", middleware.RoleAuthMiddleware(models.RoleProvider, models.RoleAdmin), availabilityHandler.SetProviderWindows)
			providerRoutes.POST("/windows/default", middleware.RoleAuthMiddleware(models.RoleProvider, models.RoleAdmin), availabilityHandler.SeedDefaultWindows)
		}

		// Appointment routes
		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.POST("", appointmentHandler.CreateAppointment)
			appointmentRoutes.GET("", appointmentHandler.GetAppointmentsForUser)
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID) // Authorization inside handler

			// Lifecycle transitions (authorization inside handlers)
			appointmentRoutes.POST("/:id/cancel", appointmentHandler.CancelAppointment)
			appointmentRoutes.POST("/:id/attend", middleware.RoleAuthMiddleware(models.RoleProvider, models.RoleAdmin), appointmentHandler.MarkAttended)
			appointmentRoutes.POST("/:id/no-show", middleware.RoleAuthMiddleware(models.RoleProvider, models.RoleAdmin), appointmentHandler.MarkNoShow)

			appointmentRoutes.PATCH("/:id", middleware.RoleAuthMiddleware(models.RoleProvider, models.RoleAdmin), appointmentHandler.PatchAppointment)
			appointmentRoutes.DELETE("/:id", middleware.RoleAuthMiddleware(models.RoleAdmin), appointmentHandler.DeleteAppointment)

			// Date-range listings
			appointmentRoutes.GET("/provider/:providerId", middleware.RoleAuthMiddleware(models.RoleProvider, models.RoleAdmin), appointmentHandler.GetProviderAgenda)
			appointmentRoutes.GET("/patient/:patientId", appointmentHandler.GetPatientHistory)
			appointmentRoutes.GET("/patient/:patientId/upcoming", appointmentHandler.GetPatientUpcoming)
		}

		// Consultation routes
		consultationRoutes := private.Group("/consultations")
		{
			consultationRoutes.GET("/:id", consultationHandler.GetConsultationByID)
			consultationRoutes.PUT("/:id", middleware.RoleAuthMiddleware(models.RoleProvider, models.RoleAdmin), consultationHandler.UpdateConsultation)
			consultationRoutes.POST("/:id/prescriptions", middleware.RoleAuthMiddleware(models.RoleProvider, models.RoleAdmin), consultationHandler.AddPrescription)
			consultationRoutes.GET("/patient/:patientId", consultationHandler.GetConsultationsForPatient)
		}

		// Manual reminder sweep, for operators and testing
		private.POST("/reminders/sweep", middleware.RoleAuthMiddleware(models.RoleAdmin), appointmentHandler.TriggerReminderSweep)
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
