package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"healthcare-booking-server/internal/config"
	"healthcare-booking-server/internal/handlers"
	"healthcare-booking-server/internal/metrics"
	"healthcare-booking-server/internal/middleware"
	"healthcare-booking-server/internal/models"
	"healthcare-booking-server/internal/services"
	"healthcare-booking-server/internal/utils"
)

// Dependencies are the wired services behind the route table.
type Dependencies struct {
	Config     *config.Config
	Tokens     *utils.TokenManager
	Identity   *services.IdentityService
	Scheduling *services.SchedulingService
	Records    *services.RecordService
	Directory  *services.DirectoryService
	Symptoms   *services.SymptomChecker

	// AuthLimiter throttles the unauthenticated auth endpoints. Nil disables it.
	AuthLimiter *middleware.RateLimiter
	// Gatherer backs /metrics. Nil leaves the endpoint out.
	Gatherer prometheus.Gatherer
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	authHandler := handlers.NewAuthHandler(deps.Identity, deps.Config)
	userHandler := handlers.NewUserHandler(deps.Directory)
	appointmentHandler := handlers.NewAppointmentHandler(deps.Scheduling)
	medicalRecordHandler := handlers.NewMedicalRecordHandler(deps.Records)
	symptomHandler := handlers.NewSymptomHandler(deps.Symptoms)

	limiter := deps.AuthLimiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(0)
	}

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		authRoutes.Use(limiter.RateLimit())
		{
			authRoutes.POST("/signup/patient", authHandler.SignupPatient)
			authRoutes.POST("/signup/doctor", authHandler.SignupDoctor)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
			authRoutes.POST("/logout", authHandler.Logout)
		}
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(deps.Tokens, deps.Identity))
	{
		private.GET("/auth/profile", authHandler.GetProfile)

		userRoutes := private.Group("/users")
		{
			userRoutes.GET("/doctors", userHandler.GetDoctors)

			doctorOnly := userRoutes.Group("")
			doctorOnly.Use(middleware.RoleAuthMiddleware(models.RoleDoctor))
			{
				doctorOnly.GET("/patients", userHandler.GetPatients)
				doctorOnly.GET("/patients/:id", userHandler.GetPatientByID)
			}
		}

		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.POST("", appointmentHandler.CreateAppointment)
			appointmentRoutes.GET("", appointmentHandler.GetAppointmentsForUser)
			appointmentRoutes.GET("/availability", appointmentHandler.GetAvailability)
			appointmentRoutes.GET("/next-available", appointmentHandler.GetNextAvailable)
			appointmentRoutes.GET("/stats", appointmentHandler.GetStats)
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID)
			appointmentRoutes.PATCH("/:id/cancel", appointmentHandler.CancelAppointment)
			appointmentRoutes.PATCH("/:id/complete", middleware.RoleAuthMiddleware(models.RoleDoctor), appointmentHandler.CompleteAppointment)
			appointmentRoutes.PATCH("/:id/prescription", middleware.RoleAuthMiddleware(models.RoleDoctor), appointmentHandler.AddPrescription)
		}

		medicalRecordRoutes := private.Group("/medical-records")
		{
			medicalRecordRoutes.POST("", middleware.RoleAuthMiddleware(models.RoleDoctor), medicalRecordHandler.CreateMedicalRecord)
			medicalRecordRoutes.GET("/patient/:patientId", medicalRecordHandler.GetMedicalRecordsForPatient)
			medicalRecordRoutes.GET("/:id", medicalRecordHandler.GetMedicalRecordByID)
			medicalRecordRoutes.PUT("/:id", middleware.RoleAuthMiddleware(models.RoleDoctor), medicalRecordHandler.UpdateMedicalRecord)
		}

		private.POST("/symptoms/check", symptomHandler.CheckSymptoms)
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler(deps.Gatherer)))
	}
}
