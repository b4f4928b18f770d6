package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/healthcare-api/internal/apperr"
	"github.com/harentsoaR/healthcare-api/internal/middleware"
	"github.com/harentsoaR/healthcare-api/internal/models"
	"github.com/harentsoaR/healthcare-api/internal/response"
	"github.com/harentsoaR/healthcare-api/internal/validation"
)

type RouterConfig struct {
	CORSOrigins []string
}

func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	validation.Setup()

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(h.Log),
		middleware.Recovery(h.Log),
		middleware.ErrorHandler(h.Log),
		cors.New(corsConfig(cfg.CORSOrigins)),
	)

	r.GET("/health", h.Health)
	r.NoRoute(func(c *gin.Context) {
		response.Fail(c, apperr.New(http.StatusNotFound, "ROUTE_NOT_FOUND", "Route not found"))
	})

	auth := middleware.Authenticate(h.Tokens)
	optionalAuth := middleware.OptionalAuth(h.Tokens)
	roles := middleware.RequireRoles

	api := r.Group("/api/v1")

	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", h.RegisterUser)
		authRoutes.POST("/login", h.Login)
		authRoutes.POST("/logout", auth, h.Logout)
	}

	users := api.Group("/users", auth)
	{
		users.GET("/me", h.GetCurrentUser)
		users.PUT("/me", h.UpdateCurrentUser)
		users.GET("", roles(models.RoleAdmin), h.ListUsers)
	}

	doctors := api.Group("/doctors")
	{
		doctors.GET("", optionalAuth, h.ListDoctors)
		doctors.GET("/:id", optionalAuth, h.GetDoctor)
		doctors.POST("", auth, roles(models.RoleDoctor, models.RoleAdmin), h.CreateDoctor)
		doctors.PUT("/:id", auth, roles(models.RoleDoctor, models.RoleAdmin), h.UpdateDoctor)
		doctors.DELETE("/:id", auth, roles(models.RoleDoctor, models.RoleAdmin), h.DeleteDoctor)
		doctors.GET("/:id/reviews", h.ListReviews)
		doctors.POST("/:id/reviews", auth, roles(models.RolePatient), h.CreateReview)
		doctors.GET("/:id/stats", auth, roles(models.RoleDoctor, models.RoleAdmin), h.DoctorStats)
	}

	patients := api.Group("/patients", auth)
	{
		patients.GET("", roles(models.RoleDoctor, models.RoleAdmin), h.ListPatients)
		patients.GET("/:id", h.GetPatient)
		patients.POST("", roles(models.RolePatient, models.RoleAdmin), h.CreatePatient)
		patients.PUT("/:id", roles(models.RolePatient, models.RoleAdmin), h.UpdatePatient)
		patients.DELETE("/:id", roles(models.RolePatient, models.RoleAdmin), h.DeletePatient)
	}

	clinical := []string{models.RolePatient, models.RoleDoctor, models.RoleAdmin}

	appointments := api.Group("/appointments", auth, roles(clinical...))
	{
		appointments.GET("", h.ListAppointments)
		appointments.GET("/:id", h.GetAppointment)
		appointments.POST("", h.CreateAppointment)
		appointments.PUT("/:id", h.UpdateAppointment)
		appointments.DELETE("/:id", h.CancelAppointment)
	}

	prescriptions := api.Group("/prescriptions", auth, roles(clinical...))
	{
		prescriptions.GET("", h.ListPrescriptions)
		prescriptions.GET("/:id", h.GetPrescription)
		prescriptions.POST("", roles(models.RoleDoctor, models.RoleAdmin), h.CreatePrescription)
		prescriptions.PUT("/:id", roles(models.RoleDoctor, models.RoleAdmin), h.UpdatePrescription)
		prescriptions.DELETE("/:id", roles(models.RoleDoctor, models.RoleAdmin), h.CancelPrescription)
	}

	records := api.Group("/medical-records", auth, roles(clinical...))
	{
		records.GET("", h.ListMedicalRecords)
		records.GET("/:id", h.GetMedicalRecord)
		records.POST("", roles(models.RoleDoctor, models.RoleAdmin), h.CreateMedicalRecord)
		records.PUT("/:id", roles(models.RoleDoctor, models.RoleAdmin), h.UpdateMedicalRecord)
		records.DELETE("/:id", roles(models.RoleDoctor, models.RoleAdmin), h.DeleteMedicalRecord)
	}

	recruiters := []string{models.RoleRecruiter, models.RoleAdmin}

	companies := api.Group("/companies")
	{
		companies.GET("", h.ListCompanies)
		companies.GET("/:id", h.GetCompany)
		companies.POST("", auth, roles(recruiters...), h.CreateCompany)
		companies.PUT("/:id", auth, roles(recruiters...), h.UpdateCompany)
		companies.DELETE("/:id", auth, roles(recruiters...), h.DeleteCompany)
	}

	jobs := api.Group("/jobs")
	{
		jobs.GET("", h.ListJobs)
		jobs.GET("/:id", h.GetJob)
		jobs.POST("", auth, roles(recruiters...), h.CreateJob)
		jobs.PUT("/:id", auth, roles(recruiters...), h.UpdateJob)
		jobs.DELETE("/:id", auth, roles(recruiters...), h.CloseJob)
	}

	messages := api.Group("/messages", auth)
	{
		messages.POST("", h.SendMessage)
		messages.GET("", h.ListMessages)
		messages.PATCH("/:id/read", h.MarkMessageRead)
	}

	notifications := api.Group("/notifications", auth)
	{
		notifications.GET("", h.ListNotifications)
		notifications.PATCH("/read-all", h.MarkAllNotificationsRead)
		notifications.PATCH("/:id/read", h.MarkNotificationRead)
		notifications.POST("/broadcast", roles(models.RoleAdmin), h.BroadcastNotification)
	}

	ai := api.Group("/ai")
	{
		ai.POST("/symptom-analysis", optionalAuth, h.AnalyzeSymptoms)
		ai.GET("/symptom-analysis/history", auth, h.SymptomHistory)
	}

	api.DELETE("/admin/:collection/:id", auth, roles(models.RoleAdmin), h.PurgeDocument)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.Store.Ping(ctx); err != nil {
		h.Log.Error().Err(err).Msg("health check failed")
		response.Fail(c, apperr.New(http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Document store is unavailable"))
		return
	}
	response.OK(c, gin.H{"status": "ok"})
}
