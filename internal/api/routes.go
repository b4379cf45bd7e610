package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"careerbridge/internal/api/middleware"
	"careerbridge/internal/auditlog"
	"careerbridge/internal/auth"
	"careerbridge/internal/config"
	"careerbridge/internal/placement"
	"careerbridge/internal/storage"
)

// RegisterRoutes wires every handler under /v1.
func RegisterRoutes(
	router *gin.Engine,
	cfg *config.Config,
	db *gorm.DB,
	svc *placement.Service,
	asynqClient *asynq.Client,
	authService *auth.AuthService,
	redisClient redis.UniversalClient,
	audit *auditlog.Trail,
	logger *slog.Logger,
	storageClient *storage.Client,
) {
	authHandler := NewAuthHandler(db, svc, authService, redisClient, audit, logger,
		cfg.API.LoginRateLimitPerHour, cfg.API.LoginLockThreshold, cfg.API.LoginLockTTL(), cfg.API.CookieDomain)
	profileHandler := NewProfileHandler(db, storageClient, logger, cfg.Clamd.Addr)
	jobHandler := NewJobHandler(db, svc, logger)
	appHandler := NewApplicationHandler(db, svc, logger)
	notificationHandler := NewNotificationHandler(db, logger)
	summaryHandler := NewSummaryHandler(svc, asynqClient, redisClient, logger)
	adminHandler := NewAdminHandler(db, audit, logger)
	wsHandler := NewWsHandler(redisClient, authService, logger, nil)

	authMiddleware := middleware.AuthMiddleware(authService)
	studentOnly := middleware.RequireStudent()
	recruiterOnly := middleware.RequireRecruiter()
	adminOnly := middleware.RequireAdmin(db)

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register/student", authHandler.RegisterStudent)
			authGroup.POST("/register/recruiter", authHandler.RegisterRecruiter)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authMiddleware, authHandler.Logout)
		}

		profileGroup := v1.Group("/profile")
		profileGroup.Use(authMiddleware)
		{
			profileGroup.GET("", profileHandler.GetProfile)
			profileGroup.PUT("/student", studentOnly, profileHandler.UpdateStudentProfile)
			profileGroup.PUT("/recruiter", recruiterOnly, profileHandler.UpdateRecruiterProfile)
			profileGroup.POST("/resume", studentOnly, profileHandler.UploadResume)
			profileGroup.POST("/photo", profileHandler.UploadPhoto)
			profileGroup.GET("/resume-link", profileHandler.ResumeLink)
		}

		jobGroup := v1.Group("/jobs")
		jobGroup.Use(authMiddleware)
		{
			jobGroup.GET("", jobHandler.BrowseJobs)
			jobGroup.GET("/:id", jobHandler.GetJob)
			jobGroup.POST("", recruiterOnly, jobHandler.CreateJob)
			jobGroup.PUT("/:id", recruiterOnly, jobHandler.UpdateJob)
			jobGroup.DELETE("/:id", recruiterOnly, jobHandler.DeleteJob)
			jobGroup.GET("/mine", recruiterOnly, jobHandler.MyListings)
			jobGroup.POST("/:id/apply", studentOnly, jobHandler.Apply)
			jobGroup.GET("/:id/applications", recruiterOnly, appHandler.ListForJob)
		}

		appGroup := v1.Group("/applications")
		appGroup.Use(authMiddleware)
		{
			appGroup.GET("/mine", studentOnly, jobHandler.MyApplications)
			appGroup.GET("/:id", recruiterOnly, appHandler.GetApplication)
			appGroup.PUT("/:id/status", recruiterOnly, appHandler.UpdateStatus)
			appGroup.POST("/:id/interview", recruiterOnly, appHandler.ScheduleInterview)
			appGroup.POST("/:id/interviews", recruiterOnly, appHandler.CreateInterview)
			appGroup.POST("/:id/summary", recruiterOnly, summaryHandler.RequestSummary)
			appGroup.GET("/:id/summary", recruiterOnly, summaryHandler.GetSummary)
		}

		interviewGroup := v1.Group("/interviews")
		interviewGroup.Use(authMiddleware)
		{
			interviewGroup.GET("", appHandler.ListInterviews)
			interviewGroup.GET("/:id", appHandler.GetInterview)
			interviewGroup.PUT("/:id/result", recruiterOnly, appHandler.RecordResult)
		}

		notificationGroup := v1.Group("/notifications")
		notificationGroup.Use(authMiddleware)
		{
			notificationGroup.GET("", notificationHandler.List)
			notificationGroup.GET("/unread-count", notificationHandler.UnreadCount)
		}

		adminGroup := v1.Group("/admin")
		adminGroup.Use(authMiddleware, adminOnly)
		{
			adminGroup.GET("/dashboard", adminHandler.Dashboard)
			adminGroup.GET("/users", adminHandler.ListUsers)
			adminGroup.PUT("/users/:id/admin", adminHandler.SetAdmin)
			adminGroup.DELETE("/users/:id", adminHandler.DeleteUser)
			adminGroup.GET("/logs", adminHandler.Logs)
			adminGroup.GET("/activity", adminHandler.Activity)
		}
	}
}
