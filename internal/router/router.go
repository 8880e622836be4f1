package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/proctorhub/proctorhub-backend/internal/config"
	"github.com/proctorhub/proctorhub-backend/internal/handler"
	"github.com/proctorhub/proctorhub-backend/internal/middleware"
	"github.com/proctorhub/proctorhub-backend/internal/response"
	"github.com/proctorhub/proctorhub-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth   *handler.AuthHandler
	Exam   *handler.ExamHandler
	System *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// If AllowedOrigins is set in config, restrict to that list; otherwise
	// allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", handlers.System.Health)

	// Rate limiter for login attempts (30 per minute per IP) and for the
	// answer/violation endpoints clients hit in rapid bursts.
	authLimiter := middleware.NewRateLimiter(30, time.Minute)
	burstLimiter := middleware.NewRateLimiter(120, time.Minute)

	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/login", authLimiter.Middleware(), handlers.Auth.Login)
		auth.POST("/logout", middleware.RequireStudentJWT(authService), handlers.Auth.Logout)
		auth.GET("/me", middleware.RequireStudentJWT(authService), handlers.Auth.Me)
	}

	// Student exam routes: JWT + single-device session, and no caching of
	// exam content anywhere between the engine and the browser.
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
		middleware.NoStore(),
	)
	{
		studentAPI.GET("/assignments", handlers.Exam.ListAssignments)

		studentAPI.POST("/tests/:test_id/start", handlers.Exam.StartSession)
		studentAPI.GET("/tests/:test_id/time", handlers.Exam.GetTime)
		studentAPI.GET("/tests/:test_id/state", handlers.Exam.GetState)
		studentAPI.GET("/tests/:test_id/questions/:position", handlers.Exam.GetQuestion)
		studentAPI.POST("/tests/:test_id/answers", burstLimiter.Middleware(), handlers.Exam.SubmitAnswer)
		studentAPI.POST("/tests/:test_id/violations", burstLimiter.Middleware(), handlers.Exam.ReportViolation)
		studentAPI.POST("/tests/:test_id/submit", handlers.Exam.Submit)

		studentAPI.GET("/results/:test_id", handlers.Exam.GetResult)
	}

	return router
}
