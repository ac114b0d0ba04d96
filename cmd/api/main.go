package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/eduquizhq/eduquiz-api/api/swagger"
	"github.com/eduquizhq/eduquiz-api/internal/handler"
	"github.com/eduquizhq/eduquiz-api/internal/middleware"
	"github.com/eduquizhq/eduquiz-api/internal/models"
	"github.com/eduquizhq/eduquiz-api/internal/repository"
	"github.com/eduquizhq/eduquiz-api/internal/service"
	"github.com/eduquizhq/eduquiz-api/pkg/cache"
	"github.com/eduquizhq/eduquiz-api/pkg/config"
	"github.com/eduquizhq/eduquiz-api/pkg/database"
	"github.com/eduquizhq/eduquiz-api/pkg/logger"
	"github.com/eduquizhq/eduquiz-api/pkg/mailer"
	corsmiddleware "github.com/eduquizhq/eduquiz-api/pkg/middleware/cors"
	reqidmiddleware "github.com/eduquizhq/eduquiz-api/pkg/middleware/requestid"
)

// @title EduQuiz API
// @version 1.0.0
// @description Course modules, quizzes and graded attempts
// @BasePath /api
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The quiz cache degrades to direct reads without Redis.
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	moduleRepo := repository.NewModuleRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	var verificationMailer mailer.Mailer = mailer.NopMailer{}
	if cfg.Mail.Enabled {
		verificationMailer = mailer.NewSendgridMailer(cfg.Mail.SendgridKey, cfg.Mail.FromName, cfg.Mail.FromEmail, cfg.ClientURL)
	}

	authService := service.NewAuthService(userRepo, verificationMailer, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})
	moduleService := service.NewModuleService(moduleRepo, validate, logr)
	quizService := service.NewQuizService(quizRepo, moduleRepo, cacheRepo, cfg.Quiz.CacheTTL, validate, logr)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, moduleRepo, validate, logr)
	attemptService := service.NewAttemptService(attemptRepo, quizRepo, enrollmentRepo, validate, logr)
	metricsService := service.NewMetricsService()

	authHandler := handler.NewAuthHandler(authService)
	moduleHandler := handler.NewModuleHandler(moduleService)
	quizHandler := handler.NewQuizHandler(quizService)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentService)
	attemptHandler := handler.NewAttemptHandler(attemptService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.GET("/verify-email/:token", authHandler.VerifyEmail)
		auth.GET("/me", middleware.JWT(authService), authHandler.Me)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(authService))

	modules := protected.Group("/modules")
	{
		modules.GET("", moduleHandler.List)
		modules.GET("/my-modules", middleware.RequireRoles(models.RoleTeacher), moduleHandler.ListMine)
		modules.GET("/:id", moduleHandler.Get)
		modules.POST("", middleware.RequireRoles(models.RoleTeacher), moduleHandler.Create)
		modules.PUT("/:id", middleware.RequireRoles(models.RoleTeacher), moduleHandler.Update)
		modules.DELETE("/:id", middleware.RequireRoles(models.RoleTeacher), moduleHandler.Delete)
	}

	quizzes := protected.Group("/quizzes")
	{
		quizzes.POST("", middleware.RequireRoles(models.RoleTeacher), quizHandler.Create)
		quizzes.GET("/:id", quizHandler.Get)
		quizzes.GET("/module/:moduleId", quizHandler.ListByModule)
		quizzes.PUT("/:id", middleware.RequireRoles(models.RoleTeacher), quizHandler.Update)
		quizzes.DELETE("/:id", middleware.RequireRoles(models.RoleTeacher), quizHandler.Delete)
	}

	enrollments := protected.Group("/enrollments")
	enrollments.Use(middleware.RequireRoles(models.RoleStudent))
	{
		enrollments.POST("", enrollmentHandler.Enroll)
		enrollments.GET("/my-courses", enrollmentHandler.MyCourses)
		enrollments.GET("/check/:moduleId", enrollmentHandler.Check)
		enrollments.DELETE("/:moduleId", enrollmentHandler.Unenroll)
	}

	attempts := protected.Group("/attempts")
	{
		attempts.POST("/start", middleware.RequireRoles(models.RoleStudent), attemptHandler.Start)
		attempts.POST("/:id/submit", middleware.RequireRoles(models.RoleStudent), attemptHandler.Submit)
		attempts.GET("/:id", attemptHandler.Get)
		attempts.GET("/my/quiz/:quizId", middleware.RequireRoles(models.RoleStudent), attemptHandler.ListMineByQuiz)
		attempts.GET("/my/module/:moduleId", middleware.RequireRoles(models.RoleStudent), attemptHandler.ListMineByModule)
		attempts.GET("/results/quiz/:quizId", middleware.RequireRoles(models.RoleTeacher), attemptHandler.ResultsByQuiz)
		attempts.GET("/results/quiz/:quizId/export", middleware.RequireRoles(models.RoleTeacher), attemptHandler.ExportResults)
		attempts.GET("/results/module/:moduleId", middleware.RequireRoles(models.RoleTeacher), attemptHandler.ResultsByModule)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
