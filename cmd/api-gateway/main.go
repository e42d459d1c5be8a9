package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/tvet-reg-api/api/swagger"
	"github.com/noah-isme/tvet-reg-api/internal/handler"
	"github.com/noah-isme/tvet-reg-api/internal/middleware"
	"github.com/noah-isme/tvet-reg-api/internal/models"
	"github.com/noah-isme/tvet-reg-api/internal/repository"
	"github.com/noah-isme/tvet-reg-api/internal/service"
	"github.com/noah-isme/tvet-reg-api/pkg/cache"
	"github.com/noah-isme/tvet-reg-api/pkg/config"
	"github.com/noah-isme/tvet-reg-api/pkg/database"
	"github.com/noah-isme/tvet-reg-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/tvet-reg-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/tvet-reg-api/pkg/middleware/requestid"
	"github.com/noah-isme/tvet-reg-api/pkg/storage"
)

const version = "1.0.0"

// @title TVET Registration API
// @version 1.0.0
// @description Student registration and course-application workflow
// @BasePath /
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	uploads, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare uploads directory", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)

	validate := validator.New()

	// repositories
	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	adviserRepo := repository.NewAdviserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	var cacheRepo *repository.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}

	// services
	metricsService := service.NewMetricsService()
	activityService := service.NewActivityService(activityRepo, logr)
	var cacheService *service.CacheService
	if cacheRepo != nil {
		cacheService = service.NewCacheService(cacheRepo, cfg.Cache.Enabled, cfg.Cache.TTL, logr)
	}
	authService := service.NewAuthService(userRepo, activityService, cfg.JWT, validate, logr)
	studentService := service.NewStudentService(studentRepo, uploads, signer, activityService, validate, logr,
		cfg.Uploads.MaxFileSizeBytes, cfg.Uploads.AllowedMIMEs)
	adviserService := service.NewAdviserService(adviserRepo, activityService, validate, logr)
	courseService := service.NewCourseService(courseRepo, cacheService, activityService, validate, logr)
	applicationService := service.NewApplicationService(applicationRepo, activityService, validate, logr, cfg.Applications.PageSize)
	exportService := service.NewExportService(applicationRepo, studentRepo, logr)

	// handlers
	authHandler := handler.NewAuthHandler(authService)
	studentHandler := handler.NewStudentHandler(studentService)
	adviserHandler := handler.NewAdviserHandler(adviserService)
	courseHandler := handler.NewCourseHandler(courseService)
	applicationHandler := handler.NewApplicationHandler(applicationService, metricsService)
	activityHandler := handler.NewActivityHandler(activityService)
	exportHandler := handler.NewExportHandler(exportService, metricsService)
	systemHandler := handler.NewSystemHandler(db, redisClient, metricsService.Registry(), version)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))
	r.Use(middleware.CaptureClientInfo())

	r.GET("/health", systemHandler.Health)
	r.GET("/ready", systemHandler.Ready)
	r.GET("/metrics", systemHandler.Metrics())
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWTAuth(authService), authHandler.Logout)
		auth.PUT("/password", middleware.JWTAuth(authService), authHandler.ChangePassword)
		auth.GET("/me", middleware.JWTAuth(authService), authHandler.Me)
	}

	// Signed file downloads authenticate via token, not JWT.
	api.GET("/files/:token", studentHandler.DownloadPhoto)

	protected := api.Group("")
	protected.Use(middleware.JWTAuth(authService))

	staff := protected.Group("")
	staff.Use(middleware.RequireRole(models.RoleAdmin, models.RoleStaff))
	{
		staff.GET("/students", studentHandler.List)
		staff.GET("/students/:id", studentHandler.Get)
		staff.POST("/students", studentHandler.Create)
		staff.PUT("/students/:id", studentHandler.Update)
		staff.POST("/students/:id/photo", studentHandler.UploadPhoto)
		staff.GET("/students/:id/photo-url", studentHandler.PhotoURL)

		staff.GET("/advisers", adviserHandler.List)
		staff.GET("/advisers/:id", adviserHandler.Get)

		staff.GET("/courses", courseHandler.List)
		staff.GET("/courses/:id", courseHandler.Get)

		staff.GET("/applications", applicationHandler.List)
		staff.GET("/applications/:id", applicationHandler.Get)
		staff.POST("/applications", applicationHandler.Create)

		staff.GET("/exports/applications", exportHandler.Applications)
		staff.GET("/exports/students", exportHandler.Students)
	}

	admin := protected.Group("")
	admin.Use(middleware.RequireRole(models.RoleAdmin))
	{
		admin.DELETE("/students/:id", studentHandler.Deactivate)

		admin.POST("/advisers", adviserHandler.Create)
		admin.PUT("/advisers/:id", adviserHandler.Update)
		admin.DELETE("/advisers/:id", adviserHandler.Deactivate)

		admin.POST("/courses", courseHandler.Create)
		admin.PUT("/courses/:id", courseHandler.Update)
		admin.DELETE("/courses/:id", courseHandler.Deactivate)

		admin.POST("/applications/:id/review", applicationHandler.Review)

		admin.GET("/activity", activityHandler.List)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
