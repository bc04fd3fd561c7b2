package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campusworks/gradebook-api/api/swagger"
	"github.com/campusworks/gradebook-api/internal/handler"
	"github.com/campusworks/gradebook-api/internal/middleware"
	"github.com/campusworks/gradebook-api/internal/models"
	"github.com/campusworks/gradebook-api/internal/repository"
	"github.com/campusworks/gradebook-api/internal/service"
	"github.com/campusworks/gradebook-api/pkg/cache"
	"github.com/campusworks/gradebook-api/pkg/config"
	"github.com/campusworks/gradebook-api/pkg/database"
	"github.com/campusworks/gradebook-api/pkg/logger"
	corsmiddleware "github.com/campusworks/gradebook-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campusworks/gradebook-api/pkg/middleware/requestid"
)

// @title Gradebook API
// @version 1.0.0
// @description Student grading service: users, courses and an append-only grade ledger
// @BasePath /api/v1
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
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	var cacheRepo *repository.CacheRepository
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		cacheRepo = repository.NewCacheRepository(client, logr)
		defer cacheRepo.Close() //nolint:errcheck
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	gradeRepo := repository.NewGradeRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	var courseSvc *service.CourseService
	if cacheRepo != nil {
		courseSvc = service.NewCourseService(courseRepo, userRepo, gradeRepo, cacheRepo, cfg.Cache.TTL, metricsSvc, validate, logr)
	} else {
		courseSvc = service.NewCourseService(courseRepo, userRepo, gradeRepo, nil, cfg.Cache.TTL, metricsSvc, validate, logr)
	}
	gradeSvc := service.NewGradeService(gradeRepo, courseRepo, userRepo, cfg.Grading.RequireEnrollment, metricsSvc, validate, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	gradeHandler := handler.NewGradeHandler(gradeSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	users := api.Group("/users", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
	{
		users.GET("", userHandler.List)
		users.POST("", userHandler.Create)
		users.GET("/:id", userHandler.Get)
		users.PUT("/:id", userHandler.Update)
		users.DELETE("/:id", userHandler.Delete)
	}

	courses := api.Group("/courses", middleware.JWT(authSvc))
	{
		courses.GET("", courseHandler.List)
		courses.GET("/:id", courseHandler.Get)
		courses.POST("", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), courseHandler.Create)
		courses.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), courseHandler.Update)
		courses.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), courseHandler.Delete)
		courses.POST("/:id/enroll", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), courseHandler.Enroll)
	}

	grades := api.Group("/grades", middleware.JWT(authSvc))
	{
		grades.POST("", middleware.RequireRoles(models.RoleTeacher), gradeHandler.Add)
		grades.GET("/student/:studentId", gradeHandler.StudentGrades)
		grades.GET("/course/:courseId", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), gradeHandler.CourseGrades)
		grades.GET("/course/:courseId/export", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), gradeHandler.ExportCourseGrades)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
