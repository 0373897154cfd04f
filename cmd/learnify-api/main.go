package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/learnify-api/api/swagger"
	"github.com/noah-isme/learnify-api/internal/handler"
	"github.com/noah-isme/learnify-api/internal/middleware"
	"github.com/noah-isme/learnify-api/internal/models"
	"github.com/noah-isme/learnify-api/internal/repository"
	"github.com/noah-isme/learnify-api/internal/service"
	"github.com/noah-isme/learnify-api/pkg/cache"
	"github.com/noah-isme/learnify-api/pkg/config"
	"github.com/noah-isme/learnify-api/pkg/database"
	"github.com/noah-isme/learnify-api/pkg/jobs"
	"github.com/noah-isme/learnify-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/learnify-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/learnify-api/pkg/middleware/requestid"
)

// @title Learnify API
// @version 1.0.0
// @description Course viewer: lessons, enrollment, progress and rosters
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()
	readiness := map[string]handler.ReadinessCheck{"database": db.PingContext}

	var cacheRepo service.CacheRepository
	if cfg.Courses.CacheEnabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, course cache disabled", zap.Error(err))
		} else {
			defer client.Close()
			redisRepo := repository.NewCacheRepository(client, logr)
			cacheRepo = redisRepo
			readiness["redis"] = redisRepo.Ping
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Courses.CacheTTL, logr, cacheRepo != nil)

	validate := validator.New()
	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	completionRepo := repository.NewCompletionRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	gateway := service.NewCourseGateway(courseRepo, lessonRepo, enrollmentRepo, completionRepo, authSvc, cacheSvc, logr)
	courseViewSvc := service.NewCourseViewService(gateway, authSvc, metricsSvc, logr, cfg.Courses.SessionIdleTTL, cfg.Courses.ContentPreviewChars)
	rosterSvc := service.NewRosterService(enrollmentRepo, gateway, authSvc, validate, logr, cfg.Roster.ExportEnabled)

	var warmer *service.CacheWarmer
	if cacheSvc.Enabled() {
		warmer = service.NewCacheWarmer(gateway, logr)
		queue := jobs.NewQueue("cache-warm", warmer.Handle, jobs.QueueConfig{
			Workers: cfg.Courses.WarmWorkers,
			Logger:  logr,
		})
		warmer.UseQueue(queue)
		queue.Start(ctx)
		defer queue.Stop()
	}

	authHandler := handler.NewAuthHandler(authSvc)
	courseHandler := handler.NewCourseHandler(courseViewSvc)
	rosterHandler := handler.NewRosterHandler(rosterSvc)
	cacheHandler := handler.NewCacheHandler(cacheSvc, nil)
	if warmer != nil {
		cacheHandler = handler.NewCacheHandler(cacheSvc, warmer)
	}
	metricsHandler := handler.NewMetricsHandler(metricsSvc, readiness)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc, "/metrics", "/health"))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

	courses := api.Group("/courses")
	courses.GET("/:id/view", middleware.OptionalJWT(authSvc), courseHandler.View)
	courses.POST("/:id/enroll", middleware.JWT(authSvc), courseHandler.Enroll)
	courses.POST("/:id/lessons/:lessonId/complete", middleware.JWT(authSvc), courseHandler.Complete)
	courses.GET("/:id/roster", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleInstructor), rosterHandler.List)
	courses.GET("/:id/roster/export", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleInstructor), rosterHandler.Export)

	admin := api.Group("/admin", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
	admin.DELETE("/cache/courses/:id", cacheHandler.InvalidateCourse)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
