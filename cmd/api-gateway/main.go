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

	_ "github.com/tahsinku/tahsinku-api/api/swagger"
	"github.com/tahsinku/tahsinku-api/internal/handler"
	"github.com/tahsinku/tahsinku-api/internal/middleware"
	"github.com/tahsinku/tahsinku-api/internal/repository"
	"github.com/tahsinku/tahsinku-api/internal/service"
	"github.com/tahsinku/tahsinku-api/pkg/cache"
	"github.com/tahsinku/tahsinku-api/pkg/config"
	"github.com/tahsinku/tahsinku-api/pkg/database"
	"github.com/tahsinku/tahsinku-api/pkg/logger"
	corsmiddleware "github.com/tahsinku/tahsinku-api/pkg/middleware/cors"
	reqidmiddleware "github.com/tahsinku/tahsinku-api/pkg/middleware/requestid"
	"github.com/tahsinku/tahsinku-api/pkg/ratelimit"
	"github.com/tahsinku/tahsinku-api/pkg/sheets"
)

// @title TahsinKu API
// @version 1.0.0
// @description Administrative backend for tahsin class operations
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, schedule caching disabled", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()

	// repositories
	adminRepo := repository.NewAdminRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	classRepo := repository.NewClassRepository(db)
	participantRepo := repository.NewParticipantRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	exportRepo := repository.NewExportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()

	// spreadsheet writer is optional: without credentials the export
	// endpoints report a configuration error and auto-export stays off.
	var exportSvc *service.ExportService
	if cfg.Sheets.SpreadsheetID != "" {
		client, cerr := sheets.NewClient(ctx, cfg.Sheets)
		if cerr != nil {
			logr.Warn("sheets client unavailable, exports disabled", zap.Error(cerr))
			exportSvc = service.NewExportService(exportRepo, nil, metricsSvc, logr, "", false)
		} else {
			writer := sheets.NewWriter(client, sheets.NewTabCache(), logr)
			exportSvc = service.NewExportService(exportRepo, writer, metricsSvc, logr, cfg.Sheets.SpreadsheetID, cfg.Export.AutoExport)
			queue := exportSvc.Queue()
			queue.Start(ctx)
			defer queue.Stop()
		}
	} else {
		logr.Info("no spreadsheet configured, exports disabled")
		exportSvc = service.NewExportService(exportRepo, nil, metricsSvc, logr, "", false)
	}

	scheduleSvc := service.NewScheduleService(teacherRepo, classRepo, cacheRepo, metricsSvc, logr, cfg.Schedule.CacheTTL)
	authSvc := service.NewAuthService(adminRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		SetupToken:        cfg.Admin.SetupToken,
	})
	teacherSvc := service.NewTeacherService(teacherRepo, exportSvc, scheduleSvc, validate, logr)
	classSvc := service.NewClassService(classRepo, teacherRepo, scheduleSvc, validate, logr)
	participantSvc := service.NewParticipantService(participantRepo, exportSvc, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, classRepo, exportSvc, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, exportSvc, validate, logr)

	// handlers
	authHandler := handler.NewAuthHandler(authSvc)
	teacherHandler := handler.NewTeacherHandler(teacherSvc)
	classHandler := handler.NewClassHandler(classSvc)
	participantHandler := handler.NewParticipantHandler(participantSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
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
	api.POST("/auth/login", authHandler.Login)
	api.POST("/admin-bootstrap", authHandler.Bootstrap)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))
	{
		protected.GET("/teachers", teacherHandler.List)
		protected.GET("/teachers/:id", teacherHandler.Get)
		protected.POST("/teachers", teacherHandler.Create)
		protected.PUT("/teachers/:id", teacherHandler.Update)
		protected.DELETE("/teachers/:id", teacherHandler.Delete)

		protected.GET("/classes", classHandler.List)
		protected.GET("/classes/:id", classHandler.Get)
		protected.POST("/classes", classHandler.Create)
		protected.PUT("/classes/:id", classHandler.Update)
		protected.DELETE("/classes/:id", classHandler.Delete)

		protected.GET("/participants", participantHandler.List)
		protected.GET("/participants/:id", participantHandler.Get)
		protected.POST("/participants", participantHandler.Create)
		protected.PUT("/participants/:id", participantHandler.Update)
		protected.DELETE("/participants/:id", participantHandler.Delete)

		protected.GET("/enrollments", enrollmentHandler.List)
		protected.POST("/enrollments", enrollmentHandler.Create)
		protected.POST("/enrollments/sync-overdue", enrollmentHandler.SyncOverdue)
		protected.GET("/enrollments/:id", enrollmentHandler.Get)
		protected.DELETE("/enrollments/:id", enrollmentHandler.Delete)
		protected.POST("/enrollments/:id/pay", enrollmentHandler.MarkPaid)
		protected.PUT("/enrollments/:id/cycle-start", enrollmentHandler.SetCycleStart)

		protected.POST("/attendance", attendanceHandler.Record)
		protected.GET("/attendance", attendanceHandler.List)

		protected.GET("/schedules", scheduleHandler.List)

		// Pushes are rate limited; recap downloads are local renders and
		// are not.
		limited := protected.Group("/export")
		limited.Use(middleware.RateLimit(ratelimit.New(nil), cfg.Export.RateLimit, cfg.Export.RateWindow))
		limited.POST("/:domain", exportHandler.Run)
		protected.GET("/export/:domain/download", exportHandler.Recap)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("forced shutdown", zap.Error(err))
	}
	cacheRepo.Close()
}
