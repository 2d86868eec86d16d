package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/academy-attendance/api/swagger"
	"github.com/noah-isme/academy-attendance/internal/handler"
	internalmiddleware "github.com/noah-isme/academy-attendance/internal/middleware"
	"github.com/noah-isme/academy-attendance/internal/repository"
	"github.com/noah-isme/academy-attendance/internal/service"
	"github.com/noah-isme/academy-attendance/pkg/cache"
	"github.com/noah-isme/academy-attendance/pkg/config"
	"github.com/noah-isme/academy-attendance/pkg/database"
	"github.com/noah-isme/academy-attendance/pkg/export"
	"github.com/noah-isme/academy-attendance/pkg/jobs"
	"github.com/noah-isme/academy-attendance/pkg/logger"
	corsmiddleware "github.com/noah-isme/academy-attendance/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/academy-attendance/pkg/middleware/requestid"
	"github.com/noah-isme/academy-attendance/pkg/storage"
)

// @title Academy Attendance API
// @version 1.0.0
// @description Attendance state machine, absence sweep and business-day calendar
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.RunMigrations {
		if err := database.RunMigrations(db.DB, logr); err != nil {
			logr.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}
	var cacheRepo service.CacheRepository
	readiness := map[string]handler.ReadinessCheck{
		"database": func(ctx context.Context) error { return db.PingContext(ctx) },
	}
	if redisClient != nil {
		redisRepo := repository.NewCacheRepository(redisClient)
		defer redisRepo.Close() //nolint:errcheck
		cacheRepo = redisRepo
		readiness["redis"] = redisRepo.Ping
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Holidays.CacheTTL, logr, redisClient != nil)

	attendanceRepo := repository.NewAttendanceRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	holidayRepo := repository.NewHolidayRepository(db)
	adjustmentRepo := repository.NewEnrollmentAdjustmentRepository(db)

	validate := service.NewValidator()
	loc := cfg.Attendance.Location()
	machine := service.NewAttendanceMachine(cfg.Attendance.LateGrace, cfg.Attendance.AbsentGrace)

	adjustmentSvc := service.NewEnrollmentAdjustmentService(adjustmentRepo, metricsSvc, jobs.QueueConfig{
		Workers:    cfg.Adjustments.Workers,
		BufferSize: cfg.Adjustments.BufferSize,
		MaxRetries: cfg.Adjustments.MaxRetries,
		RetryDelay: cfg.Adjustments.RetryDelay,
	}, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, scheduleRepo, adjustmentSvc, machine, loc, metricsSvc, validate, logr)
	sweepSvc := service.NewAbsenceSweepService(attendanceRepo, scheduleRepo, adjustmentSvc, machine, loc, metricsSvc, logr)
	holidaySvc := service.NewHolidayService(holidayRepo, cacheSvc, metricsSvc, validate, service.HolidayServiceConfig{
		ExcludeWeekends: cfg.Holidays.ExcludeWeekends,
		CacheTTL:        cfg.Holidays.CacheTTL,
		ICSURL:          cfg.Holidays.ICSURL,
		SyncInterval:    cfg.Holidays.SyncInterval,
	}, logr)
	exportSvc := service.NewExportService(attendanceRepo, export.NewCSVExporter(), export.NewPDFExporter(), loc, logr)
	if cfg.Exports.SigningSecret != "" {
		sheetStore, err := storage.NewLocalStore(cfg.Exports.Dir)
		if err != nil {
			logr.Fatal("failed to prepare export directory", zap.Error(err))
		}
		exportSvc.WithPublishing(sheetStore, storage.NewLinkSigner(cfg.Exports.SigningSecret, cfg.Exports.LinkTTL))
	} else {
		logr.Info("export signing secret not set, sheet publishing disabled")
	}

	// Adjustment delivery outlives the signal context; Stop drains it after the server shuts down.
	adjustmentSvc.Start(context.Background())
	if cfg.Holidays.SeedDefaults {
		if _, err := holidaySvc.SeedDefaults(ctx, time.Now().In(loc).Year()); err != nil {
			logr.Warn("failed to seed default holidays", zap.Error(err))
		}
	}
	holidaySvc.StartSync(ctx)
	if cfg.Attendance.SweepEnabled {
		sweepSvc.StartSweep(ctx, cfg.Attendance.SweepInterval)
	}
	exportSvc.StartCleanup(ctx, cfg.Exports.Retention, time.Hour)

	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc, sweepSvc, exportSvc).
		WithDownloadBase(cfg.APIPrefix + "/exports")
	holidayHandler := handler.NewHolidayHandler(holidaySvc)
	calendarHandler := handler.NewCalendarHandler(holidaySvc)
	enrollmentHandler := handler.NewEnrollmentHandler(adjustmentSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, readiness)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(internalmiddleware.Metrics(metricsSvc, "/health", "/ready", "/metrics"))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		attendance := api.Group("/attendance")
		attendance.GET("", attendanceHandler.List)
		attendance.POST("/bookings", attendanceHandler.Book)
		attendance.POST("/check-in", attendanceHandler.CheckIn)
		attendance.GET("/export", attendanceHandler.Export)
		attendance.POST("/export/links", attendanceHandler.PublishExport)
		attendance.POST("/sweep", attendanceHandler.Sweep)
		attendance.GET("/:id", attendanceHandler.Get)
		attendance.POST("/:id/check-out", attendanceHandler.CheckOut)
		attendance.PATCH("/:id/status", attendanceHandler.SetStatus)
		attendance.PATCH("/:id/class-completed", attendanceHandler.SetClassCompleted)

		holidays := api.Group("/holidays")
		holidays.GET("", holidayHandler.List)
		holidays.POST("", holidayHandler.Create)
		holidays.POST("/import", holidayHandler.Import)
		holidays.POST("/seed", holidayHandler.Seed)
		holidays.DELETE("/:id", holidayHandler.Delete)

		calendar := api.Group("/calendar")
		calendar.GET("/is-holiday", calendarHandler.IsHoliday)
		calendar.GET("/business-days", calendarHandler.BusinessDays)
		calendar.GET("/add-business-days", calendarHandler.AddBusinessDays)
		calendar.GET("/enrollment-end", calendarHandler.EnrollmentEnd)

		api.GET("/exports/:token", attendanceHandler.Download)
		api.GET("/students/:id/adjustments", enrollmentHandler.Adjustments)
		api.GET("/metrics/summary", metricsHandler.Summary)
	}

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
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
	adjustmentSvc.Stop(shutdownCtx)
}
