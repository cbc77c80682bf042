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

	_ "github.com/medhaven/clinic-scheduling-api/api/swagger"
	"github.com/medhaven/clinic-scheduling-api/internal/handler"
	"github.com/medhaven/clinic-scheduling-api/internal/middleware"
	"github.com/medhaven/clinic-scheduling-api/internal/repository"
	"github.com/medhaven/clinic-scheduling-api/internal/service"
	"github.com/medhaven/clinic-scheduling-api/pkg/cache"
	"github.com/medhaven/clinic-scheduling-api/pkg/config"
	"github.com/medhaven/clinic-scheduling-api/pkg/database"
	"github.com/medhaven/clinic-scheduling-api/pkg/jobs"
	"github.com/medhaven/clinic-scheduling-api/pkg/logger"
	corsmiddleware "github.com/medhaven/clinic-scheduling-api/pkg/middleware/cors"
	reqidmiddleware "github.com/medhaven/clinic-scheduling-api/pkg/middleware/requestid"
)

// @title Clinic Scheduling API
// @version 1.0.0
// @description Appointment slot availability, tentative holds and booking commits
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()

	scheduleRepo := repository.NewScheduleRepository(db)
	slotRepo := repository.NewSlotRepository(db)
	holdRepo := repository.NewHoldRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(cfg.JWT)
	generatorSvc := service.NewSlotGeneratorService(scheduleRepo, slotRepo, metricsSvc, logr)

	regenQueue := jobs.NewQueue("slot-regeneration", generatorSvc.HandleRegenJob, jobs.QueueConfig{
		Workers:    cfg.Slots.RegenWorkers,
		MaxRetries: cfg.Slots.RegenRetries,
		Logger:     logr,
	})
	regenQueue.Start(ctx)
	defer regenQueue.Stop()

	scheduleSvc := service.NewScheduleService(scheduleRepo, generatorSvc, regenQueue, slotRepo, cacheRepo, cfg.Slots, validate, logr)
	holdSvc := service.NewHoldService(holdRepo, slotRepo, cacheRepo, metricsSvc, cfg.Holds, validate, logr)
	availabilitySvc := service.NewAvailabilityService(slotRepo, holdRepo, cacheRepo, cfg.Availability.CacheTTL, logr)
	bookingSvc := service.NewBookingService(appointmentRepo, cacheRepo, metricsSvc, validate, logr)
	exportSvc := service.NewExportService(slotRepo, scheduleRepo, nil, nil, logr)

	go holdSvc.RunSweeper(ctx, cfg.Holds.SweepInterval)

	scheduleHandler := handler.NewScheduleHandler(scheduleSvc, exportSvc)
	slotHandler := handler.NewSlotHandler(availabilitySvc, holdSvc, scheduleSvc)
	commandHandler := handler.NewCommandHandler(bookingSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

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
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))
	api.Use(middleware.Tenant())
	api.Use(middleware.WithResponseMeta())

	handler.Routes{
		Schedules:      scheduleHandler,
		Slots:          slotHandler,
		Commands:       commandHandler,
		ExportsEnabled: cfg.Exports.Enabled,
	}.Mount(api)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("forced shutdown", "error", err)
	}
}
