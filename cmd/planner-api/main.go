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
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/course-planner-api/api/swagger"
	"github.com/noah-isme/course-planner-api/internal/handler"
	"github.com/noah-isme/course-planner-api/internal/middleware"
	"github.com/noah-isme/course-planner-api/internal/models"
	"github.com/noah-isme/course-planner-api/internal/repository"
	"github.com/noah-isme/course-planner-api/internal/service"
	"github.com/noah-isme/course-planner-api/pkg/cache"
	"github.com/noah-isme/course-planner-api/pkg/config"
	"github.com/noah-isme/course-planner-api/pkg/database"
	"github.com/noah-isme/course-planner-api/pkg/jobs"
	"github.com/noah-isme/course-planner-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/course-planner-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/course-planner-api/pkg/middleware/requestid"
	"github.com/noah-isme/course-planner-api/pkg/storage"
)

// @title Course Planner API
// @version 1.0.0
// @description Course catalog browsing, conflict-free schedule generation, timetable exports and a mocked registration cart.
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

	source, closeSource, err := newCatalogSource(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to open catalog source", zap.String("source", cfg.Catalog.Source), zap.Error(err))
	}
	defer closeSource()

	validate := validator.New()
	metrics := service.NewMetricsService()

	var redisClient *redis.Client
	if cfg.Scheduler.CacheEnabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, generation cache disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close() //nolint:errcheck
		}
	}
	cacheSvc := service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metrics, cfg.Scheduler.CacheTTL, logr, redisClient != nil)

	catalog := service.NewCatalogService(source, cfg.Catalog.TermID, validate, logr)
	catalog.SetCacheInvalidator(cacheSvc)
	if _, err := catalog.Load(ctx); err != nil {
		logr.Fatal("failed to load catalog", zap.Error(err))
	}
	planner := service.NewPlannerService(catalog, validate, logr)
	generator := service.NewScheduleGeneratorService(catalog, planner, cacheSvc, metrics, validate, logr, service.ScheduleGeneratorConfig{
		MaxResults:         cfg.Scheduler.MaxResults,
		MaxNodes:           cfg.Scheduler.MaxNodes,
		Timeout:            cfg.Scheduler.Timeout,
		EnforcePreferences: cfg.Scheduler.EnforcePreferences,
		CacheTTL:           cfg.Scheduler.CacheTTL,
	})
	cart := service.NewCartService(planner, catalog, validate, logr)

	store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.String("dir", cfg.Exports.StorageDir), zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exporter := service.NewExportService(catalog, store, signer, service.ExportConfig{
		APIPrefix:     cfg.APIPrefix,
		ResultTTL:     cfg.Exports.SignedURLTTL,
		CalendarWeeks: cfg.Exports.CalendarWeeks,
	}, logr)
	exportRepo := repository.NewExportJobRepository()
	worker := service.NewExportWorker(exportRepo, exporter, metrics, cfg.Exports.WorkerRetries, logr)
	queue := jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		RetryDelay: 2 * time.Second,
		Logger:     logr,
	})
	queue.Start(ctx)
	defer queue.Stop()
	exportJobs := service.NewExportJobService(exportRepo, planner, queue, exporter, validate, logr, service.ExportJobConfig{
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
	})
	exportJobs.StartCleanup(ctx)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, "/metrics", "/health", "/ready"))
	r.Use(middleware.WithResponseMeta())

	registerRoutes(r, cfg.APIPrefix, handlers{
		catalog:   handler.NewCatalogHandler(catalog),
		planner:   handler.NewPlannerHandler(planner),
		generator: handler.NewScheduleGeneratorHandler(generator),
		cart:      handler.NewCartHandler(cart),
		exports:   handler.NewExportHandler(exportJobs),
		metrics:   handler.NewMetricsHandler(metrics, catalog),
	})
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "catalog", cfg.Catalog.Source)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}

type catalogSource interface {
	LoadCourses(ctx context.Context, termID string) ([]models.CourseRecord, error)
	Ping(ctx context.Context) error
}

func newCatalogSource(ctx context.Context, cfg *config.Config, logr *zap.Logger) (catalogSource, func(), error) {
	switch cfg.Catalog.Source {
	case config.CatalogSourcePostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		logr.Info("catalog served from postgres", zap.String("db", cfg.Database.Name))
		return repository.NewCatalogRepository(db), func() { _ = db.Close() }, nil
	case config.CatalogSourceFile, "":
		logr.Info("catalog served from file", zap.String("path", cfg.Catalog.File))
		return repository.NewCatalogFileRepository(cfg.Catalog.File), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown catalog source %q", cfg.Catalog.Source)
	}
}
