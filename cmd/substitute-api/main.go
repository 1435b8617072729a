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
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/substitute-finder-api/api/swagger"
	"github.com/noah-isme/substitute-finder-api/internal/command"
	"github.com/noah-isme/substitute-finder-api/internal/gateway"
	"github.com/noah-isme/substitute-finder-api/internal/handler"
	internalmiddleware "github.com/noah-isme/substitute-finder-api/internal/middleware"
	"github.com/noah-isme/substitute-finder-api/internal/models"
	"github.com/noah-isme/substitute-finder-api/internal/repository"
	"github.com/noah-isme/substitute-finder-api/internal/service"
	"github.com/noah-isme/substitute-finder-api/internal/settings"
	"github.com/noah-isme/substitute-finder-api/pkg/cache"
	"github.com/noah-isme/substitute-finder-api/pkg/config"
	"github.com/noah-isme/substitute-finder-api/pkg/database"
	appErrors "github.com/noah-isme/substitute-finder-api/pkg/errors"
	"github.com/noah-isme/substitute-finder-api/pkg/export"
	"github.com/noah-isme/substitute-finder-api/pkg/jobs"
	"github.com/noah-isme/substitute-finder-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/substitute-finder-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/substitute-finder-api/pkg/middleware/requestid"
	"github.com/noah-isme/substitute-finder-api/pkg/storage"
)

// @title Substitute Finder API
// @version 1.0.0
// @description Admin backend for substitute teacher requests, analytics and report exports
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

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("connect postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, analytics cache disabled", zap.Error(err))
	} else {
		defer redisClient.Close() //nolint:errcheck
	}

	validate := validator.New()
	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metrics, cfg.Analytics.CacheTTL, logr, redisClient != nil)

	orgRepo := repository.NewOrganizationRepository(db)
	classRepo := repository.NewClassRepository(db)
	userRepo := repository.NewUserRepository(db)
	requestRepo := repository.NewSubstituteRequestRepository(db)
	responseRepo := repository.NewSubstituteResponseRepository(db)

	inbox := service.NewNotificationCenter(cfg.Notify.InboxCapacity, logr)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	registry := command.NewRegistry(logr)
	command.Bind(registry, command.Services{
		Organizations: service.NewOrganizationService(orgRepo, validate, cacheSvc, logr),
		Classes:       service.NewClassService(classRepo, validate, cacheSvc, logr),
		Users:         service.NewUserService(userRepo, validate, cacheSvc, logr),
		Auth:          authSvc,
		Requests:      service.NewSubstituteRequestService(requestRepo, responseRepo, userRepo, validate, cacheSvc, logr),
		Notifications: service.NewNotificationService(repository.NewNotificationLogRepository(db), inbox, validate, logr),
		Seed:          service.NewSeedService(orgRepo, classRepo, userRepo, requestRepo, cacheSvc, logr),
	})
	gw := gateway.New(registry, metrics, logr)

	defaultRange, _ := models.ParseTimeRange(cfg.Analytics.DefaultTimeRange)
	engine := service.NewAnalyticsEngine(service.WithLocation(cfg.Analytics.Location()))
	refresher := service.NewRefresher(gw, metrics, logr).WithTimeout(cfg.Analytics.FetchTimeout)
	analyticsSvc := service.NewAnalyticsService(refresher, engine, cacheSvc, metrics, service.AnalyticsConfig{
		DefaultRange: defaultRange,
		CacheTTL:     cfg.Analytics.CacheTTL,
	}, logr)

	var rendererOpts []export.RendererOption
	if !cfg.Exports.ExcelBOM {
		rendererOpts = append(rendererOpts, export.WithoutExcelBOM())
	}
	exportSvc := service.NewExportService(refresher, engine, export.NewRenderer(rendererOpts...), metrics, logr)

	settingsSvc := settings.NewService(settingsStore(cfg, redisClient, logr), cfg.Settings.Key, settings.Defaults(cfg.Analytics.Timezone), validate, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))
	r.Use(internalmiddleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metrics, pingers(db.PingContext, redisClient))
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	authHandler := handler.NewAuthHandler(gw)
	api.POST("/auth/login", authHandler.Login)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(authSvc))
	secured.GET("/auth/me", authHandler.Me)

	invokeHandler := handler.NewInvokeHandler(gw, handler.DefaultCommandPolicy(), logr)
	secured.POST("/invoke/:command", invokeHandler.Invoke)

	analyticsHandler := handler.NewAnalyticsHandler(nil)
	if cfg.Analytics.Enabled {
		analyticsHandler = handler.NewAnalyticsHandler(analyticsSvc)
	}
	reporting := secured.Group("")
	reporting.Use(internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleOrgManager))
	reporting.GET("/dashboard", analyticsHandler.Dashboard)
	reporting.GET("/analytics", analyticsHandler.Snapshot)
	reporting.POST("/analytics/refresh", analyticsHandler.Refresh)
	reporting.GET("/analytics/system", analyticsHandler.System)

	var exportQueue *jobs.Queue
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Fatal("init export storage", zap.Error(err))
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		jobRepo := repository.NewExportJobRepository(db)
		jobCfg := service.ExportJobConfig{
			APIPrefix:       cfg.APIPrefix,
			ResultTTL:       cfg.Exports.SignedURLTTL,
			CleanupInterval: cfg.Exports.CleanupInterval,
			MaxRetries:      cfg.Exports.WorkerRetries,
		}
		worker := service.NewExportWorker(jobRepo, exportSvc, store, signer, jobCfg, logr)
		exportQueue = jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			RetryDelay: 2 * time.Second,
			JobTimeout: 5 * time.Minute,
			Logger:     logr,
			OnFinish: func(job jobs.Job, err error, elapsed time.Duration) {
				metrics.ObserveJob("exports", job.Type, err, elapsed)
			},
			Retryable: appErrors.Retryable,
		})
		exportQueue.Start(ctx)

		jobSvc := service.NewExportJobService(jobRepo, exportQueue, store, signer, validate, logr, jobCfg)
		jobSvc.SetInlineRunner(worker)
		jobSvc.RecoverPendingJobs(ctx)
		jobSvc.StartCleanup(ctx)

		exportHandler := handler.NewExportHandler(exportSvc, jobSvc, analyticsSvc, logr)
		reporting.POST("/exports/full-report", exportHandler.FullReport)
		reporting.POST("/exports/jobs", exportHandler.CreateJob)
		reporting.GET("/exports/jobs/:id", exportHandler.JobStatus)
		reporting.GET("/exports/:kind", exportHandler.Download)
		api.GET("/exports/download/:token", exportHandler.DownloadJob)
	}

	settingsHandler := handler.NewSettingsHandler(settingsSvc)
	secured.GET("/settings", settingsHandler.Get)
	admin := secured.Group("")
	admin.Use(internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleOrgManager))
	admin.PUT("/settings", settingsHandler.Update)
	admin.DELETE("/settings", settingsHandler.Reset)

	notificationHandler := handler.NewNotificationHandler(inbox)
	secured.GET("/notifications", notificationHandler.List)
	secured.POST("/notifications/read-all", notificationHandler.MarkAllRead)
	secured.POST("/notifications/:id/read", notificationHandler.MarkRead)
	secured.DELETE("/notifications/:id", notificationHandler.Clear)
	secured.DELETE("/notifications", notificationHandler.ClearAll)

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
		logr.Error("graceful shutdown", zap.Error(err))
	}
	if exportQueue != nil {
		exportQueue.Stop()
	}
}

func settingsStore(cfg *config.Config, client *redis.Client, logr *zap.Logger) settings.KVStore {
	if cfg.Settings.Backend == config.SettingsBackendRedis {
		if client != nil {
			return repository.NewRedisKVStore(client)
		}
		logr.Warn("settings backend redis unavailable, falling back to memory")
	}
	return settings.NewMemoryStore()
}

func pingers(dbPing func(context.Context) error, client *redis.Client) map[string]handler.Pinger {
	deps := map[string]handler.Pinger{"postgres": handler.PingFunc(dbPing)}
	if client != nil {
		deps["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	}
	return deps
}
