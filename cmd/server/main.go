package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appbill "github.com/erp/billhub/internal/application/bill"
	"github.com/erp/billhub/internal/infrastructure/cache"
	"github.com/erp/billhub/internal/infrastructure/config"
	"github.com/erp/billhub/internal/infrastructure/logger"
	"github.com/erp/billhub/internal/infrastructure/persistence"
	"github.com/erp/billhub/internal/infrastructure/printing"
	"github.com/erp/billhub/internal/infrastructure/storage"
	"github.com/erp/billhub/internal/infrastructure/telemetry"
	"github.com/erp/billhub/internal/interfaces/http/handler"
	"github.com/erp/billhub/internal/interfaces/http/middleware"
	"github.com/erp/billhub/internal/interfaces/http/router"

	_ "github.com/erp/billhub/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//	@title			billhub API
//	@version		1.0
//	@description	Bill and bill-item reconciliation: settlement, refunds and PDF statement export.

//	@contact.name	API Support
//	@contact.url	https://github.com/erp/billhub

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	ctx := context.Background()
	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}

	// The OTLP log provider needs a logger of its own before the real one exists
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize log exporter", zap.Error(err))
	}

	log, err := logger.New(logCfg, logProvider.ZapCore(logger.ParseLevel(cfg.Log.Level)))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting billhub",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Telemetry: traces, metrics, continuous profiling
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Profiling.Enabled,
		ServerAddress:   cfg.Profiling.ServerAddress,
		ApplicationName: cfg.Telemetry.ServiceName,
		AuthToken:       cfg.Profiling.AuthToken,
		ProfileTypes:    cfg.Profiling.ProfileTypes,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if cfg.Profiling.SpanProfiles && profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}

	// Create GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
	)

	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithGormLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to create schema", zap.Error(err))
		}
		log.Warn("Schema created by auto-migrate; use cmd/migrate outside development")
	}

	dbSystem := "postgresql"
	if cfg.Database.Driver == "sqlite" {
		dbSystem = "sqlite"
	}
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        dbSystem,
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	dbMetrics, err := telemetry.NewDBMetrics(meterProvider, log)
	if err != nil {
		log.Fatal("Failed to create database metrics", zap.Error(err))
	}
	if err := db.DB.Use(dbMetrics); err != nil {
		log.Fatal("Failed to register database metrics", zap.Error(err))
	}

	billMetrics, err := telemetry.NewBillMetrics(telemetry.BillMetricsConfig{
		Meter:         meterProvider,
		Logger:        log,
		StatsProvider: telemetry.NewGormLedgerStatsProvider(db.DB),
	})
	if err != nil {
		log.Fatal("Failed to create bill metrics", zap.Error(err))
	}
	if meterProvider.IsEnabled() {
		billMetrics.StartPeriodicCollection(ctx, cfg.Telemetry.MetricsInterval)
	}
	defer billMetrics.Stop()

	// Export pipeline: statement template -> chromedp PDF -> object storage
	objectStore := newObjectStore(ctx, cfg, log)

	renderer, err := printing.NewChromedpRenderer(&printing.ChromedpConfig{
		DefaultTimeout: cfg.Export.RenderTimeout,
		RemoteURL:      cfg.Export.ChromeRemoteURL,
		ExecPath:       cfg.Export.ChromePath,
		NoSandbox:      cfg.Export.NoSandbox,
		Logger:         log,
	})
	if err != nil {
		log.Fatal("Failed to create PDF renderer", zap.Error(err))
	}
	defer func() {
		if err := renderer.Close(); err != nil {
			log.Error("Error closing PDF renderer", zap.Error(err))
		}
	}()

	zone, _ := time.LoadLocation(cfg.Export.Timezone)
	statement, err := printing.NewStatementTemplate(cfg.Export.Locale, zone)
	if err != nil {
		log.Fatal("Failed to build statement template", zap.Error(err))
	}

	exporter := printing.NewBillExporter(renderer, objectStore,
		printing.WithKeyPrefix(cfg.Export.KeyPrefix),
		printing.WithURLExpiration(cfg.Storage.PresignExpiration),
		printing.WithRenderTimeout(cfg.Export.RenderTimeout),
		printing.WithStatementTemplate(statement),
		printing.WithExporterLogger(log),
	)

	// Application services
	billService := appbill.NewBillService(
		persistence.NewGormBillTransactionScope(db.DB, cfg.Billing.LockTimeout),
		appbill.WithCrossBillPolicy(appbill.CrossBillPolicy(cfg.Billing.CrossBillPolicy)),
		appbill.WithOwnerDirectory(persistence.NewGormOwnerDirectory(db.DB)),
		appbill.WithExporter(exporter),
		appbill.WithRecorder(billMetrics),
		appbill.WithLogger(log),
	)

	// Idempotency store: Redis when reachable, in-memory otherwise
	var mutating []gin.HandlerFunc
	if cfg.Billing.IdempotencyEnabled {
		store, err := cache.NewIdempotencyStoreFactory(cfg.Redis,
			cache.WithLogger(log),
			cache.WithInMemoryFallback(cfg.App.Env != "production"),
		).CreateStore(ctx)
		if err != nil {
			log.Fatal("Failed to create idempotency store", zap.Error(err))
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Error("Error closing idempotency store", zap.Error(err))
			}
		}()
		mutating = append(mutating, middleware.Idempotency(middleware.IdempotencyConfig{
			Store:  store,
			TTL:    cfg.Billing.IdempotencyTTL,
			Logger: log,
		}))
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Logger - Log requests
	// 3. Recovery - Catch panics
	// 4. Tracing + SpanAttributes - Server span and its bill attributes
	// 5. HTTPMetrics - Request counters and latency
	// 6. Profiling - Pyroscope route labels
	// 7. CORS - Handle cross-origin requests
	// 8. BodyLimit - Limit request body size
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanAttributes())
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: meterProvider,
		Enabled:       cfg.Telemetry.MetricsEnabled,
		Logger:        log,
	}))
	engine.Use(middleware.Profiling(middleware.ProfilingConfig{
		Enabled:          cfg.Profiling.Enabled,
		SkipPathPrefixes: middleware.DefaultProfilingConfig().SkipPathPrefixes,
	}))

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Health check endpoint (outside API versioning)
	systemHandler := handler.NewSystemHandler(cfg.App.Name, telemetry.ServiceVersion, db)
	engine.GET("/health", systemHandler.Health)

	// Swagger documentation endpoint
	if cfg.Swagger.Enabled {
		engine.GET("/swagger/*any",
			middleware.SwaggerProtection(middleware.SwaggerConfig{
				Enabled:    true,
				AllowedIPs: cfg.Swagger.AllowedIPs,
			}),
			ginSwagger.WrapHandler(swaggerFiles.Handler),
		)
	}

	r := router.NewRouter(engine,
		router.WithAPIVersion("v1"),
		router.WithAPIMiddleware(middleware.Secure()),
	)

	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)

	r.Register(handler.BillRoutes(handler.NewBillHandler(billService), mutating...)).
		Register(systemRoutes)
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// Flush telemetry after the last request has finished
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if err := logProvider.Shutdown(shutdownCtx); err != nil {
		bootLog.Error("Error shutting down log provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// newObjectStore returns the S3 store when storage is enabled, and an
// in-memory stub otherwise.
func newObjectStore(ctx context.Context, cfg *config.Config, log *zap.Logger) storage.ObjectStore {
	if !cfg.Storage.Enabled {
		log.Warn("Object storage disabled, exports are kept in memory",
			zap.String("public_base_url", cfg.Storage.PublicBaseURL),
		)
		return storage.NewStubObjectStorage(cfg.Storage.PublicBaseURL)
	}

	s3Store, err := storage.NewS3ObjectStorage(&cfg.Storage,
		storage.WithLogger(log),
		storage.WithPresignExpiration(cfg.Storage.PresignExpiration),
	)
	if err != nil {
		log.Fatal("Failed to create object storage", zap.Error(err))
	}
	if err := s3Store.EnsureBucket(ctx); err != nil {
		log.Fatal("Failed to prepare export bucket", zap.Error(err))
	}
	log.Info("Object storage ready", zap.String("bucket", s3Store.Bucket()))
	return s3Store
}
