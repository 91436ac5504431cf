package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	inspectionapp "github.com/railinspect/backend/internal/application/inspection"
	"github.com/railinspect/backend/internal/domain/asset"
	"github.com/railinspect/backend/internal/infrastructure/cache"
	"github.com/railinspect/backend/internal/infrastructure/config"
	"github.com/railinspect/backend/internal/infrastructure/dataset"
	"github.com/railinspect/backend/internal/infrastructure/event"
	"github.com/railinspect/backend/internal/infrastructure/geo"
	"github.com/railinspect/backend/internal/infrastructure/logger"
	"github.com/railinspect/backend/internal/infrastructure/persistence"
	"github.com/railinspect/backend/internal/infrastructure/storage"
	"github.com/railinspect/backend/internal/infrastructure/telemetry"
	"github.com/railinspect/backend/internal/interfaces/http/handler"
	"github.com/railinspect/backend/internal/interfaces/http/middleware"
	"github.com/railinspect/backend/internal/interfaces/http/router"
	"github.com/railinspect/backend/internal/interfaces/web"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Version is set at build time with -ldflags "-X main.Version=..."
var Version = "dev"

//	@title			Rail Inspection API
//	@version		1.0
//	@description	Scan railway assets, review their condition and record inspections.

//	@host		localhost:8080
//	@BasePath	/api/v1

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Rail Inspection Service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", Version),
	)

	ctx := context.Background()

	// Tracing and profiling
	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	profiler, err := telemetry.NewProfiler(cfg.Profiling, cfg.App.Name, log)
	if err != nil {
		log.Warn("Continuous profiling unavailable", zap.Error(err))
	} else {
		defer func() {
			if err := profiler.Stop(); err != nil {
				log.Error("Error stopping profiler", zap.Error(err))
			}
		}()
		if cfg.Profiling.SpanProfiles && profiler.IsEnabled() {
			if err := tracerProvider.EnableSpanProfiles(); err != nil {
				log.Warn("Failed to link spans to profiles", zap.Error(err))
			}
		}
	}

	metrics := telemetry.NewMetrics()

	// Create GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Database.LogLevel),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
	)

	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.NewDBTracingPlugin(cfg.Telemetry, cfg.Database.Driver, log).Register(db.DB); err != nil {
		log.Warn("Failed to register database tracing", zap.Error(err))
	}
	if err := db.Migrate(ctx); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	// Initialize repositories
	productRepo := persistence.NewGormProductRepository(db.DB)
	attachmentRepo := persistence.NewGormAttachmentRepository(db.DB)

	if cfg.Dataset.SeedOnStart {
		if err := seedProducts(ctx, productRepo, cfg.Dataset, log); err != nil {
			log.Fatal("Failed to seed product dataset", zap.Error(err))
		}
	}

	// Session state
	storeFactory := cache.NewSessionStoreFactory(cfg.Session, cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.IsProduction()),
	)
	sessionStore, err := storeFactory.CreateStore()
	if err != nil {
		log.Fatal("Failed to create session store", zap.Error(err))
	}
	defer func() {
		if err := sessionStore.Close(); err != nil {
			log.Error("Error closing session store", zap.Error(err))
		}
	}()
	submissionGuard, err := storeFactory.CreateIdempotencyStore()
	if err != nil {
		log.Fatal("Failed to create submission guard", zap.Error(err))
	}
	defer func() {
		if err := submissionGuard.Close(); err != nil {
			log.Error("Error closing submission guard", zap.Error(err))
		}
	}()

	objectStorage, err := storage.NewObjectStorage(ctx, &cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to initialize object storage", zap.Error(err))
	}

	// Event bus
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewAuditLogHandler(log))
	if cfg.Redis.EventChannel != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			_ = client.Close()
		}()
		eventBus.Subscribe(event.NewRedisEventForwarder(client, cfg.Redis.EventChannel, event.NewAssetEventSerializer(), log))
		log.Info("Forwarding domain events to Redis", zap.String("channel", cfg.Redis.EventChannel))
	}
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Initialize application services
	lookupService := inspectionapp.NewLookupService(productRepo)
	sessionService := inspectionapp.NewSessionService(sessionStore, lookupService,
		inspectionapp.WithSessionMetrics(metrics),
		inspectionapp.WithFrameScannerFactory(inspectionapp.NewQRFrameScannerFactory(log)),
	)
	conditionService := inspectionapp.NewConditionService(sessionService, productRepo,
		inspectionapp.ConditionServiceConfig{
			SubmitDelay:      cfg.Inspection.SubmitDelay,
			PersistUpdates:   cfg.Inspection.PersistUpdates,
			DefaultInspector: cfg.Inspection.DefaultInspector,
			SubmissionTTL:    cfg.Inspection.SubmissionTTL,
		},
		inspectionapp.WithConditionMetrics(metrics),
		inspectionapp.WithEventPublisher(eventBus),
		inspectionapp.WithIdempotencyStore(submissionGuard),
	)
	historyService := inspectionapp.NewHistoryService(lookupService)
	imageService := inspectionapp.NewImageService(sessionService, attachmentRepo, objectStorage,
		inspectionapp.ImageServiceConfig{
			MaxImageSize:      cfg.Storage.MaxImageSize,
			DownloadURLExpiry: cfg.Storage.PresignExpiration,
		},
		inspectionapp.WithImageMetrics(metrics),
		inspectionapp.WithImageEventPublisher(eventBus),
	)

	// Initialize handlers
	maxImageSize := imageService.MaxImageSize()
	locations := handler.NewLocationRecorder(sessionService, geo.NewFallbackLocator(cfg.Geo))
	handlers := router.Handlers{
		Pages:      handler.NewPageHandler(sessionService, conditionService, historyService, locations, maxImageSize),
		Sessions:   handler.NewSessionHandler(sessionService, locations, maxImageSize),
		Products:   handler.NewProductHandler(lookupService, historyService, imageService),
		Conditions: handler.NewConditionHandler(conditionService),
		System:     handler.NewSystemHandler(cfg.App.Name, Version, db),
	}

	// Set Gin mode based on environment
	if cfg.IsProduction() {
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
	engine.SetHTMLTemplate(web.MustTemplates())

	// Apply middleware stack in order:
	// 1. Tracing - Start the request span
	// 2. RequestID - Generate/propagate request ID
	// 3. Recovery - Catch panics
	// 4. Logger - Log requests
	// 5. Session - Resolve the inspector session
	// 6. Span attributes, profiling labels and metrics
	// 7. Security and CORS headers
	// 8. RateLimit - Apply rate limiting (if enabled)
	tracingCfg := middleware.DefaultTracingConfig()
	tracingCfg.Enabled = cfg.Telemetry.Enabled
	tracingCfg.ServiceName = cfg.Telemetry.ServiceName
	engine.Use(middleware.TracingWithConfig(tracingCfg))
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Session(middleware.NewCookieStore(middleware.CookieConfig{
		Name:   cfg.Session.CookieName,
		Secret: cfg.Session.Secret,
		MaxAge: cfg.Session.TTL,
		Secure: cfg.Session.Secure,
	}), cfg.Session.CookieName))
	if cfg.Telemetry.Enabled {
		engine.Use(middleware.TracingAttributeInjector())
		engine.Use(middleware.SpanErrorMarker())
	}
	profilingCfg := middleware.DefaultProfilingConfig()
	profilingCfg.Enabled = cfg.Profiling.Enabled
	engine.Use(middleware.ProfilingWithConfig(profilingCfg))
	metricsCfg := middleware.DefaultHTTPMetricsConfig(metrics)
	metricsCfg.Enabled = cfg.Metrics.Enabled
	metricsCfg.SkipPaths = append(metricsCfg.SkipPaths, cfg.Metrics.Path)
	engine.Use(middleware.HTTPMetrics(metricsCfg))
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	var rateLimiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer rateLimiter.Stop()
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Operational endpoints (outside API versioning)
	engine.GET("/health", handlers.System.Health)
	if cfg.Metrics.Enabled {
		engine.GET(cfg.Metrics.Path, gin.WrapH(metrics.Handler()))
	}
	engine.StaticFS("/static", web.StaticFS())

	// Uploads may carry a batch of camera frames
	uploadLimit := middleware.UploadBodyLimit(maxImageSize, handler.MaxScanFrames)
	r := router.Inspection(router.NewRouter(engine, router.WithAPIVersion("v1")), handlers, router.BodyLimits{
		Default: middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		Upload:  middleware.BodyLimit(uploadLimit),
	})
	r.Setup()
	for _, route := range r.Routes() {
		log.Debug("Route registered",
			zap.String("method", route.Method),
			zap.String("path", route.Path),
			zap.String("group", route.Group),
		)
	}

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
		return
	}

	log.Info("Server exited gracefully")
}

// seedProducts loads the configured dataset, or the bundled one, and stores
// the products that are not in the database yet
func seedProducts(ctx context.Context, repo asset.ProductRepository, cfg config.DatasetConfig, log *zap.Logger) error {
	var (
		products []*asset.Product
		err      error
	)
	if cfg.Path != "" {
		products, err = dataset.LoadFile(cfg.Path)
	} else {
		products, err = dataset.Parse(dataset.Bundled())
	}
	if err != nil {
		return err
	}

	result, err := dataset.Seed(ctx, repo, products, log)
	if err != nil {
		return err
	}
	log.Info("Product dataset seeded",
		zap.Int("inserted", result.Inserted),
		zap.Int("skipped", result.Skipped),
	)
	return nil
}
