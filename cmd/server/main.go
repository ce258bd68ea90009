package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appbilling "github.com/geminiambiental/billing/internal/application/billing"
	"github.com/geminiambiental/billing/internal/infrastructure/config"
	"github.com/geminiambiental/billing/internal/infrastructure/event"
	"github.com/geminiambiental/billing/internal/infrastructure/logger"
	"github.com/geminiambiental/billing/internal/infrastructure/persistence"
	"github.com/geminiambiental/billing/internal/infrastructure/scheduler"
	"github.com/geminiambiental/billing/internal/infrastructure/telemetry"
	"github.com/geminiambiental/billing/internal/interfaces/http/handler"
	"github.com/geminiambiental/billing/internal/interfaces/http/middleware"
	"github.com/geminiambiental/billing/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting billing backend",
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	// Telemetry
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}

	// Database
	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Repositories
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	serviceRepo := persistence.NewGormServiceRecordRepository(db.DB)
	quotationRepo := persistence.NewGormQuotationRepository(db.DB)

	// Event bus with audit logging of all domain events
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewAuditLogHandler(log))

	// Application services
	invoiceService := appbilling.NewInvoiceService(invoiceRepo, serviceRepo, quotationRepo, eventBus, log)
	lifecycleService := appbilling.NewLifecycleService(invoiceRepo, eventBus, log)
	reportingService := appbilling.NewReportingService(invoiceRepo, serviceRepo, quotationRepo, log)

	// HTTP engine and middleware stack
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()
	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(middleware.Recovery(log))
	engine.Use(middleware.RequestLogger(log))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Routes
	invoiceHandler := handler.NewInvoiceHandler(invoiceService, lifecycleService, reportingService)
	systemHandler := handler.NewSystemHandler(db)
	systemHandler.RegisterProbes(engine)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(invoiceHandler)
	r.Register(systemHandler)
	r.Setup()

	// Overdue sweep scheduler
	var sweepTrigger *scheduler.SweepTrigger
	if cfg.Scheduler.Enabled {
		sweepTrigger = scheduler.NewSweepTrigger(scheduler.SweepTriggerConfig{
			SweepHour:     cfg.Scheduler.SweepHour,
			SweepMinute:   cfg.Scheduler.SweepMinute,
			CheckInterval: cfg.Scheduler.CheckInterval,
		}, lifecycleService, log)
		if err := sweepTrigger.Start(ctx); err != nil {
			log.Fatal("Failed to start sweep trigger", zap.Error(err))
		}
	}

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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if sweepTrigger != nil {
		if err := sweepTrigger.Stop(shutdownCtx); err != nil {
			log.Warn("Sweep trigger did not stop cleanly", zap.Error(err))
		}
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Warn("Tracer provider did not stop cleanly", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		log.Warn("Database did not close cleanly", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
