package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/carelink/patient-admin/internal/gateway"
	"github.com/carelink/patient-admin/internal/linking"
	"github.com/carelink/patient-admin/internal/notify"
	"github.com/carelink/patient-admin/internal/patients"
	syncengine "github.com/carelink/patient-admin/internal/sync"
	"github.com/carelink/patient-admin/pkg/config"
	"github.com/carelink/patient-admin/pkg/database"
	"github.com/carelink/patient-admin/pkg/logger"
	"github.com/carelink/patient-admin/pkg/monitoring"
)

const serviceVersion = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.LogLevel)
	log.WithField("version", serviceVersion).Info("Starting Patient Admin Service")

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		log.WithError(err).Error("Failed to connect to database")
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Database.InitSchema {
		if err := db.CreateSchema(context.Background()); err != nil {
			log.WithError(err).Error("Failed to initialize database schema")
			os.Exit(1)
		}
		log.Info("Database schema initialized")
	}

	// Initialize monitoring
	var metrics *monitoring.MetricsCollector
	if cfg.Monitoring.Enabled {
		metrics = monitoring.NewMetricsCollector("patient-admin-service")
	}

	health := monitoring.NewHealthManager("patient-admin-service", serviceVersion)
	health.RegisterChecker("database", monitoring.NewDatabaseHealthChecker(db.DB))

	// Initialize the notification surface
	notifier := notify.NewLogNotifier(log, metrics)

	// Initialize repositories
	patientRepo := patients.NewRepository(db, log)
	profileRepo := linking.NewRepository(db, log)
	queueRepo := syncengine.NewRepository(db, log)

	// Initialize services
	approvalService := patients.NewService(patientRepo, notifier, log, metrics)
	linkService := linking.NewService(profileRepo, notifier, log, metrics)
	syncService := syncengine.NewService(queueRepo, patientRepo, notifier, log, metrics,
		cfg.Sync.MaxQueueSize, cfg.Sync.StartOnline)
	indicator := syncengine.NewIndicator(syncService)

	// Initialize middleware
	validator := gateway.NewTokenValidator(cfg.JWT.SecretKey, cfg.JWT.Issuer)
	var limiter *gateway.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = gateway.NewRateLimiter(cfg.RateLimit.RequestsPerMin, time.Minute)
		limiter.StartCleanup(time.Duration(cfg.RateLimit.CleanupInterval) * time.Second)
	}
	mw := gateway.NewMiddleware(validator, limiter, log)

	// Setup router
	router := mux.NewRouter()
	router.Use(mw.CORS)
	router.Use(mw.Logging)
	if metrics != nil {
		router.Use(metrics.HTTPMiddleware)
	}
	router.Use(mw.Auth)
	router.Use(mw.RateLimit)

	router.HandleFunc(cfg.Monitoring.HealthPath, health.HTTPHandler()).Methods("GET")
	if metrics != nil {
		router.Handle(cfg.Monitoring.MetricsPath, metrics.Handler()).Methods("GET")
	}

	api := router.PathPrefix("/api/v1").Subrouter()
	patients.NewHandlers(approvalService).RegisterRoutes(api)
	linking.NewHandlers(linkService).RegisterRoutes(api)
	syncengine.NewHandlers(syncService, indicator).RegisterRoutes(api)

	// Setup HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.WithField("address", server.Addr).Info("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Failed to start HTTP server")
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down Patient Admin Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
		os.Exit(1)
	}

	log.Info("Patient Admin Service stopped")
}
