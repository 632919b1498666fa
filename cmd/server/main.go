// Package main is the entry point for the work-query backend server.
// It provides a REST API for facility work queries (trouble tickets):
// creation with proof-file upload to object storage, status lifecycle,
// assignment, commenting, file add/remove, and statistics aggregation.
//
// Architecture:
//   - Work queries live in PostgreSQL as document-style aggregates
//     (filterable scalars as columns, proof files/comments as JSONB)
//   - Proof attachments are stored in an S3-compatible bucket; the
//     persisted record only carries the public id and URL
//   - Creation is all-or-nothing: a failed upload or insert triggers
//     compensating deletion of objects stored earlier in the request
//   - A JWT identity middleware supplies the acting user snapshot
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fmdesk/workquery-server/internal/config"
	"github.com/fmdesk/workquery-server/internal/database"
	"github.com/fmdesk/workquery-server/internal/handlers"
	"github.com/fmdesk/workquery-server/internal/middleware"
	"github.com/fmdesk/workquery-server/internal/repository"
	"github.com/fmdesk/workquery-server/internal/services"
	"github.com/fmdesk/workquery-server/internal/storage"
)

func main() {
	// Initialize structured logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	sugar := logger.Sugar()

	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("Failed to load config: %v", err)
	}

	sugar.Infow("Starting Work Query Server",
		"port", cfg.Port,
		"env", cfg.Environment,
		"storage_endpoint", cfg.StorageEndpoint,
		"storage_bucket", cfg.StorageBucket,
	)

	// Initialize database connection pool and apply migrations
	db, err := database.NewPool(cfg.DatabaseURL)
	if err != nil {
		sugar.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.RunMigrations(migrateCtx, db); err != nil {
		cancelMigrate()
		sugar.Fatalf("Failed to run migrations: %v", err)
	}
	cancelMigrate()

	// Redis backs the distributed rate limiter
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		sugar.Fatalf("Invalid REDIS_URL: %v", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	// Object storage gateway for proof files
	store, err := storage.New(cfg)
	if err != nil {
		sugar.Fatalf("Failed to init object storage: %v", err)
	}
	bucketCtx, cancelBucket := context.WithTimeout(context.Background(), 15*time.Second)
	if err := store.EnsureBucket(bucketCtx); err != nil {
		cancelBucket()
		sugar.Fatalf("Failed to ensure proof bucket: %v", err)
	}
	cancelBucket()

	// Initialize repository and services
	queryRepo := repository.NewWorkQueryRepository(db)
	validator := services.NewProofFileValidator()
	querySvc := services.NewWorkQueryService(queryRepo, store, validator, sugar)

	// Initialize handlers
	limits := handlers.UploadLimits{
		MaxFileBytes: cfg.MaxFileBytes,
		MaxFiles:     cfg.MaxFilesPerRequest,
		MaxFields:    cfg.MaxFieldsPerRequest,
	}
	queryHandler := handlers.NewWorkQueryHandler(querySvc, limits, sugar)
	healthHandler := handlers.NewHealthHandler(db, sugar)

	// Build router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(middleware.Metrics())
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Rate limiting (Redis-backed, shared across replicas)
	r.Use(middleware.RateLimit(rdb, cfg.RateLimitRPM, sugar))

	// API Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health checks and metrics
		r.Get("/health", healthHandler.Check)
		r.Get("/health/ready", healthHandler.Ready)
		r.Handle("/metrics", promhttp.Handler())

		// Work-query endpoints (authenticated)
		r.Route("/work-queries", func(r chi.Router) {
			r.Use(middleware.Identity(cfg.JWTSecret))

			r.Post("/", queryHandler.Create)
			r.Get("/", queryHandler.List)
			r.Get("/statistics", queryHandler.Statistics)
			r.Get("/recent", queryHandler.Recent)

			// Static enumerations for client form population
			r.Get("/categories", queryHandler.Categories)
			r.Get("/priorities", queryHandler.Priorities)
			r.Get("/statuses", queryHandler.Statuses)
			r.Get("/service-types", queryHandler.ServiceTypes)

			r.Get("/query/{queryId}", queryHandler.GetByQueryID)
			r.Get("/supervisor/{supervisorId}/services", queryHandler.SupervisorServices)

			r.Get("/{id}", queryHandler.GetByID)
			r.Patch("/{id}/status", queryHandler.UpdateStatus)
			r.Post("/{id}/comments", queryHandler.AddComment)
			r.Patch("/{id}/assign", queryHandler.Assign)
			r.Post("/{id}/files", queryHandler.AddFiles)
			r.Delete("/{id}/files", queryHandler.RemoveFiles)
		})
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sugar.Infof("Server listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	sugar.Info("Shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		sugar.Fatalf("Forced shutdown: %v", err)
	}

	sugar.Info("Server stopped")
}
