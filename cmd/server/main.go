package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/andresuchdata/backroom/internal/api"
	"github.com/andresuchdata/backroom/internal/config"
	"github.com/andresuchdata/backroom/internal/metrics"
	"github.com/andresuchdata/backroom/internal/report"
	"github.com/andresuchdata/backroom/internal/repository"
	"github.com/andresuchdata/backroom/internal/repository/database"
	"github.com/andresuchdata/backroom/internal/scheduler"
	"github.com/andresuchdata/backroom/internal/service"
	"github.com/andresuchdata/backroom/internal/storage"
	"github.com/andresuchdata/backroom/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.Configure(cfg.LogFormat, cfg.LogLevel)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.New(registry)

	// Initialize services
	inventoryService, err := service.Build(cfg, repository.NewCatalogRepository(db.DB), recorder)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize inventory service")
	}

	services := &api.Services{
		Inventory: inventoryService,
		Metrics:   recorder.Handler(),
	}

	// Scheduled ranking
	var sched *scheduler.Scheduler
	if cfg.Schedule.ReorderCron != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		job, err := newReorderJob(ctx, cfg, inventoryService)
		cancel()
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to initialize reorder ranking")
		}

		sched = scheduler.New(logger.Log)
		if err := sched.AddJob(cfg.Schedule.ReorderCron, job); err != nil {
			logger.Log.Fatal().Err(err).Str("schedule", cfg.Schedule.ReorderCron).Msg("Invalid reorder schedule")
		}
		sched.Start()
		services.LastRun = job

		if cfg.Schedule.RunOnStartup {
			go func() {
				if err := sched.RunNow(job); err != nil {
					logger.Log.Error().Err(err).Msg("Startup reorder ranking failed")
				}
			}()
		}
	}

	// Initialize HTTP server
	router := api.NewRouter(services, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	if sched != nil {
		sched.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}

// newReorderJob builds the scheduled ranking and restores its last result from published reports.
func newReorderJob(ctx context.Context, cfg *config.Config, source scheduler.RankingSource) (*scheduler.ReorderJob, error) {
	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("report storage: %w", err)
	}
	publisher := report.NewPublisher(store, cfg.Storage.ReportPrefix)

	job := scheduler.NewReorderJob(source, publisher, time.Duration(cfg.Schedule.RunTimeoutSeconds)*time.Second)
	if _, err := job.Restore(ctx, publisher); err != nil {
		logger.Log.Warn().Err(err).Msg("Could not restore last reorder ranking")
	}
	return job, nil
}
