// backend-go/cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wb-unit/backend-go/internal/api"
	"github.com/wb-unit/backend-go/internal/cache"
	"github.com/wb-unit/backend-go/internal/config"
	"github.com/wb-unit/backend-go/internal/pipeline"
	"github.com/wb-unit/backend-go/internal/repository"
	"github.com/wb-unit/backend-go/internal/repository/postgres"
	"github.com/wb-unit/backend-go/internal/service"
	"github.com/wb-unit/backend-go/internal/storage"
	"github.com/wb-unit/backend-go/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetLevel(cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	ctx := context.Background()

	// Initialize repositories
	ledgerRepo := repository.NewLedgerRepository(db)
	costsRepo := repository.NewCostsRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	managerRepo := repository.NewManagerRepository(db)
	reportRepo := repository.NewReportRepository(db)

	for _, ensure := range []func(context.Context) error{
		ledgerRepo.EnsureSchema,
		costsRepo.EnsureSchema,
		batchRepo.EnsureSchema,
		managerRepo.EnsureSchema,
	} {
		if err := ensure(ctx); err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to prepare database schema")
		}
	}

	// Initialize cache
	reportCache, err := cache.NewReportCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Report cache unavailable, continuing without it")
		reportCache = cache.NewNoopReportCache()
	}

	// Initialize object storage for exports
	var objectStore storage.ObjectStorage
	if cfg.Storage.Enabled {
		store, err := storage.NewMinioClient(cfg.Storage)
		if err != nil {
			logger.Log.Warn().Err(err).Msg("Object storage unavailable, exports are download-only")
		} else {
			objectStore = store
		}
	}

	// Initialize services
	resolverCfg := pipeline.ResolverConfig{
		TaxPercent:         cfg.Costs.TaxPercent,
		DefectPercent:      cfg.Costs.DefectPercent,
		AcquiringSurcharge: cfg.Costs.AcquiringSurcharge,
	}
	services := &api.Services{
		ReportService:  service.NewReportService(reportRepo, reportCache),
		CostService:    service.NewCostService(costsRepo, ledgerRepo, resolverCfg),
		BatchService:   service.NewBatchService(batchRepo),
		ExportService:  service.NewExportService(reportRepo, objectStore),
		ManagerService: service.NewManagerService(managerRepo),
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
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
