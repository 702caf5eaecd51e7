package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/codyseavey/tcg-market/internal/api"
	"github.com/codyseavey/tcg-market/internal/config"
	"github.com/codyseavey/tcg-market/internal/database"
	"github.com/codyseavey/tcg-market/internal/logger"
	"github.com/codyseavey/tcg-market/internal/repository"
	"github.com/codyseavey/tcg-market/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	db, err := database.Open(database.Options{
		Driver:   cfg.Database.Driver,
		DSN:      cfg.Database.DSN(),
		LogLevel: logger.GormLevel(cfg.LogLevel),
	}, zlog)
	if err != nil {
		return err
	}

	holdings := repository.NewHoldingsRepository(db)
	prices := repository.NewPriceRepository(db)
	catalog := repository.NewCatalogRepository(db)
	snapshots := repository.NewSnapshotRepository(db)

	valuationService, err := services.NewValuationService(holdings, prices, cfg.Workers.ValuationCacheSize, cfg.Workers.ValuationCacheTTL, zlog.Named("valuation"))
	if err != nil {
		return err
	}
	catalogService := services.NewCatalogService(catalog, zlog.Named("catalog"))
	snapshotService := services.NewSnapshotService(holdings, snapshots, valuationService,
		cfg.Workers.SnapshotHour, cfg.Workers.SnapshotInterval, zlog.Named("snapshot"))

	// Create a cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Catalog.DataDir != "" {
		if _, _, err := catalogService.LoadFromDir(ctx, cfg.Catalog.DataDir); err != nil {
			return err
		}
	}

	// Start snapshot worker in background with panic recovery
	go func() {
		for {
			func() {
				defer func() {
					if r := recover(); r != nil {
						zlog.Error("panic in snapshot worker, restarting in 30 seconds", zap.Any("panic", r))
					}
				}()
				snapshotService.Start(ctx)
			}()

			select {
			case <-ctx.Done():
				return // Graceful shutdown
			case <-time.After(30 * time.Second):
				zlog.Info("snapshot worker restarting after panic recovery")
			}
		}
	}()

	limiter := api.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst)
	go limiter.Cleanup(ctx)

	router := api.SetupRouter(cfg.HTTP, cfg.Security.JWTSecret, api.Services{
		Valuation:  valuationService,
		Collection: services.NewCollectionService(holdings, prices, catalog, valuationService, zlog.Named("collection")),
		Price:      services.NewPriceService(prices, catalog),
		Snapshot:   snapshotService,
		Catalog:    catalogService,
	}, limiter, zlog.Named("http"))

	if cfg.Security.JWTSecret == "" {
		zlog.Warn("JWT_SECRET is empty, trusting the X-User-ID header")
	}

	// Create HTTP server for graceful shutdown
	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		zlog.Info("starting server", zap.String("port", cfg.HTTP.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return err
	}
	zlog.Info("shutting down server")

	// Cancel the context to stop the background workers
	cancel()

	// Give outstanding requests a deadline to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("server forced to shutdown", zap.Error(err))
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	zlog.Info("server exited")
	return nil
}
