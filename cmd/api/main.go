package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"catalog-wizard/internal/catalog"
	"catalog-wizard/internal/config"
	"catalog-wizard/internal/logger"
	"catalog-wizard/internal/server"
	"catalog-wizard/internal/upload"

	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *server.Server, logger *zap.Logger, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// The context is used to inform the server it has 30 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := apiServer.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	logger.Info("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting catalog wizard API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("upload", cfg.Upload.Driver),
	)

	ctx := context.Background()

	redisClient, redisUp := server.NewRedisClient(ctx, cfg.Redis, log)

	store, err := server.OpenStore(ctx, cfg, redisClient, log)
	if err != nil {
		log.Fatal("Failed to open storage", zap.Error(err))
	}

	uploader, err := upload.FromConfig(ctx, cfg.Upload)
	if err != nil {
		log.Warn("Image uploads disabled", zap.Error(err))
		uploader = upload.Disabled(err)
	}

	deps := server.Dependencies{
		Store:    store,
		Uploader: uploader,
		Redis:    redisClient,
	}
	if !redisUp && cfg.Storage.Driver != config.StorageRedis {
		log.Warn("Rate limiting disabled")
		redisClient.Close()
		deps.Redis = nil
	}
	if cfg.Remote.CatalogURL != "" {
		deps.Remote = catalog.NewRemoteClient(cfg.Remote.CatalogURL, nil, cfg.Remote.Timeout)
	}

	srv := server.NewServer(cfg, log, deps)

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(srv, log, done)

	log.Info("Server listening", zap.String("addr", srv.Addr))

	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Fatal("HTTP server error", zap.Error(err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Info("Graceful shutdown complete")
}
