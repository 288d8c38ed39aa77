package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"catalog-wizard/internal/config"
	"catalog-wizard/internal/kv"
	custommiddleware "catalog-wizard/internal/middleware"
	"catalog-wizard/internal/repository"
	"catalog-wizard/internal/service"
	"catalog-wizard/internal/transport"
	"catalog-wizard/internal/upload"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Dependencies are the external resources the server is built on
type Dependencies struct {
	Store    kv.Store
	Uploader upload.Uploader
	// Remote is the published catalog; nil disables the merge
	Remote service.SnapshotFetcher
	// Redis enables rate limiting when set
	Redis *redis.Client
}

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	deps   Dependencies
}

func NewServer(cfg *config.Config, logger *zap.Logger, deps Dependencies) *Server {
	router := chi.NewRouter()

	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.IsDevelopment()))
	if deps.Redis != nil && cfg.RateLimit.Requests > 0 {
		router.Use(custommiddleware.RateLimitMiddleware(deps.Redis, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.Requests,
			Window:            cfg.RateLimit.Window,
			KeyPrefix:         cfg.Storage.KeyPrefix + ":ratelimit",
		}, logger))
	}

	router.Get("/health", healthHandler(deps.Store))

	// Initialize repositories
	draftRepo := repository.NewDraftRepository(deps.Store)
	catalogRepo := repository.NewCatalogRepository(deps.Store)

	// Initialize services
	draftService := service.NewDraftService(draftRepo, catalogRepo, deps.Uploader, logger)
	catalogService := service.NewCatalogService(catalogRepo, deps.Remote, logger)

	// Register routes
	transport.NewWizardHandler(draftService, cfg.Upload.MaxUploadBytes, logger).RegisterRoutes(router)
	transport.NewCatalogHandler(catalogService, logger).RegisterRoutes(router)

	return &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		deps:   deps,
	}
}

func healthHandler(store kv.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			custommiddleware.RespondWithJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":  "degraded",
				"storage": "down",
				"error":   err.Error(),
			})
			return
		}
		custommiddleware.RespondWithJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"storage": "up",
		})
	}
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.deps.Store != nil {
		if err := s.deps.Store.Close(); err != nil {
			s.logger.Error("Failed to close storage", zap.Error(err))
		}
	}
	if s.deps.Redis != nil {
		// The redis store may already have closed a shared client
		if err := s.deps.Redis.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
