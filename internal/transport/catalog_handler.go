package transport

import (
	"net/http"

	"catalog-wizard/internal/middleware"
	"catalog-wizard/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CategoryRequest represents the add category payload
type CategoryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// CatalogHandler serves the catalog view
type CatalogHandler struct {
	catalog service.CatalogService
	logger  *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalog service.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// RegisterRoutes registers all catalog routes
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/catalog", h.GetCatalog)
	r.Get("/api/categories", h.ListCategories)
	r.Post("/api/categories", h.AddCategory)
}

// GetCatalog returns the local catalog merged with the published snapshot
func (h *CatalogHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.catalog.Load(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, snapshot)
}

// ListCategories returns every category with its products filed under it
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ProductsByCategory(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, categories)
}

func (h *CatalogHandler) AddCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Category validation failed", zap.Error(err))
		respondWithDecodeError(w, err)
		return
	}

	category, err := h.catalog.AddCategory(r.Context(), req.Name)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, category)
}
