package transport

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"catalog-wizard/internal/domain"
	"catalog-wizard/internal/middleware"
	"catalog-wizard/internal/service"
	"catalog-wizard/internal/upload"
	"catalog-wizard/internal/wizard"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultMaxUploadBytes bounds image uploads when no limit is configured
const DefaultMaxUploadBytes = 10 << 20

// DescriptionRequest represents the description step payload
type DescriptionRequest struct {
	Name     string `json:"name" validate:"max=200"`
	Category string `json:"category" validate:"max=100"`
	Brand    string `json:"brand" validate:"max=100"`
}

// VariantPayload is one variant row as sent by the variants step
type VariantPayload struct {
	Name   string   `json:"name" validate:"max=50"`
	Values []string `json:"values" validate:"max=50,dive,max=50"`
}

// VariantsRequest replaces every variant of the draft
type VariantsRequest struct {
	Variants []VariantPayload `json:"variants" validate:"required,max=20,dive"`
}

// VariantValueRequest adds one option to a variant
type VariantValueRequest struct {
	Value string `json:"value" validate:"required,max=50"`
}

// CombinationRequest patches one row of the SKU table
type CombinationRequest struct {
	SKU      *string `json:"sku" validate:"omitempty,max=64"`
	InStock  *bool   `json:"inStock"`
	Quantity *string `json:"quantity" validate:"omitempty,digits,max=9"`
}

// PriceRequest represents the price step payload
type PriceRequest struct {
	Price        *decimal.Decimal `json:"price" validate:"omitempty,gte=0"`
	Discount     *decimal.Decimal `json:"discount" validate:"omitempty,gte=0"`
	DiscountType string           `json:"discountType" validate:"omitempty,oneof=% $"`
}

// StartResponse is returned when a wizard run begins
type StartResponse struct {
	ID    string             `json:"id"`
	Step  wizard.Step        `json:"step"`
	Route string             `json:"route"`
	Draft *domain.DraftState `json:"draft"`
}

// WizardHandler handles HTTP requests for the product wizard
type WizardHandler struct {
	drafts         service.DraftService
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewWizardHandler creates a new WizardHandler
func NewWizardHandler(drafts service.DraftService, maxUploadBytes int64, logger *zap.Logger) *WizardHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &WizardHandler{
		drafts:         drafts,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// RegisterRoutes registers all wizard routes
func (h *WizardHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/drafts", func(r chi.Router) {
		r.Post("/", h.Start)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Delete("/", h.Cancel)

			r.Put("/description", h.SaveDescription)
			r.Post("/image", h.UploadImage)

			r.Put("/variants", h.SaveVariants)
			r.Post("/variants", h.AddVariant)
			r.Delete("/variants/{index}", h.DeleteVariant)
			r.Post("/variants/{index}/values", h.AddVariantValue)
			r.Delete("/variants/{index}/values/{value}", h.RemoveVariantValue)

			r.Patch("/combinations/{comboID}", h.UpdateCombination)
			r.Put("/price", h.SavePrice)

			r.Post("/advance", h.Advance)
			r.Post("/retreat", h.Retreat)
			r.Post("/confirm", h.Confirm)
		})
	})
}

func draftID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

func variantIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		middleware.RespondWithValidationErrors(w, []middleware.ValidationError{
			{Field: "index", Message: "Invalid value"},
		})
		return 0, false
	}
	return index, true
}

// pathValue returns a decoded URL parameter. chi routes on RawPath when the
// request has one, leaving its parameters escaped.
func pathValue(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	value := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return value, true
	}

	decoded, err := url.PathUnescape(value)
	if err != nil {
		middleware.RespondWithValidationErrors(w, []middleware.ValidationError{
			{Field: name, Message: "Invalid value"},
		})
		return "", false
	}
	return decoded, true
}

// respondWithDraft writes the updated draft or the error that prevented it
func (h *WizardHandler) respondWithDraft(w http.ResponseWriter, state *domain.DraftState, err error) {
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, state)
}

// Start begins a new wizard run
func (h *WizardHandler) Start(w http.ResponseWriter, r *http.Request) {
	state, err := h.drafts.Start(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	step := wizard.Step(state.Step)
	middleware.RespondWithJSON(w, http.StatusCreated, StartResponse{
		ID:    state.ID,
		Step:  step,
		Route: wizard.Route(step),
		Draft: state,
	})
}

// Get returns the draft with the validity of its current step
func (h *WizardHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.drafts.Get(r.Context(), draftID(r))
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, view)
}

// Cancel discards the draft
func (h *WizardHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.drafts.Cancel(r.Context(), draftID(r)); err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *WizardHandler) SaveDescription(w http.ResponseWriter, r *http.Request) {
	var req DescriptionRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Description validation failed", zap.Error(err))
		respondWithDecodeError(w, err)
		return
	}

	state, err := h.drafts.SaveDescription(r.Context(), draftID(r), service.DescriptionInput{
		Name:     req.Name,
		Category: req.Category,
		Brand:    req.Brand,
	})
	h.respondWithDraft(w, state, err)
}

// UploadImage stores the multipart "file" field as the product image
func (h *WizardHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.RespondWithError(w, http.StatusRequestEntityTooLarge, "image too large")
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.RespondWithValidationErrors(w, []middleware.ValidationError{
			{Field: "file", Message: "This field is required"},
		})
		return
	}
	defer file.Close()

	state, err := h.drafts.AttachImage(r.Context(), draftID(r), file, upload.File{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	})
	h.respondWithDraft(w, state, err)
}

func (h *WizardHandler) SaveVariants(w http.ResponseWriter, r *http.Request) {
	var req VariantsRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Variants validation failed", zap.Error(err))
		respondWithDecodeError(w, err)
		return
	}

	variants := make([]domain.Variant, len(req.Variants))
	for i, v := range req.Variants {
		variants[i] = domain.Variant{Name: v.Name, Values: v.Values}
	}

	state, err := h.drafts.SaveVariants(r.Context(), draftID(r), variants)
	h.respondWithDraft(w, state, err)
}

func (h *WizardHandler) AddVariant(w http.ResponseWriter, r *http.Request) {
	state, err := h.drafts.AddVariant(r.Context(), draftID(r))
	h.respondWithDraft(w, state, err)
}

func (h *WizardHandler) DeleteVariant(w http.ResponseWriter, r *http.Request) {
	index, ok := variantIndex(w, r)
	if !ok {
		return
	}
	state, err := h.drafts.DeleteVariant(r.Context(), draftID(r), index)
	h.respondWithDraft(w, state, err)
}

func (h *WizardHandler) AddVariantValue(w http.ResponseWriter, r *http.Request) {
	index, ok := variantIndex(w, r)
	if !ok {
		return
	}

	var req VariantValueRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondWithDecodeError(w, err)
		return
	}

	state, err := h.drafts.AddVariantValue(r.Context(), draftID(r), index, req.Value)
	h.respondWithDraft(w, state, err)
}

func (h *WizardHandler) RemoveVariantValue(w http.ResponseWriter, r *http.Request) {
	index, ok := variantIndex(w, r)
	if !ok {
		return
	}
	value, ok := pathValue(w, r, "value")
	if !ok {
		return
	}

	state, err := h.drafts.RemoveVariantValue(r.Context(), draftID(r), index, value)
	h.respondWithDraft(w, state, err)
}

func (h *WizardHandler) UpdateCombination(w http.ResponseWriter, r *http.Request) {
	var req CombinationRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Combination validation failed", zap.Error(err))
		respondWithDecodeError(w, err)
		return
	}

	state, err := h.drafts.UpdateCombination(r.Context(), draftID(r), chi.URLParam(r, "comboID"), service.CombinationUpdate{
		SKU:      req.SKU,
		InStock:  req.InStock,
		Quantity: req.Quantity,
	})
	h.respondWithDraft(w, state, err)
}

func (h *WizardHandler) SavePrice(w http.ResponseWriter, r *http.Request) {
	var req PriceRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Price validation failed", zap.Error(err))
		respondWithDecodeError(w, err)
		return
	}

	state, err := h.drafts.SavePrice(r.Context(), draftID(r), service.PriceInput{
		Price:        req.Price,
		Discount:     req.Discount,
		DiscountType: domain.DiscountType(req.DiscountType),
	})
	h.respondWithDraft(w, state, err)
}

// respondWithStep writes a navigation result. An invalid step is a conflict
// that still reports where the user stands.
func (h *WizardHandler) respondWithStep(w http.ResponseWriter, result *service.StepResult, err error) {
	if errors.Is(err, service.ErrStepInvalid) && result != nil {
		middleware.RespondWithErrorDetails(w, http.StatusConflict, err.Error(), map[string]interface{}{
			"step":  result.Step,
			"route": result.Route,
		})
		return
	}
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, result)
}

func (h *WizardHandler) Advance(w http.ResponseWriter, r *http.Request) {
	result, err := h.drafts.Advance(r.Context(), draftID(r))
	h.respondWithStep(w, result, err)
}

func (h *WizardHandler) Retreat(w http.ResponseWriter, r *http.Request) {
	result, err := h.drafts.Retreat(r.Context(), draftID(r))
	h.respondWithStep(w, result, err)
}

// Confirm assembles the draft into a catalog product
func (h *WizardHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	result, err := h.drafts.Confirm(r.Context(), draftID(r))
	if err == nil {
		h.logger.Info("Product created", zap.String("draft_id", draftID(r)), zap.String("name", result.Product.Name))
	}
	h.respondWithStep(w, result, err)
}
