package transport

import (
	"errors"
	"net/http"

	"catalog-wizard/internal/combination"
	"catalog-wizard/internal/kv"
	"catalog-wizard/internal/middleware"
	"catalog-wizard/internal/repository"
	"catalog-wizard/internal/service"
	"catalog-wizard/internal/upload"

	"go.uber.org/zap"
)

// variantErrors are the variant editing errors reported against a field
var variantErrors = []struct {
	err   error
	field string
}{
	{combination.ErrEmptyValue, "value"},
	{combination.ErrDuplicateValue, "value"},
	{combination.ErrNoSuchVariant, "index"},
	{combination.ErrTooManyCombinations, "variants"},
}

// respondWithDecodeError answers a body that failed to decode or validate
func respondWithDecodeError(w http.ResponseWriter, err error) {
	if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
		middleware.RespondWithValidationErrors(w, validationErrors)
		return
	}
	middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
}

// respondWithServiceError translates a service error into the HTTP error shape
func respondWithServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var inputErr *service.InputError
	if errors.As(err, &inputErr) {
		middleware.RespondWithValidationErrors(w, []middleware.ValidationError{
			{Field: inputErr.Field, Message: inputErr.Err.Error()},
		})
		return
	}
	for _, ve := range variantErrors {
		if errors.Is(err, ve.err) {
			middleware.RespondWithValidationErrors(w, []middleware.ValidationError{
				{Field: ve.field, Message: ve.err.Error()},
			})
			return
		}
	}

	switch {
	case errors.Is(err, repository.ErrDraftNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "draft not found")
	case errors.Is(err, service.ErrCombinationNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "combination not found")
	case errors.Is(err, combination.ErrLastVariant):
		middleware.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrImageAlreadyUploaded):
		middleware.RespondWithError(w, http.StatusConflict, "image already uploaded")
	case errors.Is(err, service.ErrCategoryExists):
		middleware.RespondWithError(w, http.StatusConflict, "category already exists")
	case errors.Is(err, upload.ErrUploadFailed):
		middleware.RespondWithRetryableError(w, http.StatusBadGateway, "image upload failed")
	case errors.Is(err, kv.ErrUnavailable):
		logger.Error("Storage unavailable", zap.Error(err))
		middleware.RespondWithError(w, http.StatusServiceUnavailable, "storage unavailable")
	default:
		logger.Error("Request failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}
