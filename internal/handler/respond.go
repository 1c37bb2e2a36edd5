package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"cinetrivia/internal/middleware"
	apperrors "cinetrivia/pkg/errors"
	"cinetrivia/pkg/logger"
)

// respondJSON writes a JSON response with the given status code
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// respondError maps an error onto the structured error response. Every
// error funneled through the services carries its own status code;
// anything else becomes a 500.
func respondError(w http.ResponseWriter, r *http.Request, err error, log *logger.Logger) {
	appErr := apperrors.AsAppError(err)

	entry := log.WithFields(map[string]interface{}{
		"error_type": appErr.Type,
		"path":       r.URL.Path,
		"method":     r.Method,
	})
	if appErr.StatusCode >= http.StatusInternalServerError {
		entry.WithError(appErr).Error("Request failed")
	} else {
		entry.Debug("Request rejected")
	}

	response := &apperrors.ErrorResponse{}
	response.Error.Type = appErr.Type
	response.Error.Message = appErr.Message
	response.Error.Details = appErr.Details
	response.Error.RequestID = middleware.RequestIDFromContext(r.Context())
	response.Error.Timestamp = time.Now().UTC().Format(time.RFC3339)

	respondJSON(w, appErr.StatusCode, response)
}

// decodeJSON decodes a request body, translating failures into a
// validation error.
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.NewValidationError("Invalid request body", nil)
	}
	return nil
}
