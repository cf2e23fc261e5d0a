package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rookgm/grocerycart/internal/logger"
	"github.com/rookgm/grocerycart/internal/models"
	"go.uber.org/zap"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// writeJSON writes v with status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Error("encode response", zap.Error(err))
	}
}

// writeMessage writes a response with a message and no payload
func writeMessage(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Success: code < http.StatusBadRequest, Message: msg})
}

// writeError maps err to a status code. Errors outside the domain taxonomy are reported as internal.
func writeError(w http.ResponseWriter, err error) {
	var derr *models.Error
	if !errors.As(err, &derr) {
		logger.Log.Error("internal error", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, statusCode(err), errorResponse{Message: derr.Message, Field: derr.Field})
}

func statusCode(err error) int {
	switch models.KindOf(err) {
	case models.KindValidation:
		return http.StatusBadRequest
	case models.KindConflict:
		return http.StatusConflict
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindForbidden:
		return http.StatusForbidden
	case models.KindExternal:
		if errors.Is(err, models.ErrInvalidSignature) || errors.Is(err, models.ErrMissingMetadata) {
			return http.StatusBadRequest
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
