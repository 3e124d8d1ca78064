package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/erazemk/instrumenti/internal/model"
	"github.com/erazemk/instrumenti/internal/service"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, logger *zap.Logger, status int, data any) {
	if err := writeJSON(w, status, data); err != nil {
		logger.Warn("encoding response", zap.Error(err))
	}
}

// jsonError writes a JSON error response. A string map only fails to encode
// when the client is gone, so the error is dropped.
func jsonError(w http.ResponseWriter, status int, message string) {
	_ = writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(data)
}

// serviceError maps a service error to its HTTP status. Anything unexpected
// is logged and reported as a 500 with msg.
func serviceError(w http.ResponseWriter, logger *zap.Logger, err error, msg string) {
	var ve *model.ValidationError
	var hre *service.HasReservationsError

	switch {
	case errors.As(err, &ve):
		jsonResponse(w, logger, http.StatusBadRequest, map[string]string{"error": ve.Message, "field": ve.Field})
	case errors.Is(err, service.ErrConfirmation), errors.Is(err, service.ErrInstrumentNotFound):
		jsonError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &hre):
		jsonResponse(w, logger, http.StatusConflict, map[string]any{"error": hre.Error(), "reservations": hre.Count})
	default:
		logger.Error(msg, zap.Error(err))
		jsonError(w, http.StatusInternalServerError, msg)
	}
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}
