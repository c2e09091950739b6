package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/partflow/partflow"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError writes appropriate error response based on error type
func HandleError(w http.ResponseWriter, err error) {
	slog.Error("request error", "error", err)

	switch {
	case errors.Is(err, partflow.ErrSessionNotFound):
		WriteError(w, http.StatusNotFound, "session_not_found", "Upload session not found or expired")
	case errors.Is(err, partflow.ErrInvalidChunkConfig):
		WriteError(w, http.StatusBadRequest, "invalid_chunk_config", err.Error())
	case errors.Is(err, partflow.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, partflow.ErrIncompleteUpload):
		WriteError(w, http.StatusConflict, "incomplete_upload", err.Error())
	case errors.Is(err, partflow.ErrCompleteInProgress):
		WriteError(w, http.StatusConflict, "complete_in_progress", "Another completion or abort is in progress")
	case errors.Is(err, partflow.ErrStorageBackend):
		WriteError(w, http.StatusBadGateway, "storage_backend", "Storage backend error")
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}
