package handlers

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"

	"kitab/internal/contextutil"
	"kitab/internal/drive"
	"kitab/internal/ingest"
	"kitab/internal/llm"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := contextutil.LoggerFromContext(r.Context())
		logger.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, ErrorResponse{Error: msg})
}

// statusFor maps domain errors to HTTP status codes. Anything unrecognized
// is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, ingest.ErrUnsupportedType), errors.Is(err, ingest.ErrBadChunking):
		return http.StatusBadRequest
	case errors.Is(err, drive.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, llm.ErrGeneration):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON decodes a request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}
