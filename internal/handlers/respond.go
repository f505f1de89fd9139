package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-maintenance/internal/models"
)

// maxBodyBytes caps request bodies read by the API.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrStorageFailure):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{"method": r.Method, "path": r.URL.Path}).Error("Request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// decodeJSON reads the request body into v. Malformed or empty bodies are
// validation errors.
func decodeJSON(r *http.Request, v interface{}) error {
	_, err := decodeBody(r, v)
	return err
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be omitted.
// An absent or blank body leaves v untouched.
func decodeOptionalJSON(r *http.Request, v interface{}) error {
	if present, err := decodeBody(r, v); present {
		return err
	}
	return nil
}

func decodeBody(r *http.Request, v interface{}) (bool, error) {
	if r.Body == nil {
		return false, fmt.Errorf("%w: request body is required", models.ErrValidation)
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return true, fmt.Errorf("%w: failed to read request body", models.ErrValidation)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return false, fmt.Errorf("%w: request body is required", models.ErrValidation)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return true, fmt.Errorf("%w: invalid JSON: %v", models.ErrValidation, err)
	}
	return true, nil
}

// parseDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp.
func parseDate(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: %s is required", models.ErrValidation, field)
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD or RFC 3339, got %q", models.ErrValidation, field, s)
	}
	return t, nil
}
