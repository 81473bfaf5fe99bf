// Package httpx provides HTTP response utilities for the JSON API.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/smartexpense/smartexpense/internal/shared"
)

// ErrorBody is the JSON payload returned for every failed request.
type ErrorBody struct {
	Error   string              `json:"error"`
	Message string              `json:"message,omitempty"`
	Details []shared.FieldError `json:"details,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Error sends an ErrorBody with the given status and message.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorBody{Error: message})
}

// DecodeJSON decodes JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}

// IsBodyTooLarge reports whether err came from an http.MaxBytesReader limit.
func IsBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	// multipart parsing does not always wrap the underlying reader error.
	return err != nil && strings.Contains(err.Error(), "http: request body too large")
}
