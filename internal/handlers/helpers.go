package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/benvon/doit/internal/app"
	"github.com/benvon/doit/internal/request"
	"github.com/benvon/doit/internal/validation"
)

// maxErrorMessageLength keeps error envelopes short
const maxErrorMessageLength = 200

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// sanitizeErrorMessage truncates messages so internal detail does not leak
func sanitizeErrorMessage(message string) string {
	if len(message) > maxErrorMessageLength {
		return message[:maxErrorMessageLength] + "..."
	}
	return message
}

// respondJSONError sends an error JSON response with sanitized error messages
func respondJSONError(w http.ResponseWriter, status int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   false,
		"error":     errorType,
		"message":   sanitizeErrorMessage(message),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// errBodyTooLarge and errBadBody classify decodeJSON failures
var (
	errBodyTooLarge = errors.New("request body too large")
	errBadBody      = errors.New("invalid request body")
)

// decodeJSON reads one JSON object into dst and runs struct validation.
// Unknown fields are rejected.
func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return fmt.Errorf("%w: limit is %d bytes", errBodyTooLarge, maxBytesErr.Limit)
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: body is empty", errBadBody)
		}
		return fmt.Errorf("%w: %v", errBadBody, err)
	}

	return validation.Struct(dst)
}

// respondDecodeError maps a decodeJSON failure onto a response
func respondDecodeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", err.Error())
	case errors.Is(err, validation.ErrInvalid):
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
	default:
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
	}
}

// sessionFrom returns the client session set by the Session middleware,
// answering 500 itself when it is missing.
func sessionFrom(w http.ResponseWriter, r *http.Request) (*app.Session, bool) {
	session := request.SessionFromContext(r)
	if session == nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Session not found in context")
		return nil, false
	}
	return session, true
}
