// Package httputil writes the JSON envelopes used by the API routes.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/jrschumacher/fitlink/internal/logger"
)

// APIError is the error body of a failed API call
type APIError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Success bool     `json:"success"`
	Error   APIError `json:"error"`
}

// WriteError writes a standardized error response whose HTTP status equals error.status
func WriteError(w http.ResponseWriter, status int, message string, logFields ...any) {
	response := ErrorResponse{
		Success: false,
		Error:   APIError{Message: message, Status: status},
	}

	WriteJSON(w, status, response)

	// Log the error with additional context
	logFields = append([]any{"status", status, "message", message}, logFields...)
	if status >= http.StatusInternalServerError {
		logger.Error("HTTP error response", logFields...)
	} else {
		logger.Warn("HTTP error response", logFields...)
	}
}

// WriteInternalError writes a generic internal server error
func WriteInternalError(w http.ResponseWriter, err error, message string, logFields ...any) {
	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error: APIError{Message: message, Status: http.StatusInternalServerError},
	})

	// Log the actual error with context
	logFields = append([]any{"error", err, "message", message}, logFields...)
	logger.Error("Internal server error", logFields...)
}

// WriteJSON writes a JSON response with proper error handling
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", "error", err)
	}
}

// WriteSuccess writes a 200 OK response with JSON data
func WriteSuccess(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, data)
}
