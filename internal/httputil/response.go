package httputil

import (
	"encoding/json"
	"log"
	"net/http"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// MessageResponse is the body of endpoints that only acknowledge success
type MessageResponse struct {
	Message string `json:"message"`
}

// RespondJSON sends a JSON response with the given status code.
// Logs encoding errors to avoid silent failures.
func RespondJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

// RespondMessage sends {"message": message} with the given status code.
func RespondMessage(w http.ResponseWriter, message string, statusCode int) {
	RespondJSON(w, MessageResponse{Message: message}, statusCode)
}

// RespondErrorWithCode sends a JSON error response with a machine-readable error code.
func RespondErrorWithCode(w http.ResponseWriter, message string, code string, statusCode int) {
	RespondJSON(w, ErrorResponse{Message: message, Code: code}, statusCode)
}

// DecodeJSON decodes the request body into dst.
func DecodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
