// responses.go -- Package-wide HTTP response helpers.
//
// Shared by all gateway handlers. Error payloads carry a stable message
// field; classified denials additionally carry error_kind and xerr so
// callers can branch without parsing prose.
package auth

import (
	"encoding/json"
	"net/http"
)

// writeJSON sets the content type, writes the status, and encodes v.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type messageResponse struct {
	Message string `json:"message"`
}

// InternalServerError logs the error and returns a generic 500 response.
// Never exposes internal error details.
func InternalServerError(w http.ResponseWriter, r *http.Request, err error) {
	logError(r, "internal server error", "error", err)
	writeJSON(w, http.StatusInternalServerError, messageResponse{"internal server error"})
}

// BadRequest returns a 400 response with the given message.
func BadRequest(w http.ResponseWriter, r *http.Request, message string) {
	writeJSON(w, http.StatusBadRequest, messageResponse{message})
}

// Unauthorized returns a 401 response with the given message.
func Unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	writeJSON(w, http.StatusUnauthorized, messageResponse{message})
}

// BadGateway returns a 502 response with the given message. Used when an
// upstream Xbox Live call fails or returns something undecodable.
func BadGateway(w http.ResponseWriter, r *http.Request, message string) {
	writeJSON(w, http.StatusBadGateway, messageResponse{message})
}

// NotFound returns a 404 response.
func NotFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, messageResponse{"not found"})
}
