package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Prajwal99452/todo-summary/internal/apperr"
)

// APIError is the standard error response format.
type APIError struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError maps an error to its HTTP status and writes the standard
// error payload. Handlers never let a failure escape without a structured
// body.
func writeError(w http.ResponseWriter, err error) {
	payload := APIError{Error: err.Error()}
	var e *apperr.Error
	if errors.As(err, &e) {
		payload.Code = string(e.Code)
	}
	writeJSON(w, apperr.HTTPStatus(err), payload)
}
