// Package shared holds the response helpers used by every handler.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "gridgate/pkg/domain-errors"
)

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a domain error to its HTTP status and JSON envelope.
// Non-domain errors are masked as internal errors so internals never leak.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	message := "internal server error"
	var dErr *dErrors.Error
	if errors.As(err, &dErr) {
		message = dErr.Message
	}
	WriteJSON(w, dErrors.HTTPStatus(code), ErrorBody{
		Code:    string(code),
		Message: message,
	})
}
