// Package shared centralizes JSON response writing so every handler returns
// the same envelope: payloads as-is, failures as {"message": ...} with an
// optional "fields" map for validation detail.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "vitalreg/pkg/domain-errors"
)

// WriteJSON writes a JSON payload with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorBody struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// WriteError translates a domain error into its HTTP response. Non-domain
// errors become a generic 500; their detail stays in the server logs.
func WriteError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := errorBody{Message: "internal server error"}

	var de *dErrors.Error
	if errors.As(err, &de) {
		status = dErrors.ToHTTPStatus(de.Code)
		body.Message = de.Message
		body.Fields = de.Fields
	}

	WriteJSON(w, status, body)
}
