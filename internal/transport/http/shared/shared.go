// Package shared centralizes JSON response envelopes so every handler
// answers errors the same way.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "polizalab/pkg/domain-errors"
)

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into an HTTP response. Unknown
// errors become opaque 500s; the cause never leaks to the client.
func WriteError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := string(dErrors.CodeInternal)
	message := "internal error"

	var gw dErrors.GatewayError
	if errors.As(err, &gw) {
		status = dErrors.ToHTTPStatus(gw.Code)
		code = string(gw.Code)
		message = gw.Message
	}

	WriteJSON(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}
