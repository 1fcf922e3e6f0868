// Package httputil centralizes JSON response writing so handlers stay thin
// and error bodies are uniform across the API.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "rollcall/pkg/domain-errors"
)

var statusByCode = map[dErrors.Code]int{
	dErrors.CodeBadRequest: http.StatusBadRequest,
	dErrors.CodeValidation: http.StatusBadRequest,
	dErrors.CodeForbidden:  http.StatusForbidden,
	dErrors.CodeNotFound:   http.StatusNotFound,
	dErrors.CodeConflict:   http.StatusConflict,
	dErrors.CodeInternal:   http.StatusInternalServerError,
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a domain error to an HTTP response. Internal errors return
// a bare code with no description so no internal detail leaks to clients;
// everything else echoes the domain message.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		code = dErrors.CodeInternal
		status = http.StatusInternalServerError
	}

	body := map[string]string{"error": string(code)}
	if code != dErrors.CodeInternal {
		var de *dErrors.Error
		if errors.As(err, &de) {
			body["error_description"] = de.Message
		}
	}
	WriteJSON(w, status, body)
}
