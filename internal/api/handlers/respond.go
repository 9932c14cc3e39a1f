package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lukasmoran/voicebridge/internal/azure"
)

// ValidationError rejects a malformed local request before any upstream
// call is made.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError maps the error taxonomy onto the stable local error shape:
// "fix your input" (400), "fix your credentials" (502/auth), and "try again
// later" (upstream status passed through). The subscription key never
// appears in any of these messages.
func writeError(w http.ResponseWriter, err error) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusBadRequest, map[string]errorBody{"error": {
			Kind:    "validation",
			Message: ve.Reason,
			Status:  http.StatusBadRequest,
		}})
		return
	}

	var ae *azure.AuthError
	if errors.As(err, &ae) {
		writeJSON(w, http.StatusBadGateway, map[string]errorBody{"error": {
			Kind:    "auth",
			Message: ae.Service + " rejected the configured credentials; check the subscription key and region",
			Status:  http.StatusBadGateway,
		}})
		return
	}

	var ue *azure.UpstreamError
	if errors.As(err, &ue) {
		status := ue.Status
		if status < 400 {
			status = http.StatusBadGateway
		}
		if ue.RetryAfter != "" {
			w.Header().Set("Retry-After", ue.RetryAfter)
		}
		writeJSON(w, status, map[string]errorBody{"error": {
			Kind:    "upstream",
			Message: ue.Message,
			Status:  status,
		}})
		return
	}

	writeJSON(w, http.StatusInternalServerError, map[string]errorBody{"error": {
		Kind:    "internal",
		Message: err.Error(),
		Status:  http.StatusInternalServerError,
	}})
}
