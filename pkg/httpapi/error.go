package httpapi

import (
	"encoding/json"
	"net/http"
)

// ErrorEnvelope standardizes JSON error responses for the report endpoints.
type ErrorEnvelope struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Code    string            `json:"code,omitempty"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// Failure is the envelope used by the dashboard endpoints, which report
// outcome through a success flag.
type Failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, errText, message string, meta map[string]string) error {
	return WriteJSON(w, status, &ErrorEnvelope{
		Error:   errText,
		Message: message,
		Meta:    meta,
	})
}

func WriteFailure(w http.ResponseWriter, status int, errText string) error {
	return WriteJSON(w, status, &Failure{Success: false, Error: errText})
}
