package middleware

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// ErrorBody is the JSON error envelope shared by every handler.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Kind    string `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encode response failed", zap.Error(err))
	}
}

// WriteError writes the error envelope.
func WriteError(w http.ResponseWriter, status int, kind, code, message string) {
	WriteJSON(w, status, ErrorBody{Error: ErrorDetail{Kind: kind, Code: code, Message: message}})
}
