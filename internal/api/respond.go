package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"trading-journal-go/internal/journal"
)

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Field string `json:"field,omitempty"`
}

// statusFor maps an error kind onto an HTTP status.
func statusFor(kind journal.Kind) int {
	switch kind {
	case journal.KindValidation:
		return http.StatusBadRequest
	case journal.KindUnauthorized:
		return http.StatusForbidden
	case journal.KindNotFound:
		return http.StatusNotFound
	case journal.KindTransient:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any, log *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, err error, log *zap.Logger) {
	kind := journal.KindOf(err)
	body := errorBody{Error: err.Error(), Kind: kind.String()}
	var verr *journal.ValidationError
	if errors.As(err, &verr) {
		body.Field = verr.Field
	}
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, body, log)
}

func decodeJSON(r *http.Request, dest any) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return &journal.ValidationError{Field: "body", Reason: err.Error()}
	}
	return nil
}
