package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/randalmurphal/eventlink/pkg/eventlink/compensation"
	"github.com/randalmurphal/eventlink/pkg/eventlink/counter"
	"github.com/randalmurphal/eventlink/pkg/eventlink/event"
)

// SuccessResponse wraps every 2xx body.
type SuccessResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse wraps every error body.
type ErrorResponse struct {
	Status string       `json:"status"`
	Error  ErrorPayload `json:"error"`
}

// ErrorPayload describes a failed request.
type ErrorPayload struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, SuccessResponse{Status: "success", Data: data})
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Status: "error", Error: ErrorPayload{
		Code:      code,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	}})
}

func mapError(err error) (int, string) {
	var validation *event.ValidationError
	var serialization *event.SerializationError
	switch {
	case errors.Is(err, counter.ErrPostNotFound), errors.Is(err, compensation.ErrTransactionNotFound):
		return http.StatusNotFound, "not_found"
	case errors.As(err, &validation), errors.As(err, &serialization):
		return http.StatusBadRequest, "invalid_event"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
