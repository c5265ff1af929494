package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// Error is the body of every non-2xx API response.
type Error struct {
	Code      string `json:"error"`
	Message   string `json:"message"`
	Status    int    `json:"status"`
	RequestID string `json:"request_id,omitempty"`
	Field     string `json:"field,omitempty"`
}

func NewError(code, message string, status int) Error {
	return Error{
		Code:    code,
		Message: singleLine(message),
		Status:  status,
	}
}

// WithField names the request field a validation error refers to.
func (e Error) WithField(field string) Error {
	e.Field = field
	return e
}

func WriteError(ctx context.Context, w http.ResponseWriter, e Error) {
	if e.Status == 0 {
		e.Status = http.StatusInternalServerError
	}
	if e.RequestID == "" {
		e.RequestID = middleware.GetReqID(ctx)
	}

	WriteJSON(w, e.Status, e)
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// singleLine keeps storage driver messages from breaking the envelope into lines.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
