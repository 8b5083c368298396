package response

import (
	"encoding/json"
	"net/http"

	"github.com/JMAlloway/Check-sub001/internal/apperr"
)

// ErrorResponse is the JSON envelope every failure is wrapped in.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Error: message})
}

// WriteDomainError maps a coded error onto its HTTP status. Internal causes
// are not echoed to the caller.
func WriteDomainError(w http.ResponseWriter, err error) {
	code := apperr.CodeOf(err)
	msg := err.Error()
	if code == apperr.CodeInternal {
		msg = "internal error"
	}
	WriteJSON(w, apperr.HTTPStatus(code), ErrorResponse{Error: msg, Code: string(code)})
}
