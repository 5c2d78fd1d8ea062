package http

import (
	"encoding/json"
	"net/http"
)

const headerRequestID = "X-Request-ID"

// errorBody es el cuerpo de todos los errores de la superficie operativa.
type errorBody struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}

// WriteError escribe un error JSON con el request id que dejó WithRequestID.
func WriteError(w http.ResponseWriter, status int, code, desc string) {
	WriteJSON(w, status, errorBody{
		Code:        code,
		Description: desc,
		RequestID:   w.Header().Get(headerRequestID),
	})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
