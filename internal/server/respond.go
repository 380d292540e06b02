package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/stackprice/stackprice/pkg/storage"
)

type envelope struct {
	Success bool         `json:"success"`
	Data    interface{}  `json:"data,omitempty"`
	Error   string       `json:"error,omitempty"`
	Details []fieldError `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Error: msg})
}

func writeValidation(w http.ResponseWriter, errs validationErrors) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(envelope{Error: "Validation failed", Details: errs})
}

// writeStoreError maps storage failures: missing records are 404, anything
// else is logged and reported as 500 without leaking the cause.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, notFound string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, notFound)
		return
	}
	s.Log.WithError(err).Errorf("%s %s failed", r.Method, r.URL.Path)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

// decodeBody reads a JSON request body into v. A malformed body is a
// validation failure on the body itself.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeValidation(w, validationErrors{{Field: "body", Message: "invalid JSON: " + err.Error()}})
		return false
	}
	return true
}
