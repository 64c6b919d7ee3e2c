// Package http holds the thin handler layer: decode, call the core, encode
// the payload. All domain rules live below it.
package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/examstat/cutline/internal/exam"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps the three error classes: validation → 400, business-state
// conflict → 409, not found → 404, anything else → opaque 500 (detail only
// in the server log).
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case exam.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error(), "kind": "validation"})
	case exam.IsConflict(err):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error(), "kind": "conflict"})
	case errors.Is(err, exam.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found", "kind": "not_found"})
	default:
		log.Printf("internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error", "kind": "internal"})
	}
}

// userID is supplied by the external session layer.
func userID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}
