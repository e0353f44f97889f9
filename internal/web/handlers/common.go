package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/facetrace/attendance/internal/attendance"
	"github.com/facetrace/attendance/internal/embedding"
	"github.com/facetrace/attendance/internal/identity"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondDomainError maps domain errors to HTTP statuses. Unrecognized
// errors become a 500 with a generic message so store internals never
// leak to clients.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, identity.ErrNotFound), errors.Is(err, attendance.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, identity.ErrValidation), errors.Is(err, attendance.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, identity.ErrConfirmationRequired):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, embedding.ErrNoFace):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
