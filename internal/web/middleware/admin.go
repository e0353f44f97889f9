package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/facetrace/attendance/internal/config"
)

// AdminKeyHeader carries the operator key for destructive endpoints.
const AdminKeyHeader = "X-Admin-Key"

// RequireAdminKey guards destructive routes with a shared operator key.
// When no key is configured (empty or the placeholder default), the guard
// is disabled and requests pass through.
func RequireAdminKey(cfg *config.AdminConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.AdminKeyRequired() {
				key := r.Header.Get(AdminKeyHeader)
				if subtle.ConstantTimeCompare([]byte(key), []byte(cfg.Key)) != 1 {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusForbidden)
					_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid admin key"})
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
