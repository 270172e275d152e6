package server

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/w2-reporter/internal/common"
	"github.com/joseph-ayodele/w2-reporter/internal/relay"
)

// RequestID tags every request with a correlation id for logs.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(common.WithRequestID(r.Context(), reqID)))
	})
}

// RequireSecret is the shared-secret gate ahead of the pipeline. The secret
// value itself is never logged or echoed.
func RequireSecret(secret string, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(relay.SecretHeader)
			if got == "" {
				logger.Warn("server.auth.missing_secret", "path", r.URL.Path)
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized: Missing secret key."})
				return
			}
			if got != secret {
				logger.Warn("server.auth.invalid_secret", "path", r.URL.Path)
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized: Invalid secret key."})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
