package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/w2-reporter/internal/common"
	"github.com/joseph-ayodele/w2-reporter/internal/export"
	"github.com/joseph-ayodele/w2-reporter/internal/pipeline"
	"github.com/joseph-ayodele/w2-reporter/internal/relay"
	"github.com/joseph-ayodele/w2-reporter/internal/repository"
)

var relaySecretHeaderCanonical = http.CanonicalHeaderKey(relay.SecretHeader)

// NewRouter wires the full HTTP surface. The upload and submissions routes
// sit behind the shared-secret gate; health and CORS diagnostics do not.
func NewRouter(
	cfg *common.Config,
	proc *pipeline.Processor,
	store *repository.SubmissionStore,
	exportSvc *export.Service,
	logger *slog.Logger,
) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestID)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.HandleFunc("/api/v1/cors-test", corsTest)

	upload := NewUploadHandler(proc, logger)
	subs := NewSubmissionsHandler(store, exportSvc, logger)

	r.Group(func(r chi.Router) {
		r.Use(RequireSecret(cfg.Relay.Secret, logger))
		r.Method(http.MethodPost, "/api/v1/w2/upload", upload)
		r.Get("/api/v1/submissions", subs.List)
		r.Get("/api/v1/submissions/export", subs.Export)
	})

	return r
}

// corsTest returns basic request diagnostics for debugging cross-origin
// setups.
func corsTest(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = "No origin header"
	}
	ua := r.UserAgent()
	if ua == "" {
		ua = "No user agent"
	}
	headers := make(map[string]string, len(r.Header))
	for k := range r.Header {
		if k == relaySecretHeaderCanonical {
			headers[k] = "[redacted]"
			continue
		}
		headers[k] = r.Header.Get(k)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "CORS is working!",
		"method":     r.Method,
		"origin":     origin,
		"user_agent": ua,
		"headers":    headers,
	})
}
