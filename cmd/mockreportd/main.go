// mockreportd imitates the third-party reporting service: it checks the
// shared secret, accepts a data submission and a file submission, and issues
// random correlation identifiers.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/w2-reporter/internal/relay"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}
	secret := os.Getenv("API_SECRET")
	if secret == "" {
		logger.Error("API_SECRET env var is required")
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/mock/report", mockReport(secret, logger))
	r.Post("/mock/upload", mockUpload(secret, logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: ":" + port, Handler: r}
	go func() {
		logger.Info("mock reporting service serving", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	_ = srv.Shutdown(context.Background())
}

func checkSecret(w http.ResponseWriter, r *http.Request, secret string, logger *slog.Logger) bool {
	got := r.Header.Get(relay.SecretHeader)
	if got == "" {
		logger.Warn("mock api called without secret key", "path", r.URL.Path)
		respond(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized: Missing secret key."})
		return false
	}
	if got != secret {
		logger.Warn("mock api called with invalid secret key", "path", r.URL.Path)
		respond(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized: Invalid secret key."})
		return false
	}
	return true
}

// mockReport receives W-2 data and returns a unique id.
func mockReport(secret string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !checkSecret(w, r, secret, logger) {
			return
		}

		var data map[string]any
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil || len(data) == 0 {
			logger.Warn("mock report called with empty request data")
			respond(w, http.StatusBadRequest, map[string]string{"error": "Request data is required."})
			return
		}

		keys := make([]string, 0, len(data))
		for k := range data {
			keys = append(keys, k)
		}
		id := uuid.New().String()
		logger.Info("mock report processed", "keys", keys, "id", id)
		respond(w, http.StatusOK, map[string]string{"id": id})
	}
}

// mockUpload receives a unique id and a file and returns a unique file id.
func mockUpload(secret string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !checkSecret(w, r, secret, logger) {
			return
		}

		uniqueID := r.FormValue("unique_id")
		if uniqueID == "" {
			logger.Warn("mock upload called without unique_id")
			respond(w, http.StatusBadRequest, map[string]string{"error": "unique_id is required."})
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			logger.Warn("mock upload called without file")
			respond(w, http.StatusBadRequest, map[string]string{"error": "file is required."})
			return
		}
		defer file.Close()

		if header.Size == 0 {
			logger.Warn("mock upload received empty file", "filename", header.Filename)
			respond(w, http.StatusBadRequest, map[string]string{"error": "Uploaded file is empty."})
			return
		}

		fileID := uuid.New().String()
		logger.Info("mock upload processed",
			"filename", header.Filename, "bytes", header.Size,
			"unique_id", uniqueID, "file_id", fileID,
		)
		respond(w, http.StatusOK, map[string]string{"file_id": fileID})
	}
}

func respond(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
