package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/joseph-ayodele/w2-reporter/internal/export"
	"github.com/joseph-ayodele/w2-reporter/internal/repository"
)

// SubmissionsHandler serves the audit-log history and its XLSX export.
type SubmissionsHandler struct {
	store  *repository.SubmissionStore
	export *export.Service
	logger *slog.Logger
}

func NewSubmissionsHandler(store *repository.SubmissionStore, exportSvc *export.Service, logger *slog.Logger) *SubmissionsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubmissionsHandler{store: store, export: exportSvc, logger: logger}
}

func (h *SubmissionsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	subs, err := h.store.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("server.submissions.list_failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	type row struct {
		ID           string `json:"id"`
		Filename     string `json:"filename"`
		SizeBytes    int64  `json:"size_bytes"`
		Strategy     string `json:"strategy"`
		Stage        string `json:"stage"`
		ReportID     string `json:"report_id,omitempty"`
		FileID       string `json:"file_id,omitempty"`
		ErrorClass   string `json:"error_class,omitempty"`
		ErrorMessage string `json:"error_message,omitempty"`
		DurationMS   int64  `json:"duration_ms"`
		CreatedAt    string `json:"created_at"`
	}
	out := make([]row, 0, len(subs))
	for _, s := range subs {
		out = append(out, row{
			ID:           s.ID,
			Filename:     s.Filename,
			SizeBytes:    s.SizeBytes,
			Strategy:     s.Strategy,
			Stage:        s.Stage,
			ReportID:     s.ReportID,
			FileID:       s.FileID,
			ErrorClass:   s.ErrorClass,
			ErrorMessage: s.ErrorMessage,
			DurationMS:   s.DurationMS,
			CreatedAt:    s.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"submissions": out})
}

func (h *SubmissionsHandler) Export(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	data, err := h.export.SubmissionsXLSX(r.Context(), limit)
	if err != nil {
		h.logger.Error("server.submissions.export_failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="submissions.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
