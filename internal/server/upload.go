package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/joseph-ayodele/w2-reporter/internal/common"
	"github.com/joseph-ayodele/w2-reporter/internal/pipeline"
)

// maxMultipartMemory is net/http's own in-memory threshold while parsing the
// form; the pipeline applies its own spill strategy after that.
const maxMultipartMemory = 32 << 20

// UploadHandler drives the W-2 pipeline for one multipart upload.
type UploadHandler struct {
	proc   *pipeline.Processor
	logger *slog.Logger
}

func NewUploadHandler(proc *pipeline.Processor, logger *slog.Logger) *UploadHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadHandler{proc: proc, logger: logger}
}

func (h *UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := common.RequestIDFromContext(r.Context())
	h.logger.Info("server.upload.received", "req_id", reqID, "remote", r.RemoteAddr)

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		h.logger.Warn("server.upload.bad_form", "req_id", reqID, "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "request must be multipart/form-data"})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.logger.Warn("server.upload.no_file", "req_id", reqID, "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file field is required"})
		return
	}
	defer file.Close()

	result, err := h.proc.Process(r.Context(), pipeline.Upload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     file,
	})
	if err != nil {
		writeError(w, h.logger, reqID, err)
		return
	}

	h.logger.Info("server.upload.completed", "req_id", reqID, "filename", header.Filename)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":          "W-2 processed and reported successfully",
		"extracted_fields": result.Fields,
		"data_id":          result.ReportID,
		"file_id":          result.FileID,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError translates a pipeline failure into the caller-facing error
// payload. Stage and classification drive the status; internals never leak.
func writeError(w http.ResponseWriter, logger *slog.Logger, reqID string, err error) {
	status := common.HTTPStatus(err)
	msg := common.PublicMessage(err)

	var stageErr *pipeline.StageError
	stage := ""
	if errors.As(err, &stageErr) {
		stage = string(stageErr.Stage)
	}
	logger.Error("server.upload.failed", "req_id", reqID, "stage", stage, "status", status, "error", err)
	writeJSON(w, status, map[string]string{"error": msg})
}
