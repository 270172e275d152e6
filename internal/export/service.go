package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/w2-reporter/internal/repository"
)

// Service is a tiny façade over the submissions store that produces XLSX
// bytes for exports.
type Service struct {
	store  *repository.SubmissionStore
	logger *slog.Logger
}

func NewService(store *repository.SubmissionStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// SubmissionsXLSX returns an XLSX workbook (as bytes) of the most recent
// audit rows, newest first.
func (s *Service) SubmissionsXLSX(ctx context.Context, limit int) ([]byte, error) {
	start := time.Now()

	subs, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Submissions"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Submitted At",
		"Filename",
		"Size (bytes)",
		"Strategy",
		"Stage",
		"Report ID",
		"File ID",
		"Error Class",
		"Error Message",
		"Duration (ms)",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, sub := range subs {
		values := []any{
			sub.CreatedAt.Format(time.RFC3339),
			sub.Filename,
			sub.SizeBytes,
			sub.Strategy,
			sub.Stage,
			sub.ReportID,
			sub.FileID,
			sub.ErrorClass,
			sub.ErrorMessage,
			sub.DurationMS,
		}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		row++
	}

	// Drop the default sheet if it isn't ours.
	if idx, _ := f.GetSheetIndex("Sheet1"); idx != -1 && sheet != "Sheet1" {
		_ = f.DeleteSheet("Sheet1")
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("export.submissions.ok",
		"rows", len(subs),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
