// w2export dumps the submissions audit log to an XLSX workbook.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/joseph-ayodele/w2-reporter/internal/export"
	"github.com/joseph-ayodele/w2-reporter/internal/repository"
)

func main() {
	dbPath := flag.String("db", "db/submissions.db", "path to the submissions database")
	outPath := flag.String("o", "submissions.xlsx", "output workbook path")
	limit := flag.Int("limit", 1000, "maximum rows to export")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	store, err := repository.OpenSubmissionStore(*dbPath, logger)
	if err != nil {
		logger.Error("open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	data, err := export.NewService(store, logger).SubmissionsXLSX(context.Background(), *limit)
	if err != nil {
		logger.Error("export", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*outPath, data, 0o644); err != nil {
		logger.Error("write workbook", "error", err)
		os.Exit(1)
	}
	logger.Info("exported", "path", *outPath)
}
