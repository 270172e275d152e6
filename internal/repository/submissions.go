package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Schema for the submissions audit log. Metadata only — uploaded bytes are
// never persisted here.
const Schema = `
CREATE TABLE IF NOT EXISTS submissions (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	size_bytes INTEGER NOT NULL,
	strategy TEXT NOT NULL,
	stage TEXT NOT NULL,
	report_id TEXT,
	file_id TEXT,
	error_class TEXT,
	error_message TEXT,
	duration_ms INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_submissions_created ON submissions(created_at);
`

// Submission is one row of the audit log.
type Submission struct {
	ID           string
	Filename     string
	SizeBytes    int64
	Strategy     string
	Stage        string
	ReportID     string
	FileID       string
	ErrorClass   string
	ErrorMessage string
	DurationMS   int64
	CreatedAt    time.Time
}

// SubmissionStore persists one audit row per processed upload.
type SubmissionStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSubmissionStore opens (creating directories and schema as needed) the
// SQLite audit log at path.
func OpenSubmissionStore(path string, logger *slog.Logger) (*SubmissionStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create audit dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init audit schema: %w", err)
	}
	return &SubmissionStore{db: db, logger: logger}, nil
}

// Record inserts one audit row. A fresh id is assigned when none is set.
func (s *SubmissionStore) Record(ctx context.Context, sub Submission) error {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO submissions
			(id, filename, size_bytes, strategy, stage, report_id, file_id, error_class, error_message, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.Filename, sub.SizeBytes, sub.Strategy, sub.Stage,
		sub.ReportID, sub.FileID, sub.ErrorClass, sub.ErrorMessage,
		sub.DurationMS, sub.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record submission: %w", err)
	}
	return nil
}

// List returns the most recent rows, newest first.
func (s *SubmissionStore) List(ctx context.Context, limit int) ([]Submission, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filename, size_bytes, strategy, stage, report_id, file_id,
		       error_class, error_message, duration_ms, created_at
		FROM submissions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var out []Submission
	for rows.Next() {
		var sub Submission
		var createdMilli int64
		if err := rows.Scan(
			&sub.ID, &sub.Filename, &sub.SizeBytes, &sub.Strategy, &sub.Stage,
			&sub.ReportID, &sub.FileID, &sub.ErrorClass, &sub.ErrorMessage,
			&sub.DurationMS, &createdMilli,
		); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		sub.CreatedAt = time.UnixMilli(createdMilli).UTC()
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *SubmissionStore) Close() error {
	return s.db.Close()
}
