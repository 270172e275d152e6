package ingest

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/joseph-ayodele/w2-reporter/constants"
	"github.com/joseph-ayodele/w2-reporter/internal/common"
)

func testCfg(dir string, ceiling int64) common.UploadConfig {
	return common.UploadConfig{
		MaxMemoryBytes: ceiling,
		ChunkBytes:     4,
		SpoolDir:       dir,
		ExtractWorkers: 1,
	}
}

func TestValidateUpload(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		contentType string
		size        int64
		wantErr     bool
	}{
		{"valid", "w2.pdf", "application/pdf", 100, false},
		{"valid uppercase ext", "W2.PDF", "application/pdf", 100, false},
		{"no declared content type", "w2.pdf", "", 100, false},
		{"wrong extension", "w2.txt", "application/pdf", 100, true},
		{"no extension", "w2", "application/pdf", 100, true},
		{"wrong content type", "w2.pdf", "text/plain", 100, true},
		{"empty file", "w2.pdf", "application/pdf", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUpload(tt.filename, tt.contentType, tt.size)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateUpload(%q, %q, %d) = %v, wantErr %t", tt.filename, tt.contentType, tt.size, err, tt.wantErr)
			}
			if err != nil && common.HTTPStatus(err) != 400 {
				t.Fatalf("expected client-input status 400, got %d", common.HTTPStatus(err))
			}
		})
	}
}

func TestValidateUploadDistinctMessages(t *testing.T) {
	extErr := ValidateUpload("w2.txt", "application/pdf", 1)
	typeErr := ValidateUpload("w2.pdf", "text/plain", 1)
	sizeErr := ValidateUpload("w2.pdf", "application/pdf", 0)

	msgs := map[string]bool{}
	for _, err := range []error{extErr, typeErr, sizeErr} {
		if err == nil {
			t.Fatal("expected rejection")
		}
		msgs[common.PublicMessage(err)] = true
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 distinct rejection messages, got %v", msgs)
	}
}

func TestSpoolInMemoryAtBoundary(t *testing.T) {
	dir := t.TempDir()
	s := NewSpooler(testCfg(dir, 16), nil)

	// Exactly at the ceiling stays in memory.
	content := bytes.Repeat([]byte("a"), 16)
	doc, err := s.Spool(bytes.NewReader(content), 16)
	if err != nil {
		t.Fatal(err)
	}
	defer doc.Close()

	if doc.Strategy() != constants.StrategyInMemory {
		t.Fatalf("size == ceiling should stay in memory, got %s", doc.Strategy())
	}
	assertContent(t, doc, content)
	assertEmptyDir(t, dir)
}

func TestSpoolSpillsAboveCeiling(t *testing.T) {
	dir := t.TempDir()
	s := NewSpooler(testCfg(dir, 16), nil)

	content := bytes.Repeat([]byte("b"), 17)
	doc, err := s.Spool(bytes.NewReader(content), 17)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Strategy() != constants.StrategySpilled {
		t.Fatalf("size > ceiling should spill, got %s", doc.Strategy())
	}
	if doc.Path() == "" {
		t.Fatal("spilled document should expose its path")
	}
	if _, err := os.Stat(doc.Path()); err != nil {
		t.Fatalf("spill file should exist while open: %v", err)
	}

	// Re-readable from the start, twice.
	assertContent(t, doc, content)
	assertContent(t, doc, content)

	if err := doc.Close(); err != nil {
		t.Fatal(err)
	}
	assertEmptyDir(t, dir)

	// Close is idempotent.
	if err := doc.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

// faultyReader fails once failAfter bytes have been served.
type faultyReader struct {
	data      []byte
	failAfter int
	served    int
}

func (r *faultyReader) Read(p []byte) (int, error) {
	if r.served >= r.failAfter {
		return 0, errors.New("connection reset mid-upload")
	}
	n := copy(p, r.data[r.served:])
	if r.served+n > r.failAfter {
		n = r.failAfter - r.served
	}
	r.served += n
	return n, nil
}

func TestSpoolRemovesPartialSpillOnError(t *testing.T) {
	dir := t.TempDir()
	s := NewSpooler(testCfg(dir, 16), nil)

	// Declared size forces a spill; the source dies after 16 of 64 bytes.
	src := &faultyReader{data: bytes.Repeat([]byte("c"), 64), failAfter: 16}
	doc, err := s.Spool(src, 64)
	if err == nil {
		doc.Close()
		t.Fatal("expected spool failure from the dying reader")
	}
	assertEmptyDir(t, dir)
}

func TestSpoolReadsFromCurrentPosition(t *testing.T) {
	dir := t.TempDir()
	s := NewSpooler(testCfg(dir, 4), nil)

	src := bytes.NewReader([]byte("prefix-payload"))
	// A prior reader consumed some bytes; the caller rewinds before spooling.
	if _, err := io.CopyN(io.Discard, src, 7); err != nil {
		t.Fatal(err)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		t.Fatal(err)
	}

	doc, err := s.Spool(src, int64(src.Len()))
	if err != nil {
		t.Fatal(err)
	}
	defer doc.Close()
	assertContent(t, doc, []byte("prefix-payload"))
}

func assertContent(t *testing.T, doc *Document, want []byte) {
	t.Helper()
	r, err := doc.Reader()
	if err != nil {
		t.Fatal(err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("content mismatch: got %d bytes, want %d", len(got), len(want))
	}
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		t.Fatalf("unexpected leftover file: %s", filepath.Join(dir, e.Name()))
	}
}
