package ingest

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/w2-reporter/constants"
	"github.com/joseph-ayodele/w2-reporter/internal/common"
)

// Document is the processed upload, held either fully in memory or spilled to
// a uniquely named temp file. It is read-only: Reader hands out the content
// rewound to offset 0 each time, so extraction and the later re-upload can
// both read it from the start.
type Document struct {
	strategy constants.Strategy
	size     int64
	buf      []byte   // in_memory only
	path     string   // spilled only
	file     *os.File // spilled only

	closeOnce sync.Once
	closeErr  error
	logger    *slog.Logger
}

func (d *Document) Strategy() constants.Strategy { return d.strategy }
func (d *Document) Size() int64                  { return d.size }

// Path returns the spill location, or "" for in-memory documents.
func (d *Document) Path() string { return d.path }

// Reader returns the document content positioned at offset 0.
func (d *Document) Reader() (io.ReadSeeker, error) {
	if d.strategy == constants.StrategyInMemory {
		return bytes.NewReader(d.buf), nil
	}
	if _, err := d.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind spill: %w", err)
	}
	return d.file, nil
}

// Close releases the spill exactly once. Safe on every exit path; in-memory
// documents close to a no-op.
func (d *Document) Close() error {
	d.closeOnce.Do(func() {
		if d.strategy != constants.StrategySpilled {
			return
		}
		cerr := d.file.Close()
		if err := os.Remove(d.path); err != nil && !os.IsNotExist(err) {
			d.logger.Warn("ingest.spool.cleanup_failed", "path", d.path, "error", err)
			d.closeErr = err
			return
		}
		d.logger.Debug("ingest.spool.released", "path", d.path)
		d.closeErr = cerr
	})
	return d.closeErr
}

// Spooler chooses the ingress strategy from declared size and owns the temp
// storage lifecycle for spilled uploads.
type Spooler struct {
	cfg    common.UploadConfig
	logger *slog.Logger
}

func NewSpooler(cfg common.UploadConfig, logger *slog.Logger) *Spooler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Spooler{cfg: cfg, logger: logger}
}

// Spool reads the upload from r's current position. Sizes up to and including
// MaxMemoryBytes stay in memory; anything larger is copied chunk by chunk to
// a temp file. The caller must Close the returned document on every path.
func (s *Spooler) Spool(r io.Reader, size int64) (*Document, error) {
	if size <= s.cfg.MaxMemoryBytes {
		buf, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("buffer upload: %w", err)
		}
		s.logger.Info("ingest.spool.in_memory", "bytes", len(buf))
		return &Document{
			strategy: constants.StrategyInMemory,
			size:     int64(len(buf)),
			buf:      buf,
			logger:   s.logger,
		}, nil
	}
	return s.spill(r, size)
}

func (s *Spooler) spill(r io.Reader, size int64) (*Document, error) {
	dir := s.cfg.SpoolDir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, fmt.Sprintf("w2-%s.pdf", uuid.New().String()))
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create spill: %w", err)
	}

	written, err := s.copyChunks(f, r)
	if err != nil {
		// A half-written spill must not outlive the failure.
		f.Close()
		if rmErr := os.Remove(path); rmErr != nil {
			s.logger.Warn("ingest.spool.partial_cleanup_failed", "path", path, "error", rmErr)
		}
		return nil, fmt.Errorf("spill upload: %w", err)
	}

	s.logger.Info("ingest.spool.spilled", "path", path, "declared_bytes", size, "written_bytes", written)
	return &Document{
		strategy: constants.StrategySpilled,
		size:     written,
		path:     path,
		file:     f,
		logger:   s.logger,
	}, nil
}

func (s *Spooler) copyChunks(dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, s.cfg.ChunkBytes)
	var written int64
	var lastMB int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return written, werr
			}
			written += int64(n)
			if mb := written / (1 << 20); mb > lastMB {
				lastMB = mb
				s.logger.Debug("ingest.spool.progress", "mb", mb)
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}
