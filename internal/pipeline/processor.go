package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/joseph-ayodele/w2-reporter/constants"
	"github.com/joseph-ayodele/w2-reporter/internal/common"
	"github.com/joseph-ayodele/w2-reporter/internal/extract"
	"github.com/joseph-ayodele/w2-reporter/internal/ingest"
	"github.com/joseph-ayodele/w2-reporter/internal/relay"
	"github.com/joseph-ayodele/w2-reporter/internal/repository"
)

// Upload is the inbound document handed over by the HTTP boundary after the
// secret gate passed.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.ReadSeeker
}

// Result is the success payload: extracted fields plus both correlation
// identifiers.
type Result struct {
	Fields   extract.Fields
	ReportID string
	FileID   string
	Strategy constants.Strategy
}

// StageError tags a failure with the stage that produced it. The wrapped
// cause carries the taxonomy classification.
type StageError struct {
	Stage constants.Stage
	Err   error
}

func (e *StageError) Error() string { return string(e.Stage) + ": " + e.Err.Error() }
func (e *StageError) Unwrap() error { return e.Err }

// FieldExtractor mines the four mandatory fields out of a document stream.
type FieldExtractor interface {
	Extract(ctx context.Context, rs io.ReadSeeker) (extract.Fields, error)
}

// Processor sequences validation, ingestion, extraction and the two-phase
// relay. Stages are strictly sequential per request; extraction is bounded by
// a weighted semaphore so concurrent uploads do not monopolize the process.
type Processor struct {
	spooler   *ingest.Spooler
	extractor FieldExtractor
	relay     *relay.Client
	sem       *semaphore.Weighted
	store     *repository.SubmissionStore // optional
	logger    *slog.Logger
}

func NewProcessor(
	spooler *ingest.Spooler,
	extractor FieldExtractor,
	relayClient *relay.Client,
	workers int64,
	store *repository.SubmissionStore,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if workers <= 0 {
		workers = 4
	}
	return &Processor{
		spooler:   spooler,
		extractor: extractor,
		relay:     relayClient,
		sem:       semaphore.NewWeighted(workers),
		store:     store,
		logger:    logger,
	}
}

// Process runs one upload through the full pipeline. The first failure is
// terminal; no stage is retried. Temporary storage is released on every path.
func (p *Processor) Process(ctx context.Context, up Upload) (*Result, error) {
	start := time.Now()

	audit := repository.Submission{
		Filename:  up.Name,
		SizeBytes: up.Size,
		Stage:     string(constants.StageReceived),
	}
	var failure error
	defer func() {
		audit.DurationMS = time.Since(start).Milliseconds()
		if failure != nil {
			audit.ErrorMessage = common.PublicMessage(failure)
			var rerr *relay.Error
			if errors.As(failure, &rerr) {
				audit.ErrorClass = string(rerr.Class)
			}
		}
		p.record(audit)
	}()

	// Validated
	if err := ingest.ValidateUpload(up.Name, up.ContentType, up.Size); err != nil {
		failure = p.fail(constants.StageValidated, err)
		return nil, failure
	}
	audit.Stage = string(constants.StageValidated)

	// Ingested — spilled uploads are released on every exit path below.
	if _, err := up.Content.Seek(0, io.SeekStart); err != nil {
		failure = p.fail(constants.StageIngested, common.NewAppError("INGEST", "internal server error", errors.Join(common.ErrInternal, err)))
		return nil, failure
	}
	doc, err := p.spooler.Spool(up.Content, up.Size)
	if err != nil {
		failure = p.fail(constants.StageIngested, common.NewAppError("INGEST", "internal server error", errors.Join(common.ErrInternal, err)))
		return nil, failure
	}
	defer func() {
		if cerr := doc.Close(); cerr != nil {
			p.logger.Warn("pipeline.cleanup_failed", "error", cerr)
		}
	}()
	audit.Stage = string(constants.StageIngested)
	audit.Strategy = string(doc.Strategy())

	// Extracted
	fields, err := p.extract(ctx, doc)
	if err != nil {
		failure = p.fail(constants.StageExtracted, err)
		return nil, failure
	}
	audit.Stage = string(constants.StageExtracted)

	// Payload shape is checked locally before anything leaves the process.
	payload, err := extract.ValidateReportPayload(fields)
	if err != nil {
		failure = p.fail(constants.StageExtracted, common.NewAppError("SCHEMA", "internal server error", errors.Join(common.ErrInternal, err)))
		return nil, failure
	}

	// Reported — if this call fails the file submission is never attempted.
	reportID, err := p.relay.ReportData(ctx, payload)
	if err != nil {
		failure = p.fail(constants.StageReported, p.asGateway(err))
		return nil, failure
	}
	audit.Stage = string(constants.StageReported)
	audit.ReportID = reportID

	// Uploaded — re-read the document from the start.
	rs, err := doc.Reader()
	if err != nil {
		failure = p.fail(constants.StageUploaded, common.NewAppError("REREAD", "internal server error", errors.Join(common.ErrInternal, err)))
		return nil, failure
	}
	fileID, err := p.relay.UploadFile(ctx, rs, up.Name, reportID)
	if err != nil {
		failure = p.fail(constants.StageUploaded, p.asGateway(err))
		return nil, failure
	}
	audit.Stage = string(constants.StageCompleted)
	audit.FileID = fileID

	p.logger.Info("pipeline.completed",
		"filename", up.Name,
		"strategy", string(doc.Strategy()),
		"report_id", reportID,
		"file_id", fileID,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return &Result{
		Fields:   fields,
		ReportID: reportID,
		FileID:   fileID,
		Strategy: doc.Strategy(),
	}, nil
}

// extract runs the CPU-bound extraction under the worker semaphore and maps
// its failures into the unprocessable-document taxonomy.
func (p *Processor) extract(ctx context.Context, doc *ingest.Document) (extract.Fields, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return extract.Fields{}, common.NewAppError("EXTRACT", "internal server error", errors.Join(common.ErrInternal, err))
	}
	defer p.sem.Release(1)

	rs, err := doc.Reader()
	if err != nil {
		return extract.Fields{}, common.NewAppError("EXTRACT", "internal server error", errors.Join(common.ErrInternal, err))
	}

	fields, err := p.extractor.Extract(ctx, rs)
	if err != nil {
		var missing *extract.MissingFieldsError
		switch {
		case errors.As(err, &missing):
			return extract.Fields{}, common.UnprocessableError("PDF parsing error: "+missing.Error(), err)
		case errors.Is(err, extract.ErrUnreadable):
			return extract.Fields{}, common.UnprocessableError("Failed to read PDF.", err)
		default:
			return extract.Fields{}, common.NewAppError("EXTRACT", "internal server error", errors.Join(common.ErrInternal, err))
		}
	}
	return fields, nil
}

// asGateway maps a relay failure onto the gateway taxonomy, preserving the
// timeout distinction.
func (p *Processor) asGateway(err error) error {
	var rerr *relay.Error
	if errors.As(err, &rerr) {
		if rerr.Class == relay.ClassTimeout {
			return common.GatewayTimeoutError(rerr.Message(), err)
		}
		return common.GatewayError(rerr.Message(), err)
	}
	return common.GatewayError("Third-party API call failed.", err)
}

func (p *Processor) fail(stage constants.Stage, err error) error {
	p.logger.Error("pipeline.failed", "stage", string(stage), "error", err)
	return &StageError{Stage: stage, Err: err}
}

// record writes the audit row outside the request's cancellation scope so a
// disconnecting client still leaves a trail.
func (p *Processor) record(sub repository.Submission) {
	if p.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.store.Record(ctx, sub); err != nil {
		p.logger.Warn("pipeline.audit_failed", "error", err)
	}
}
