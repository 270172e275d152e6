package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/w2-reporter/internal/common"
)

// SecretHeader carries the shared secret on both relay calls.
const SecretHeader = "X-API-SECRET"

// Client performs the two-phase relay: data submission, then file submission
// correlated by the identifier the first call returned. It enforces the
// ordering itself — UploadFile requires a report identifier.
type Client struct {
	cfg    common.RelayConfig
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg common.RelayConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// ReportData submits the extracted fields as JSON and returns the report
// identifier issued upstream.
func (c *Client) ReportData(ctx context.Context, payload []byte) (string, error) {
	const op = "data reporting"

	body, status, err := c.send(ctx, op, c.cfg.ReportURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	if rerr := c.checkStatus(op, status, body); rerr != nil {
		return "", rerr
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.ID == "" {
		return "", &Error{Op: op, Class: ClassUnexpected, Status: status, Body: string(body), Cause: err}
	}
	c.logger.Info("relay.report.ok", "report_id", out.ID)
	return out.ID, nil
}

// UploadFile submits the original document bytes as multipart form data,
// tagged with the report identifier, and returns the file identifier.
func (c *Client) UploadFile(ctx context.Context, r io.Reader, filename, reportID string) (string, error) {
	const op = "file upload"

	if reportID == "" {
		return "", fmt.Errorf("upload requires a report identifier")
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		var err error
		defer func() { pw.CloseWithError(err) }()
		if err = mw.WriteField("unique_id", reportID); err != nil {
			return
		}
		var part io.Writer
		if part, err = mw.CreateFormFile("file", filename); err != nil {
			return
		}
		if _, err = io.Copy(part, r); err != nil {
			return
		}
		err = mw.Close()
	}()

	body, status, err := c.send(ctx, op, c.cfg.UploadURL, mw.FormDataContentType(), pr)
	if err != nil {
		return "", err
	}
	if rerr := c.checkStatus(op, status, body); rerr != nil {
		return "", rerr
	}

	var out struct {
		FileID string `json:"file_id"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.FileID == "" {
		return "", &Error{Op: op, Class: ClassUnexpected, Status: status, Body: string(body), Cause: err}
	}
	c.logger.Info("relay.upload.ok", "report_id", reportID, "file_id", out.FileID)
	return out.FileID, nil
}

// send issues one POST and returns the raw body and status. Transport
// failures come back already classified.
func (c *Client) send(ctx context.Context, op, url, contentType string, body io.Reader) ([]byte, int, error) {
	reqID := uuid.New().String()
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(SecretHeader, c.cfg.Secret)

	c.logger.Info("relay.request", "req_id", reqID, "op", op, "url", url)

	resp, err := c.http.Do(req)
	if err != nil {
		cls := classifyTransport(err)
		c.logger.Error("relay.send_error",
			"req_id", reqID, "op", op, "class", string(cls),
			"error", err, "elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, 0, &Error{Op: op, Class: cls, Cause: err}
	}
	defer func(rc io.ReadCloser) {
		if cerr := rc.Close(); cerr != nil {
			c.logger.Warn("relay.response_body_close_error", "req_id", reqID, "error", cerr)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("relay.body_read_error",
			"req_id", reqID, "op", op, "status", resp.StatusCode,
			"error", err, "elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, 0, &Error{Op: op, Class: ClassNetwork, Cause: err}
	}

	c.logger.Info("relay.response",
		"req_id", reqID, "op", op,
		"status", resp.StatusCode, "bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return raw, resp.StatusCode, nil
}

// checkStatus applies the shared response-to-error mapping.
func (c *Client) checkStatus(op string, status int, body []byte) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusUnauthorized:
		c.logger.Error("relay.auth_rejected", "op", op)
		return &Error{Op: op, Class: ClassAuthRejected, Status: status, Body: string(body)}
	case status == http.StatusBadRequest:
		c.logger.Error("relay.payload_rejected", "op", op, "body", string(body))
		return &Error{Op: op, Class: ClassPayloadRejected, Status: status, Body: string(body)}
	case status >= 500:
		c.logger.Error("relay.server_failure", "op", op, "status", status)
		return &Error{Op: op, Class: ClassServerFailure, Status: status, Body: string(body)}
	default:
		c.logger.Error("relay.unexpected_response", "op", op, "status", status, "body", string(body))
		return &Error{Op: op, Class: ClassUnexpected, Status: status, Body: string(body)}
	}
}

// classifyTransport distinguishes unreachable hosts and deadline expiry from
// other transport failures.
func classifyTransport(err error) Classification {
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return ClassTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return ClassUnreachable
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return ClassUnreachable
	}
	return ClassNetwork
}
