package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/joseph-ayodele/w2-reporter/internal/common"
)

func testClient(url string, timeout time.Duration) *Client {
	return NewClient(common.RelayConfig{
		ReportURL: url + "/mock/report",
		UploadURL: url + "/mock/upload",
		Secret:    "test-secret",
		Timeout:   timeout,
	}, nil)
}

func TestReportDataSuccess(t *testing.T) {
	var gotSecret, gotContentType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSecret = r.Header.Get(SecretHeader)
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "report-123"})
	}))
	defer srv.Close()

	c := testClient(srv.URL, time.Second)
	id, err := c.ReportData(context.Background(), []byte(`{"ein":"12-3456789"}`))
	if err != nil {
		t.Fatalf("ReportData: %v", err)
	}
	if id != "report-123" {
		t.Errorf("report id = %q", id)
	}
	if gotSecret != "test-secret" {
		t.Errorf("secret header = %q", gotSecret)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %q", gotContentType)
	}
	if !strings.Contains(string(gotBody), "12-3456789") {
		t.Errorf("payload not forwarded: %s", gotBody)
	}
}

func TestReportDataStatusClassification(t *testing.T) {
	tests := []struct {
		status int
		want   Classification
	}{
		{http.StatusUnauthorized, ClassAuthRejected},
		{http.StatusBadRequest, ClassPayloadRejected},
		{http.StatusInternalServerError, ClassServerFailure},
		{http.StatusBadGateway, ClassServerFailure},
		{http.StatusTeapot, ClassUnexpected},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tt.status)
			_, _ = w.Write([]byte("upstream says no"))
		}))
		c := testClient(srv.URL, time.Second)
		_, err := c.ReportData(context.Background(), []byte(`{}`))
		srv.Close()

		var rerr *Error
		if !errors.As(err, &rerr) {
			t.Fatalf("status %d: expected *Error, got %v", tt.status, err)
		}
		if rerr.Class != tt.want {
			t.Errorf("status %d: class = %s, want %s", tt.status, rerr.Class, tt.want)
		}
		if rerr.Op != "data reporting" {
			t.Errorf("status %d: op = %q", tt.status, rerr.Op)
		}
		if tt.want == ClassUnexpected && !strings.Contains(rerr.Body, "upstream says no") {
			t.Errorf("unexpected-response error should retain raw body, got %q", rerr.Body)
		}
	}
}

func TestReportDataMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"unrelated": "x"})
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, time.Second).ReportData(context.Background(), []byte(`{}`))
	var rerr *Error
	if !errors.As(err, &rerr) || rerr.Class != ClassUnexpected {
		t.Fatalf("expected unexpected-response, got %v", err)
	}
}

func TestReportDataUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close() // nothing listens any more

	_, err := testClient(url, time.Second).ReportData(context.Background(), []byte(`{}`))
	var rerr *Error
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if rerr.Class != ClassUnreachable {
		t.Errorf("class = %s, want %s", rerr.Class, ClassUnreachable)
	}
}

func TestReportDataTruncatedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Promise a large body, send a fragment, drop the connection.
		w.Header().Set("Content-Length", "4096")
		_, _ = w.Write([]byte(`{"id":"rep`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, time.Second).ReportData(context.Background(), []byte(`{}`))
	var rerr *Error
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if rerr.Class != ClassNetwork {
		t.Errorf("class = %s, want %s", rerr.Class, ClassNetwork)
	}
}

func TestReportDataTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-block
	}))
	defer func() {
		close(block)
		srv.Close()
	}()

	_, err := testClient(srv.URL, 50*time.Millisecond).ReportData(context.Background(), []byte(`{}`))
	var rerr *Error
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if rerr.Class != ClassTimeout {
		t.Errorf("class = %s, want %s", rerr.Class, ClassTimeout)
	}
}

func TestUploadFileSuccess(t *testing.T) {
	var gotUniqueID, gotFilename, gotFile string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUniqueID = r.FormValue("unique_id")
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		gotFilename = hdr.Filename
		b, _ := io.ReadAll(f)
		gotFile = string(b)
		_ = json.NewEncoder(w).Encode(map[string]string{"file_id": "file-456"})
	}))
	defer srv.Close()

	c := testClient(srv.URL, time.Second)
	id, err := c.UploadFile(context.Background(), strings.NewReader("%PDF-1.4 fake"), "w2.pdf", "report-123")
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	if id != "file-456" {
		t.Errorf("file id = %q", id)
	}
	if gotUniqueID != "report-123" {
		t.Errorf("unique_id = %q", gotUniqueID)
	}
	if gotFilename != "w2.pdf" {
		t.Errorf("filename = %q", gotFilename)
	}
	if gotFile != "%PDF-1.4 fake" {
		t.Errorf("file content = %q", gotFile)
	}
}

func TestUploadFileRequiresReportID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("no request should be issued without a report id")
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, time.Second).UploadFile(context.Background(), strings.NewReader("x"), "w2.pdf", "")
	if err == nil {
		t.Fatal("expected error")
	}
}
