package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestParseContentStream(t *testing.T) {
	stream := []byte("BT\n/F1 12 Tf\n72 720 Td\n(EIN 12-3456789) Tj\n0 -14 Td\n(Box 1 $50,000.00) Tj\nET")
	got := parseContentStream(stream)
	if !strings.Contains(got, "EIN 12-3456789") {
		t.Errorf("missing Tj text: %q", got)
	}
	if !strings.Contains(got, "Box 1 $50,000.00") {
		t.Errorf("missing second Tj text: %q", got)
	}
}

func TestParseContentStreamEscapedParens(t *testing.T) {
	stream := []byte(`(Employer: Acme \(Corp\)) Tj`)
	got := parseContentStream(stream)
	if !strings.Contains(got, "Employer: Acme (Corp)") {
		t.Errorf("escaped parens lost: %q", got)
	}
}

func TestParseContentStreamTJArray(t *testing.T) {
	stream := []byte("[(SSN ) -100 (123-45-6789)] TJ")
	got := parseContentStream(stream)
	if !strings.Contains(got, "SSN") || !strings.Contains(got, "123-45-6789") {
		t.Errorf("TJ array text lost: %q", got)
	}
}

func TestDecodePDFString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`plain`, "plain"},
		{`a\(b\)c`, "a(b)c"},
		{`tab\there`, "tab\there"},
		{`oct\040space`, "oct space"},
		{`back\\slash`, `back\slash`},
	}
	for _, tt := range tests {
		if got := decodePDFString([]byte(tt.in)); got != tt.want {
			t.Errorf("decodePDFString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeText(t *testing.T) {
	got := normalizeText("  EIN\n\n12-3456789\t\tdone  ")
	if got != "EIN 12-3456789 done" {
		t.Errorf("normalizeText = %q", got)
	}
}

func TestTextFromPDF(t *testing.T) {
	raw := buildTextPDF("EIN 12-3456789 SSN 123-45-6789 Box 1 $50,000.00 Box 2 $5,000.00")
	text, pages, err := Text(context.Background(), bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if pages != 1 {
		t.Errorf("pages = %d, want 1", pages)
	}
	if !strings.Contains(text, "12-3456789") {
		t.Errorf("extracted text missing EIN value: %q", text)
	}
}

func TestExtractorEndToEnd(t *testing.T) {
	raw := buildTextPDF("EIN 12-3456789 SSN 123-45-6789 Box 1 $50,000.00 Box 2 $5,000.00")
	f, err := NewExtractor(nil).Extract(context.Background(), bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if f.EIN != "12-3456789" || f.SSN != "123-45-6789" {
		t.Errorf("identifiers = %q / %q", f.EIN, f.SSN)
	}
	if f.Wages != 50000.00 || f.FederalTaxWithheld != 5000.00 {
		t.Errorf("amounts = %v / %v", f.Wages, f.FederalTaxWithheld)
	}
}

func TestTextUnreadable(t *testing.T) {
	_, _, err := Text(context.Background(), bytes.NewReader([]byte("this is not a pdf at all")))
	if !errors.Is(err, ErrUnreadable) {
		t.Fatalf("expected ErrUnreadable, got %v", err)
	}
}

func TestValidateReportPayload(t *testing.T) {
	ok := Fields{EIN: "12-3456789", SSN: "123-45-6789", Wages: 50000, FederalTaxWithheld: 5000}
	if _, err := ValidateReportPayload(ok); err != nil {
		t.Fatalf("valid payload rejected: %v", err)
	}

	bad := ok
	bad.EIN = "not-an-ein"
	if _, err := ValidateReportPayload(bad); err == nil {
		t.Fatal("malformed ein accepted")
	}
}

// --- PDF test fixture ---

// buildTextPDF creates a valid single-page PDF with proper xref offsets.
func buildTextPDF(text string) []byte {
	escaped := strings.ReplaceAll(text, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, "(", `\(`)
	escaped = strings.ReplaceAll(escaped, ")", `\)`)

	stream := "BT\n/F1 12 Tf\n72 720 Td\n(" + escaped + ") Tj\nET"

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")

	offsets := make([]int, 6)

	offsets[1] = b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	offsets[2] = b.Len()
	b.WriteString("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")

	offsets[3] = b.Len()
	b.WriteString("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>\nendobj\n")

	offsets[4] = b.Len()
	fmt.Fprintf(&b, "4 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", len(stream), stream)

	offsets[5] = b.Len()
	b.WriteString("5 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")

	xrefOffset := b.Len()
	b.WriteString("xref\n0 6\n")
	b.WriteString("0000000000 65535 f \n")
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&b, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&b, "trailer\n<< /Size 6 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", xrefOffset)

	return []byte(b.String())
}
