package extract

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/w2-reporter/constants"
)

// Fields holds the four mandatory W-2 values. All four are present or
// extraction failed as a whole; partial results are never returned.
type Fields struct {
	EIN                string  `json:"ein"`
	SSN                string  `json:"ssn"`
	Wages              float64 `json:"wages"`
	FederalTaxWithheld float64 `json:"federal_tax_withheld"`
}

// MissingFieldsError names exactly which mandatory keys could not be located.
type MissingFieldsError struct {
	Missing []string
}

func (e *MissingFieldsError) Error() string {
	return "missing required fields in PDF: " + strings.Join(e.Missing, ", ")
}

// Label/value patterns: a small set of label synonyms, a lazy bounded run of
// arbitrary characters, then a value of a specific shape. First match in
// document order wins; no checksum validation beyond textual shape.
var (
	reEIN   = regexp.MustCompile(`(?i)(?:EIN|Employer.{0,20}ID|Federal.{0,20}ID).{0,20}?(\d{2}-\d{7})`)
	reSSN   = regexp.MustCompile(`(?i)(?:SSN|Social.{0,20}Security|Employee.{0,20}SSN).{0,20}?(\d{3}-\d{2}-\d{4})`)
	reWages = regexp.MustCompile(`(?i)(?:Box.{0,5}1|Wages).{0,20}?\$?(\d[\d,]*\.?\d{0,2})`)
	reTax   = regexp.MustCompile(`(?i)(?:Box.{0,5}2|Federal.{0,20}tax|Tax.{0,20}withheld).{0,20}?\$?(\d[\d,]*\.?\d{0,2})`)
)

// ParseFields runs the four independent pattern searches against the full
// concatenated page text.
func ParseFields(text string) (Fields, error) {
	var f Fields
	var missing []string

	if m := reEIN.FindStringSubmatch(text); m != nil {
		f.EIN = m[1]
	} else {
		missing = append(missing, constants.FieldEIN)
	}

	if m := reSSN.FindStringSubmatch(text); m != nil {
		f.SSN = m[1]
	} else {
		missing = append(missing, constants.FieldSSN)
	}

	if v, ok := parseAmount(reWages, text); ok {
		f.Wages = v
	} else {
		missing = append(missing, constants.FieldWages)
	}

	if v, ok := parseAmount(reTax, text); ok {
		f.FederalTaxWithheld = v
	} else {
		missing = append(missing, constants.FieldTaxHeld)
	}

	if len(missing) > 0 {
		return Fields{}, &MissingFieldsError{Missing: missing}
	}
	return f, nil
}

// parseAmount strips thousands separators and parses the decimal value.
func parseAmount(re *regexp.Regexp, text string) (float64, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Extractor mines the field set out of a document stream.
type Extractor struct {
	logger *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Extract pulls page text from the document and locates the four fields.
// Failure to parse the document at all surfaces as ErrUnreadable; a parseable
// document lacking content surfaces as *MissingFieldsError.
func (e *Extractor) Extract(ctx context.Context, rs io.ReadSeeker) (Fields, error) {
	text, pages, err := Text(ctx, rs)
	if err != nil {
		e.logger.Error("extract.text.failed", "error", err)
		return Fields{}, err
	}
	e.logger.Info("extract.text.ok", "pages", pages, "chars", len(text))

	fields, err := ParseFields(text)
	if err != nil {
		e.logger.Error("extract.fields.failed", "error", err)
		return Fields{}, fmt.Errorf("parse fields: %w", err)
	}
	e.logger.Info("extract.fields.ok")
	return fields, nil
}
