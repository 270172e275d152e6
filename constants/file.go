package constants

import "strings"

// PDFMediaType is the only declared content type accepted for uploads.
const PDFMediaType = "application/pdf"

// AllowedExtensions holds the allowed file extensions for W-2 uploads.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// The four mandatory W-2 field keys. They double as JSON keys in the report
// payload and as column hints in the export.
const (
	FieldEIN     = "ein"
	FieldSSN     = "ssn"
	FieldWages   = "wages"
	FieldTaxHeld = "federal_tax_withheld"
)

// RequiredFields lists the mandatory keys in report order.
var RequiredFields = []string{FieldEIN, FieldSSN, FieldWages, FieldTaxHeld}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
