package ingest

import (
	"path/filepath"

	"github.com/joseph-ayodele/w2-reporter/constants"
	"github.com/joseph-ayodele/w2-reporter/internal/common"
)

// AllowedExt checks if a file extension is in the allowed set.
func AllowedExt(ext string) bool {
	ext = constants.NormalizeExt(ext)
	_, ok := constants.AllowedExtensions[ext]
	return ok
}

// ValidateUpload runs the three client-input checks on an upload's declared
// metadata. Each violation is its own rejection; the first one found wins.
// No file bytes are read here.
func ValidateUpload(name, contentType string, size int64) error {
	if !AllowedExt(filepath.Ext(name)) {
		return common.InvalidInputError("file extension must be .pdf")
	}
	if contentType != "" && contentType != constants.PDFMediaType {
		return common.InvalidInputErrorf("content type must be %s", constants.PDFMediaType)
	}
	if size == 0 {
		return common.InvalidInputError("uploaded file is empty")
	}
	return nil
}
