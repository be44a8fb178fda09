// Package filetype confirms an uploaded payload actually sniffs as a DOCX
// package before the loader ever touches it, turning a garbage upload into
// a validation error rather than a zip/xml parse panic further down the
// pipeline.
package filetype

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

const docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Detector sniffs magic bytes to confirm a payload is a DOCX package.
type Detector struct{}

func New() *Detector { return &Detector{} }

// DetectDOCX inspects data's magic bytes (and, if the container is a bare
// ZIP, the supplied filename's extension) and reports whether it is a
// DOCX package. It never trusts the filename alone.
func (d *Detector) DetectDOCX(data []byte, filename string) (bool, string, error) {
	mtype := mimetype.Detect(data)
	mimeType := mtype.String()

	log.Debug().Str("mime", mimeType).Str("file", filename).Msg("sniffed upload mime type")

	if mimeType == docxMIME {
		return true, mimeType, nil
	}

	// Plain ZIP detection (many Office formats share the ZIP container and
	// mimetype's own OOXML sniffing can miss unusual packaging). Fall back
	// to the filename extension only to disambiguate which OOXML format a
	// bare ZIP is, never to override a confident non-ZIP detection.
	if mimeType == "application/zip" || strings.Contains(mimeType, "application/x-zip") {
		if strings.ToLower(filepath.Ext(filename)) == ".docx" {
			return true, docxMIME, nil
		}
		return false, mimeType, fmt.Errorf("filetype: zip package without a .docx extension")
	}

	return false, mimeType, fmt.Errorf("filetype: unsupported upload, sniffed as %s", mimeType)
}
