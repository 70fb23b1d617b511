// Package export renders documents to PDF through headless Chrome.
package export

import (
	"errors"

	"github.com/r-alnz/Docurate-sub000/internal/pagedoc"
)

// Request describes one PDF export.
type Request struct {
	Title          string
	Content        string // page-delimited HTML
	PaperSize      pagedoc.PaperSize
	Margins        pagedoc.Margins
	HeaderImageURL string
	FooterImageURL string
}

// Result contains the export output.
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

// ErrPDFDependencyMissing indicates the Chromium binary is unavailable.
var ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
