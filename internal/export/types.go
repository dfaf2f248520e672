// Package export renders notes as PDF, DOCX or Markdown files.
package export

import (
	"errors"
	"time"

	"studynotes/api/internal/document"
)

// Format represents the export output format
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
	FormatMarkdown Format = "md"
)

// ParseFormat maps a query value onto a Format.
func ParseFormat(value string) (Format, bool) {
	switch Format(value) {
	case FormatPDF, FormatDOCX, FormatMarkdown:
		return Format(value), true
	case "markdown":
		return FormatMarkdown, true
	default:
		return "", false
	}
}

// Note is the note being exported.
type Note struct {
	Title     string
	Subject   string
	Tags      []string
	Author    string
	UpdatedAt time.Time
	Content   *document.Document
}

// Request contains parameters for an export operation
type Request struct {
	Note   Note
	Format Format
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrUnsupportedFormat is returned for formats other than pdf, docx and md.
	ErrUnsupportedFormat = errors.New("export format unsupported")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrDOCXDependencyMissing indicates DOCX export runtime dependencies are unavailable.
	ErrDOCXDependencyMissing = errors.New("export docx dependency missing")
)
