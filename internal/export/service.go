package export

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"studynotes/api/internal/document"
)

// Renderer turns a standalone HTML page into file bytes.
type Renderer func(ctx context.Context, html string) ([]byte, error)

// Service provides note export functionality
type Service struct {
	pdf  Renderer
	docx Renderer
}

// NewService creates an export service backed by headless Chrome and pandoc.
func NewService() *Service {
	return &Service{pdf: renderPDF, docx: renderDOCX}
}

// NewServiceWith overrides the PDF and DOCX renderers.
func NewServiceWith(pdf, docx Renderer) *Service {
	return &Service{pdf: pdf, docx: docx}
}

// Export generates an export in the requested format
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	note := req.Note
	content := note.Content
	if content == nil {
		content = document.New()
	}
	contentHTML := document.Markup(content)
	base := sanitizeFilename(note.Title)

	switch req.Format {
	case FormatMarkdown:
		md, err := noteMarkdown(note, contentHTML)
		if err != nil {
			return nil, err
		}
		return &Result{Data: []byte(md), Filename: base + ".md", MimeType: "text/markdown; charset=utf-8"}, nil
	case FormatPDF, FormatDOCX:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, req.Format)
	}

	page, err := RenderNoteHTML(TemplateData{
		Title:       note.Title,
		Subject:     note.Subject,
		Tags:        note.Tags,
		Author:      note.Author,
		UpdatedAt:   note.UpdatedAt,
		ContentHTML: template.HTML(contentHTML),
	})
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	if req.Format == FormatPDF {
		if s.pdf == nil {
			return nil, ErrPDFDependencyMissing
		}
		data, err := s.pdf(ctx, page)
		if err != nil {
			return nil, err
		}
		return &Result{Data: data, Filename: base + ".pdf", MimeType: "application/pdf"}, nil
	}
	if s.docx == nil {
		return nil, ErrDOCXDependencyMissing
	}
	data, err := s.docx(ctx, page)
	if err != nil {
		return nil, err
	}
	return &Result{
		Data:     data,
		Filename: base + ".docx",
		MimeType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	}, nil
}

func noteMarkdown(note Note, contentHTML string) (string, error) {
	body, err := htmltomarkdown.ConvertString(contentHTML)
	if err != nil {
		return "", fmt.Errorf("convert html to markdown: %w", err)
	}

	var b strings.Builder
	if title := strings.TrimSpace(note.Title); title != "" {
		b.WriteString("# " + title + "\n\n")
	}
	var meta []string
	if note.Subject != "" {
		meta = append(meta, "Subject: "+note.Subject)
	}
	if len(note.Tags) > 0 {
		meta = append(meta, "Tags: "+strings.Join(note.Tags, ", "))
	}
	if len(meta) > 0 {
		b.WriteString("_" + strings.Join(meta, " · ") + "_\n\n")
	}
	if body = strings.TrimSpace(body); body != "" {
		b.WriteString(body + "\n")
	}
	return b.String(), nil
}
