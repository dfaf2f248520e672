package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"studynotes/api/internal/access"
	"studynotes/api/internal/document"
	"studynotes/api/internal/export"
	"studynotes/api/internal/search"
)

const maxImportLength = 100_000

type ImportTextInput struct {
	Text     string `json:"text"`
	FileName string `json:"fileName"`
}

// notePlainText loads a readable note's content as plain text. A malformed
// blob yields an empty string, which the transformer reports as not enough
// content.
func (s *Service) notePlainText(ctx context.Context, session Session, noteID string) (string, error) {
	if s.ai == nil {
		return "", errAIUnavailable
	}
	note, err := s.loadNote(ctx, session, noteID, access.ActionRead)
	if err != nil {
		return "", err
	}
	doc, _, err := s.loadDocument(ctx, note.ContentKey)
	if err != nil {
		return "", err
	}
	return document.PlainText(doc), nil
}

func (s *Service) SummarizeNote(ctx context.Context, session Session, noteID string) (map[string]any, error) {
	text, err := s.notePlainText(ctx, session, noteID)
	if err != nil {
		return nil, err
	}
	summary, err := s.ai.Summarize(ctx, text)
	if err != nil {
		return nil, err
	}
	return map[string]any{"noteId": noteID, "summary": summary.Summary}, nil
}

func (s *Service) QuizNote(ctx context.Context, session Session, noteID string) (map[string]any, error) {
	text, err := s.notePlainText(ctx, session, noteID)
	if err != nil {
		return nil, err
	}
	questions, err := s.ai.GenerateQuiz(ctx, text)
	if err != nil {
		return nil, err
	}
	return map[string]any{"noteId": noteID, "questions": questions}, nil
}

func (s *Service) MindmapNote(ctx context.Context, session Session, noteID string) (map[string]any, error) {
	text, err := s.notePlainText(ctx, session, noteID)
	if err != nil {
		return nil, err
	}
	nodes, err := s.ai.GenerateMindmap(ctx, text)
	if err != nil {
		return nil, err
	}
	return map[string]any{"noteId": noteID, "nodes": nodes}, nil
}

// ImportText turns raw extracted text into a document ready to load into an
// editor. Nothing is persisted.
func (s *Service) ImportText(ctx context.Context, input ImportTextInput) (map[string]any, error) {
	if s.ai == nil {
		return nil, errAIUnavailable
	}
	if len(input.Text) > maxImportLength {
		return nil, validationError(fmt.Sprintf("text must be at most %d bytes", maxImportLength))
	}
	doc, err := s.ai.FormatText(ctx, input.Text, strings.TrimSpace(input.FileName))
	if err != nil {
		return nil, err
	}
	data, err := document.Marshal(doc)
	if err != nil {
		return nil, err
	}
	stats := document.StatsOf(doc)
	return map[string]any{
		"content":        json.RawMessage(data),
		"html":           document.Markup(doc),
		"wordCount":      stats.Words,
		"characterCount": stats.Characters,
	}, nil
}

func (s *Service) SearchNotes(ctx context.Context, session Session, text, subject string, page Page) (map[string]any, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, validationError("q is required")
	}
	if s.search == nil {
		return map[string]any{"results": []search.Result{}, "total": 0, "query": text}, nil
	}
	groupIDs, err := s.store.ListUserGroupIDs(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	resp := s.search.Search(ctx, search.Query{
		Text:     text,
		UserID:   session.UserID,
		GroupIDs: groupIDs,
		Subject:  strings.TrimSpace(subject),
		Limit:    page.Size,
		Offset:   page.offset(),
	})
	return map[string]any{"results": resp.Results, "total": resp.Total, "query": resp.Query}, nil
}

func (s *Service) ExportNote(ctx context.Context, session Session, noteID string, format export.Format) (*export.Result, error) {
	if s.exporter == nil {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export is not configured", nil)
	}
	note, err := s.loadNote(ctx, session, noteID, access.ActionRead)
	if err != nil {
		return nil, err
	}
	doc, _, err := s.loadDocument(ctx, note.ContentKey)
	if err != nil {
		return nil, err
	}
	return s.exporter.Export(ctx, export.Request{
		Format: format,
		Note: export.Note{
			Title:     note.Title,
			Subject:   note.Subject,
			Tags:      note.Tags,
			Author:    note.UserID,
			UpdatedAt: note.UpdatedAt,
			Content:   doc,
		},
	})
}
