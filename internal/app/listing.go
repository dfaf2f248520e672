package app

import (
	"context"
	"strconv"
	"strings"

	"studynotes/api/internal/store"
)

const (
	defaultPageSize = 4
	maxPageSize     = 50
)

// Page is a 1-based page request.
type Page struct {
	Number int
	Size   int
}

// ParsePage reads page and pageSize query values. Missing values use the
// defaults; anything non-numeric or out of range is rejected.
func ParsePage(page, pageSize string) (Page, error) {
	p := Page{Number: 1, Size: defaultPageSize}
	if page = strings.TrimSpace(page); page != "" {
		n, err := strconv.Atoi(page)
		if err != nil {
			return Page{}, errInvalidPagination
		}
		p.Number = n
	}
	if pageSize = strings.TrimSpace(pageSize); pageSize != "" {
		n, err := strconv.Atoi(pageSize)
		if err != nil {
			return Page{}, errInvalidPagination
		}
		p.Size = n
	}
	if p.Number < 1 || p.Size < 1 || p.Size > maxPageSize {
		return Page{}, errInvalidPagination
	}
	return p, nil
}

func (p Page) offset() int { return (p.Number - 1) * p.Size }

// paginated builds the list envelope shared by every note listing.
func paginated(notes []store.Note, total int, page Page) map[string]any {
	data := make([]map[string]any, 0, len(notes))
	for _, note := range notes {
		data = append(data, notePayload(note))
	}
	return envelope(data, total, page)
}

func envelope(data []map[string]any, total int, page Page) map[string]any {
	totalPages := 0
	if total > 0 {
		totalPages = (total + page.Size - 1) / page.Size
	}
	return map[string]any{
		"data":            data,
		"totalCount":      total,
		"currentPage":     page.Number,
		"totalPages":      totalPages,
		"hasNextPage":     page.Number < totalPages,
		"hasPreviousPage": page.Number > 1 && totalPages > 0,
	}
}

func (s *Service) ListPublicNotes(ctx context.Context, searchText string, page Page) (map[string]any, error) {
	notes, total, err := s.store.ListPublicNotes(ctx, searchText, page.Size, page.offset())
	if err != nil {
		return nil, err
	}
	return paginated(notes, total, page), nil
}

func (s *Service) ListMyNotes(ctx context.Context, session Session, searchText string, page Page) (map[string]any, error) {
	notes, total, err := s.store.ListUserNotes(ctx, session.UserID, searchText, page.Size, page.offset())
	if err != nil {
		return nil, err
	}
	return paginated(notes, total, page), nil
}

// ListUserNotes lists another user's notes: everything for the owner, public
// notes for anyone else.
func (s *Service) ListUserNotes(ctx context.Context, session Session, userID, searchText string, page Page) (map[string]any, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, validationError("userId is required")
	}
	if userID == session.UserID {
		return s.ListMyNotes(ctx, session, searchText, page)
	}
	notes, total, err := s.store.ListUserPublicNotes(ctx, userID, searchText, page.Size, page.offset())
	if err != nil {
		return nil, err
	}
	return paginated(notes, total, page), nil
}
