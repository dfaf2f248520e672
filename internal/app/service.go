package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"studynotes/api/internal/access"
	"studynotes/api/internal/ai"
	"studynotes/api/internal/auth"
	"studynotes/api/internal/config"
	"studynotes/api/internal/content"
	"studynotes/api/internal/document"
	"studynotes/api/internal/export"
	"studynotes/api/internal/search"
	"studynotes/api/internal/store"
)

type Session struct {
	Token     string
	UserID    string
	UserName  string
	Email     string
	ExpiresAt time.Time
}

type dataStore interface {
	InsertNote(context.Context, store.Note) error
	GetNote(context.Context, string) (store.Note, error)
	SwapNoteContent(context.Context, string, string, store.NoteContent, store.NoteDetails) error
	UpdateNoteDetails(context.Context, string, store.NoteDetails) error
	DeleteNote(context.Context, string) error
	ListPublicNotes(context.Context, string, int, int) ([]store.Note, int, error)
	ListUserNotes(context.Context, string, string, int, int) ([]store.Note, int, error)
	ListUserPublicNotes(context.Context, string, string, int, int) ([]store.Note, int, error)
	ListGroupNotes(context.Context, string, int, int) ([]store.Note, int, error)
	EnsureSubject(context.Context, string) (store.Subject, error)
	InsertGroup(context.Context, store.Group) error
	GetGroup(context.Context, string) (store.Group, error)
	AddGroupMember(context.Context, string, string) error
	IsGroupMember(context.Context, string, string) (bool, error)
	ListUserGroupIDs(context.Context, string) ([]string, error)
	ListPublicGroups(ctx context.Context, search string, limit, offset int) ([]store.Group, int, error)
	Ping(ctx context.Context) error
}

type searchService interface {
	Search(context.Context, search.Query) search.Response
	IndexNote(search.NoteRecord)
	DeleteNote(string)
}

type exportService interface {
	Export(context.Context, export.Request) (*export.Result, error)
}

type transformService interface {
	Summarize(context.Context, string) (ai.Summary, error)
	GenerateQuiz(context.Context, string) ([]ai.QuizQuestion, error)
	GenerateMindmap(context.Context, string) ([]ai.MindmapNode, error)
	FormatText(context.Context, string, string) (*document.Document, error)
}

type Service struct {
	cfg      config.Config
	store    dataStore
	blobs    content.Repository
	search   searchService
	exporter exportService
	ai       transformService
}

// New wires the service. searchSvc, exporter and transformer may be nil; the
// matching endpoints then degrade (empty search, 503 for AI and export).
func New(cfg config.Config, dataStore *store.PostgresStore, blobs content.Repository, searchSvc *search.Service, exporter *export.Service, transformer *ai.Transformer) *Service {
	s := &Service{cfg: cfg, store: dataStore, blobs: blobs}
	if searchSvc != nil {
		s.search = searchSvc
	}
	if exporter != nil {
		s.exporter = exporter
	}
	if transformer != nil {
		s.ai = transformer
	}
	return s
}

func (s *Service) SessionFromToken(_ context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	name := claims.Name
	if name == "" {
		name = claims.Email
	}
	return Session{
		Token:     token,
		UserID:    claims.Sub,
		UserName:  name,
		Email:     claims.Email,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// loadNote fetches a note and checks that session may perform action on it.
// Unreadable notes are reported as missing.
func (s *Service) loadNote(ctx context.Context, session Session, noteID string, action access.Action) (store.Note, error) {
	note, err := s.store.GetNote(ctx, noteID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Note{}, errNoteNotFound
		}
		return store.Note{}, err
	}

	viewer := access.Viewer{UserID: session.UserID}
	policyNote := access.Note{OwnerID: note.UserID, Visibility: access.Visibility(note.Visibility), GroupID: note.GroupID}
	if note.Visibility == store.VisibilityGroup && note.UserID != session.UserID {
		member, err := s.store.IsGroupMember(ctx, note.GroupID, session.UserID)
		if err != nil {
			return store.Note{}, err
		}
		if member {
			viewer.GroupIDs = []string{note.GroupID}
		}
	}

	if !access.CanRead(policyNote, viewer) {
		return store.Note{}, errNoteNotFound
	}
	if action == access.ActionWrite && !access.CanWrite(policyNote, viewer) {
		return store.Note{}, errForbidden
	}
	return note, nil
}

// loadDocument reads and decodes a content blob. A blob that does not decode
// yields an empty document and a warning instead of an error.
func (s *Service) loadDocument(ctx context.Context, key string) (*document.Document, string, error) {
	data, err := s.blobs.Get(ctx, key)
	if err != nil {
		if errors.Is(err, content.ErrBlobNotFound) {
			return nil, "", errContentUnavailable
		}
		return nil, "", fmt.Errorf("load content: %w", err)
	}
	doc, err := document.Unmarshal(data)
	if err != nil {
		log.Printf("notes: content %s is malformed: %v", key, err)
		return document.New(), contentWarning, nil
	}
	return doc, "", nil
}

const contentWarning = "content unavailable"

// decodeContent validates client content. It returns the canonical encoding
// alongside the tree.
func decodeContent(raw json.RawMessage) (*document.Document, []byte, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil, malformedContent(errors.New("content is required"))
	}
	doc, err := document.Unmarshal(raw)
	if err != nil {
		return nil, nil, malformedContent(err)
	}
	data, err := document.Marshal(doc)
	if err != nil {
		return nil, nil, malformedContent(err)
	}
	return doc, data, nil
}

func searchRecord(note store.Note) search.NoteRecord {
	return search.NoteRecord{
		ID:         note.ID,
		Title:      note.Title,
		Excerpt:    note.Excerpt,
		Subject:    note.Subject,
		Tags:       note.Tags,
		Body:       note.BodyText,
		Visibility: note.Visibility,
		UserID:     note.UserID,
		GroupID:    note.GroupID,
	}
}

func (s *Service) indexNote(note store.Note) {
	if s.search != nil {
		s.search.IndexNote(searchRecord(note))
	}
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Readiness pings the database and, when it supports it, the content store.
func (s *Service) Readiness(ctx context.Context) (map[string]any, bool) {
	ready := true
	checks := map[string]any{}
	check := func(name string, err error) {
		if err != nil {
			ready = false
			checks[name] = map[string]any{"status": "error", "error": err.Error()}
			return
		}
		checks[name] = map[string]any{"status": "ok"}
	}
	check("database", s.store.Ping(ctx))
	if p, ok := s.blobs.(pinger); ok {
		check("content", p.Ping(ctx))
	}
	return checks, ready
}
