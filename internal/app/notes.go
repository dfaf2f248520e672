package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"unicode/utf8"

	"studynotes/api/internal/access"
	"studynotes/api/internal/content"
	"studynotes/api/internal/document"
	"studynotes/api/internal/editor"
	"studynotes/api/internal/store"
	"studynotes/api/internal/util"
)

const (
	maxTitleLength = 200
	maxTags        = 20
)

type CreateNoteInput struct {
	Title      string          `json:"title"`
	Subject    string          `json:"subject"`
	Tags       []string        `json:"tags"`
	Visibility string          `json:"visibility"`
	GroupID    string          `json:"groupId"`
	Excerpt    string          `json:"excerpt"`
	Content    json.RawMessage `json:"content"`
}

// UpdateNoteInput replaces a note's details. Content is optional; when it is
// absent only the metadata row changes.
type UpdateNoteInput struct {
	Title      string          `json:"title"`
	Subject    string          `json:"subject"`
	Tags       []string        `json:"tags"`
	Visibility string          `json:"visibility"`
	GroupID    string          `json:"groupId"`
	Excerpt    string          `json:"excerpt"`
	Content    json.RawMessage `json:"content,omitempty"`
}

type noteFields struct {
	title      string
	subject    string
	tags       []string
	visibility access.Visibility
	groupID    string
}

func (s *Service) validateFields(ctx context.Context, session Session, title, subject string, tags []string, visibility, groupID string) (noteFields, error) {
	fields := noteFields{
		title:   strings.TrimSpace(title),
		subject: strings.TrimSpace(subject),
		tags:    normalizeTags(tags),
		groupID: strings.TrimSpace(groupID),
	}
	if fields.title == "" {
		return noteFields{}, validationError("title is required")
	}
	if utf8.RuneCountInString(fields.title) > maxTitleLength {
		return noteFields{}, validationError(fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}
	if fields.subject == "" {
		return noteFields{}, validationError("subject is required")
	}
	if len(fields.tags) > maxTags {
		return noteFields{}, validationError(fmt.Sprintf("at most %d tags are allowed", maxTags))
	}

	vis, ok := access.ParseVisibility(visibility)
	if !ok {
		return noteFields{}, validationError("visibility must be public, private or group")
	}
	fields.visibility = vis

	if vis != access.Group {
		fields.groupID = ""
		return fields, nil
	}
	if fields.groupID == "" {
		return noteFields{}, validationError("groupId is required for group notes")
	}
	member, err := s.store.IsGroupMember(ctx, fields.groupID, session.UserID)
	if err != nil {
		return noteFields{}, err
	}
	if !member {
		return noteFields{}, domainError(http.StatusForbidden, "NOT_GROUP_MEMBER", "Only group members can share notes with a group", nil)
	}
	return fields, nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		key := strings.ToLower(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func noteContent(key, excerpt string, doc *document.Document) store.NoteContent {
	text := document.PlainText(doc)
	return store.NoteContent{
		ContentKey: key,
		Excerpt:    firstNonBlank(excerpt, document.Excerpt(doc, document.DefaultExcerptLength)),
		WordCount:  document.CountWords(text),
		BodyText:   text,
	}
}

// CreateNote stores the content blob first, then the metadata row. If the row
// cannot be written the blob is removed again.
func (s *Service) CreateNote(ctx context.Context, session Session, input CreateNoteInput) (map[string]any, error) {
	fields, err := s.validateFields(ctx, session, input.Title, input.Subject, input.Tags, input.Visibility, input.GroupID)
	if err != nil {
		return nil, err
	}
	doc, data, err := decodeContent(input.Content)
	if err != nil {
		return nil, err
	}

	key := content.NewKey(session.UserID)
	if err := s.blobs.Put(ctx, key, data); err != nil {
		return nil, fmt.Errorf("store content: %w", err)
	}

	note, err := s.insertNote(ctx, session, fields, noteContent(key, input.Excerpt, doc))
	if err != nil {
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			log.Printf("notes: cleanup blob %s after failed create: %v", key, delErr)
		}
		return nil, err
	}

	s.indexNote(note)
	log.Printf("notes: created %s for %s (%d words)", note.ID, session.UserID, note.WordCount)
	return notePayload(note), nil
}

func (s *Service) insertNote(ctx context.Context, session Session, fields noteFields, c store.NoteContent) (store.Note, error) {
	subject, err := s.store.EnsureSubject(ctx, fields.subject)
	if err != nil {
		return store.Note{}, err
	}
	note := store.Note{
		ID:         util.NewID("note"),
		UserID:     session.UserID,
		Title:      fields.title,
		Excerpt:    c.Excerpt,
		ContentKey: c.ContentKey,
		SubjectID:  subject.ID,
		Subject:    subject.Name,
		Tags:       fields.tags,
		Visibility: string(fields.visibility),
		GroupID:    fields.groupID,
		WordCount:  c.WordCount,
		BodyText:   c.BodyText,
	}
	if err := s.store.InsertNote(ctx, note); err != nil {
		return store.Note{}, err
	}
	return s.store.GetNote(ctx, note.ID)
}

// UpdateNote writes new content under a fresh key, swaps the row onto it and
// only then deletes the previous blob. The row is never pointed at a blob that
// was not confirmed written.
func (s *Service) UpdateNote(ctx context.Context, session Session, noteID string, input UpdateNoteInput) (map[string]any, error) {
	note, err := s.loadNote(ctx, session, noteID, access.ActionWrite)
	if err != nil {
		return nil, err
	}
	fields, err := s.validateFields(ctx, session, input.Title, input.Subject, input.Tags, input.Visibility, input.GroupID)
	if err != nil {
		return nil, err
	}

	var (
		doc  *document.Document
		data []byte
	)
	if len(input.Content) > 0 {
		if doc, data, err = decodeContent(input.Content); err != nil {
			return nil, err
		}
	}

	subject, err := s.store.EnsureSubject(ctx, fields.subject)
	if err != nil {
		return nil, err
	}
	details := store.NoteDetails{
		Title:      fields.title,
		SubjectID:  subject.ID,
		Tags:       fields.tags,
		Visibility: string(fields.visibility),
		GroupID:    fields.groupID,
	}

	if doc == nil {
		if err := s.store.UpdateNoteDetails(ctx, noteID, details); err != nil {
			return nil, err
		}
	} else if err := s.swapContent(ctx, session, note, doc, data, input.Excerpt, details); err != nil {
		return nil, err
	}

	updated, err := s.store.GetNote(ctx, noteID)
	if err != nil {
		return nil, err
	}
	s.indexNote(updated)
	return notePayload(updated), nil
}

func (s *Service) swapContent(ctx context.Context, session Session, note store.Note, doc *document.Document, data []byte, excerpt string, details store.NoteDetails) error {
	key := content.NewKey(session.UserID)
	if err := s.blobs.Put(ctx, key, data); err != nil {
		return fmt.Errorf("store content: %w", err)
	}

	if err := s.store.SwapNoteContent(ctx, note.ID, note.ContentKey, noteContent(key, excerpt, doc), details); err != nil {
		switch s.swapOutcome(ctx, note.ID, key, err) {
		case swapRejected:
			if delErr := s.blobs.Delete(ctx, key); delErr != nil {
				log.Printf("notes: cleanup blob %s after failed swap: %v", key, delErr)
			}
			if errors.Is(err, store.ErrContentConflict) {
				return domainError(http.StatusConflict, "CONTENT_CONFLICT", "Note was changed by another request", nil)
			}
			return err
		case swapUnknown:
			log.Printf("notes: keeping blob %s, swap of %s unconfirmed: %v", key, note.ID, err)
			return err
		}
		log.Printf("notes: swap of %s reported %v but row references %s", note.ID, err, key)
	}

	if err := s.blobs.Delete(ctx, note.ContentKey); err != nil {
		log.Printf("notes: orphaned blob %s after update of %s: %v", note.ContentKey, note.ID, err)
	}
	return nil
}

const (
	swapRejected = iota
	swapApplied
	swapUnknown
)

// swapOutcome decides whether a failed swap left the row on key. Conflicts
// and missing rows never apply; anything else is checked by reading the row.
func (s *Service) swapOutcome(ctx context.Context, noteID, key string, err error) int {
	if errors.Is(err, store.ErrContentConflict) || errors.Is(err, sql.ErrNoRows) {
		return swapRejected
	}
	current, getErr := s.store.GetNote(ctx, noteID)
	switch {
	case errors.Is(getErr, sql.ErrNoRows):
		return swapRejected
	case getErr != nil:
		return swapUnknown
	case current.ContentKey == key:
		return swapApplied
	}
	return swapRejected
}

// DeleteNote removes the blob and then the row. A blob that is already gone
// does not block the delete.
func (s *Service) DeleteNote(ctx context.Context, session Session, noteID string) error {
	note, err := s.loadNote(ctx, session, noteID, access.ActionWrite)
	if err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, note.ContentKey); err != nil && !errors.Is(err, content.ErrBlobNotFound) {
		return fmt.Errorf("delete content: %w", err)
	}
	if err := s.store.DeleteNote(ctx, noteID); err != nil {
		return err
	}
	if s.search != nil {
		s.search.DeleteNote(noteID)
	}
	log.Printf("notes: deleted %s", noteID)
	return nil
}

func (s *Service) GetNote(ctx context.Context, session Session, noteID string) (map[string]any, error) {
	note, err := s.loadNote(ctx, session, noteID, access.ActionRead)
	if err != nil {
		return nil, err
	}
	payload := notePayload(note)
	payload["canEdit"] = note.UserID == session.UserID
	return payload, nil
}

// GetNoteContent returns the stored tree.
func (s *Service) GetNoteContent(ctx context.Context, session Session, noteID string) (map[string]any, error) {
	note, err := s.loadNote(ctx, session, noteID, access.ActionRead)
	if err != nil {
		return nil, err
	}
	doc, warning, err := s.loadDocument(ctx, note.ContentKey)
	if err != nil {
		return nil, err
	}
	data, err := document.Marshal(doc)
	if err != nil {
		return nil, err
	}
	payload := map[string]any{"noteId": note.ID, "content": json.RawMessage(data)}
	if warning != "" {
		payload["warning"] = warning
	}
	return payload, nil
}

// ViewNote renders the note read-only.
func (s *Service) ViewNote(ctx context.Context, session Session, noteID string) (map[string]any, error) {
	note, err := s.loadNote(ctx, session, noteID, access.ActionRead)
	if err != nil {
		return nil, err
	}
	data, err := s.blobs.Get(ctx, note.ContentKey)
	if err != nil {
		if errors.Is(err, content.ErrBlobNotFound) {
			return nil, errContentUnavailable
		}
		return nil, fmt.Errorf("load content: %w", err)
	}

	view := editor.NewReadOnly()
	payload := map[string]any{"note": notePayload(note)}
	if err := view.ReplaceJSON(data); err != nil {
		var warning *editor.Warning
		if !errors.As(err, &warning) {
			return nil, err
		}
		log.Printf("notes: view %s: %v", note.ID, err)
		payload["warning"] = contentWarning
	}
	payload["html"] = view.HTML()
	payload["plainText"] = view.PlainText()
	payload["wordCount"] = view.WordCount()
	payload["characterCount"] = view.CharacterCount()
	payload["isEmpty"] = view.IsEmpty()
	return payload, nil
}

func notePayload(note store.Note) map[string]any {
	tags := note.Tags
	if tags == nil {
		tags = []string{}
	}
	var groupID any
	if note.GroupID != "" {
		groupID = note.GroupID
	}
	return map[string]any{
		"id":         note.ID,
		"userId":     note.UserID,
		"title":      note.Title,
		"excerpt":    note.Excerpt,
		"subject":    note.Subject,
		"tags":       tags,
		"visibility": note.Visibility,
		"groupId":    groupID,
		"wordCount":  note.WordCount,
		"createdAt":  note.CreatedAt,
		"updatedAt":  note.UpdatedAt,
	}
}
