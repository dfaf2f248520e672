package store

import (
	"errors"
	"time"
)

const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
	VisibilityGroup   = "group"
)

var (
	// ErrContentConflict is returned when a note's content key no longer
	// matches the one the caller read, i.e. a concurrent update won.
	ErrContentConflict = errors.New("note content changed concurrently")
	ErrGroupFull       = errors.New("group is full")
)

type Note struct {
	ID         string
	UserID     string
	Title      string
	Excerpt    string
	ContentKey string
	SubjectID  string
	Subject    string
	Tags       []string
	Visibility string
	GroupID    string
	WordCount  int
	BodyText   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NoteContent is everything that changes together with a new content blob.
type NoteContent struct {
	ContentKey string
	Excerpt    string
	WordCount  int
	BodyText   string
}

// NoteDetails is the metadata editable without touching content.
type NoteDetails struct {
	Title      string
	SubjectID  string
	Tags       []string
	Visibility string
	GroupID    string
}

type Subject struct {
	ID   string
	Name string
}

type Group struct {
	ID          string
	Name        string
	Description string
	OwnerID     string
	IsPublic    bool
	MaxMembers  int
	MemberCount int
	CreatedAt   time.Time
}
