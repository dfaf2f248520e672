// Package editor owns the live document during an authoring session and exposes
// the read accessors used by the save path. An Editor belongs to a single
// session and is not safe for concurrent use.
package editor

import (
	"errors"
	"fmt"

	"studynotes/api/internal/document"
)

type State int

const (
	Empty State = iota
	Editing
	ReadOnly
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Editing:
		return "editing"
	case ReadOnly:
		return "read-only"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var (
	// ErrReadOnly is returned by every mutation command while the editor is read-only.
	ErrReadOnly = errors.New("editor is read-only")
	// ErrInvalidCommand is returned when a command's arguments are out of range.
	ErrInvalidCommand = errors.New("invalid editor command")
)

// Warning reports content that could not be loaded. The editor has already
// fallen back to an empty document and remains usable.
type Warning struct {
	Err error
}

func (w *Warning) Error() string {
	return "content unavailable: " + w.Err.Error()
}

func (w *Warning) Unwrap() error {
	return w.Err
}

type Editor struct {
	state State
	doc   *document.Document
	marks []document.Mark
}

// New returns an editable editor in the Empty state.
func New() *Editor {
	return &Editor{state: Empty, doc: document.New()}
}

// NewReadOnly returns an editor for viewing contexts. It accepts content loads
// but no mutation commands.
func NewReadOnly() *Editor {
	return &Editor{state: ReadOnly, doc: document.New()}
}

func (e *Editor) State() State {
	return e.state
}

// SetEditable switches between ReadOnly and the editable states.
func (e *Editor) SetEditable(editable bool) {
	if !editable {
		e.state = ReadOnly
		return
	}
	if e.state != ReadOnly {
		return
	}
	if len(e.doc.Content) == 0 {
		e.state = Empty
	} else {
		e.state = Editing
	}
}

// ReplaceContent swaps the whole live document for a copy of doc. Prior content
// is discarded, never merged. An invalid tree leaves an empty document behind
// and returns a *Warning.
func (e *Editor) ReplaceContent(doc *document.Document) error {
	if err := document.Validate(doc); err != nil {
		e.load(document.New())
		return &Warning{Err: err}
	}
	e.load(document.Clone(doc))
	return nil
}

// ReplaceJSON is ReplaceContent for stored TipTap JSON.
func (e *Editor) ReplaceJSON(data []byte) error {
	doc, err := document.Unmarshal(data)
	if err != nil {
		e.load(document.New())
		return &Warning{Err: err}
	}
	e.load(doc)
	return nil
}

func (e *Editor) load(doc *document.Document) {
	e.doc = doc
	e.marks = nil
	if e.state != ReadOnly {
		e.state = Editing
	}
}

// Snapshot returns a deep copy of the live document.
func (e *Editor) Snapshot() *document.Document {
	return document.Clone(e.doc)
}

// JSON serializes the live document for storage.
func (e *Editor) JSON() ([]byte, error) {
	return document.Marshal(e.doc)
}

// HTML renders the live document through the markup bridge.
func (e *Editor) HTML() string {
	return document.Markup(e.doc)
}

func (e *Editor) PlainText() string {
	return document.PlainText(e.doc)
}

func (e *Editor) WordCount() int {
	return document.CountWords(e.PlainText())
}

func (e *Editor) CharacterCount() int {
	return document.CountCharacters(e.PlainText())
}

// IsEmpty reports whether the live document holds no text.
func (e *Editor) IsEmpty() bool {
	return document.IsEmpty(e.doc)
}

// ActiveMarks returns the marks applied to the next typed text.
func (e *Editor) ActiveMarks() []document.MarkKind {
	kinds := make([]document.MarkKind, 0, len(e.marks))
	for _, m := range e.marks {
		kinds = append(kinds, m.Type)
	}
	return kinds
}

func (e *Editor) mutate(fn func() error) error {
	if e.state == ReadOnly {
		return ErrReadOnly
	}
	if err := fn(); err != nil {
		return err
	}
	e.state = Editing
	return nil
}
