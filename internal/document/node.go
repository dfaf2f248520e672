// Package document models note content as a TipTap/ProseMirror tree and provides
// the JSON codec, the HTML markup bridge and plain-text extraction over it.
package document

import (
	"encoding/json"
	"errors"
)

// ErrMalformedContent is returned when bytes or a tree do not form a valid document.
var ErrMalformedContent = errors.New("malformed content")

// Kind is the wire "type" of a node.
type Kind string

const (
	KindDoc         Kind = "doc"
	KindHeading     Kind = "heading"
	KindParagraph   Kind = "paragraph"
	KindBulletList  Kind = "bulletList"
	KindOrderedList Kind = "orderedList"
	KindListItem    Kind = "listItem"
	KindText        Kind = "text"
	KindHardBreak   Kind = "hardBreak"
)

// MarkKind is the wire "type" of an inline mark.
type MarkKind string

const (
	MarkBold      MarkKind = "bold"
	MarkItalic    MarkKind = "italic"
	MarkUnderline MarkKind = "underline"
	MarkHighlight MarkKind = "highlight"
	MarkStrike    MarkKind = "strike"
	MarkCode      MarkKind = "code"
	MarkLink      MarkKind = "link"
)

// Attrs holds node-level attributes such as textAlign or level.
type Attrs map[string]any

// Mark is an inline style annotation. Only links carry attrs (href).
type Mark struct {
	Type  MarkKind `json:"type"`
	Attrs Attrs    `json:"attrs,omitempty"`
}

// Node is a block or inline node below the document root. The set of
// implementations is closed; forward-compatible content lands in *Unknown.
type Node interface {
	Kind() Kind
	node()
}

// Document is the root of every tree. It is not a Node, so it can never be nested.
type Document struct {
	Content []Node
}

type Heading struct {
	Attrs   Attrs
	Content []Node
}

type Paragraph struct {
	Attrs   Attrs
	Content []Node
}

type BulletList struct {
	Attrs   Attrs
	Content []Node
}

type OrderedList struct {
	Attrs   Attrs
	Content []Node
}

type ListItem struct {
	Attrs   Attrs
	Content []Node
}

// Text is the only leaf carrying a string payload.
type Text struct {
	Text  string
	Marks []Mark
}

// HardBreak is a line break inside a textblock.
type HardBreak struct {
	Marks []Mark
}

// Unknown keeps a node of an unrecognised type verbatim so it survives a round trip.
type Unknown struct {
	Type string
	Raw  json.RawMessage
}

func (*Heading) Kind() Kind     { return KindHeading }
func (*Paragraph) Kind() Kind   { return KindParagraph }
func (*BulletList) Kind() Kind  { return KindBulletList }
func (*OrderedList) Kind() Kind { return KindOrderedList }
func (*ListItem) Kind() Kind    { return KindListItem }
func (*Text) Kind() Kind        { return KindText }
func (*HardBreak) Kind() Kind   { return KindHardBreak }
func (u *Unknown) Kind() Kind   { return Kind(u.Type) }

func (*Heading) node()     {}
func (*Paragraph) node()   {}
func (*BulletList) node()  {}
func (*OrderedList) node() {}
func (*ListItem) node()    {}
func (*Text) node()        {}
func (*HardBreak) node()   {}
func (*Unknown) node()     {}

// New returns a document with the given top-level blocks.
func New(blocks ...Node) *Document {
	return &Document{Content: blocks}
}

// NewParagraph builds a paragraph holding a single unmarked text run.
// An empty string yields an empty paragraph.
func NewParagraph(text string) *Paragraph {
	if text == "" {
		return &Paragraph{}
	}
	return &Paragraph{Content: []Node{&Text{Text: text}}}
}

// NewHeading builds a heading of the given level holding a single text run.
func NewHeading(level int, text string) *Heading {
	h := &Heading{Attrs: Attrs{"level": level}}
	if text != "" {
		h.Content = []Node{&Text{Text: text}}
	}
	return h
}

// HasMark reports whether t carries a mark of the given kind.
func (t *Text) HasMark(kind MarkKind) bool {
	for _, m := range t.Marks {
		if m.Type == kind {
			return true
		}
	}
	return false
}

// Level returns the heading level clamped to 1..6.
func (h *Heading) Level() int {
	level := 1
	switch v := h.Attrs["level"].(type) {
	case int:
		level = v
	case float64:
		level = int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			level = int(n)
		}
	}
	if level < 1 {
		return 1
	}
	if level > 6 {
		return 6
	}
	return level
}

// Children returns the child slice of a container node, or nil for leaves.
func Children(n Node) []Node {
	switch v := n.(type) {
	case *Heading:
		return v.Content
	case *Paragraph:
		return v.Content
	case *BulletList:
		return v.Content
	case *OrderedList:
		return v.Content
	case *ListItem:
		return v.Content
	default:
		return nil
	}
}

// Walk visits every node in pre-order. Returning false skips the node's children.
func Walk(doc *Document, fn func(Node) bool) {
	if doc == nil {
		return
	}
	for _, n := range doc.Content {
		walk(n, fn)
	}
}

func walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, child := range Children(n) {
		walk(child, fn)
	}
}

// IsEmpty reports whether the document holds no text at all.
func IsEmpty(doc *Document) bool {
	empty := true
	Walk(doc, func(n Node) bool {
		if t, ok := n.(*Text); ok && t.Text != "" {
			empty = false
		}
		return empty
	})
	return empty
}
