package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// Clone returns a deep copy of doc. Mutating the copy never affects the original.
func Clone(doc *Document) *Document {
	if doc == nil {
		return nil
	}
	return &Document{Content: cloneNodes(doc.Content)}
}

func cloneNodes(nodes []Node) []Node {
	if nodes == nil {
		return nil
	}
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = cloneNode(n)
	}
	return out
}

func cloneNode(n Node) Node {
	switch v := n.(type) {
	case *Heading:
		return &Heading{Attrs: cloneAttrs(v.Attrs), Content: cloneNodes(v.Content)}
	case *Paragraph:
		return &Paragraph{Attrs: cloneAttrs(v.Attrs), Content: cloneNodes(v.Content)}
	case *BulletList:
		return &BulletList{Attrs: cloneAttrs(v.Attrs), Content: cloneNodes(v.Content)}
	case *OrderedList:
		return &OrderedList{Attrs: cloneAttrs(v.Attrs), Content: cloneNodes(v.Content)}
	case *ListItem:
		return &ListItem{Attrs: cloneAttrs(v.Attrs), Content: cloneNodes(v.Content)}
	case *Text:
		return &Text{Text: v.Text, Marks: cloneMarks(v.Marks)}
	case *HardBreak:
		return &HardBreak{Marks: cloneMarks(v.Marks)}
	case *Unknown:
		raw := make(json.RawMessage, len(v.Raw))
		copy(raw, v.Raw)
		return &Unknown{Type: v.Type, Raw: raw}
	default:
		return n
	}
}

func cloneMarks(marks []Mark) []Mark {
	if marks == nil {
		return nil
	}
	out := make([]Mark, len(marks))
	for i, m := range marks {
		out[i] = Mark{Type: m.Type, Attrs: cloneAttrs(m.Attrs)}
	}
	return out
}

func cloneAttrs(attrs Attrs) Attrs {
	if attrs == nil {
		return nil
	}
	out := make(Attrs, len(attrs))
	for k, v := range attrs {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = cloneValue(inner)
		}
		return out
	case Attrs:
		return cloneAttrs(t)
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = cloneValue(inner)
		}
		return out
	default:
		return v
	}
}

// Equal reports whether two trees are structurally identical: same node types,
// text, marks, attrs and child order. Attr values are compared by their JSON
// encoding, so an int level and its decoded float64 compare equal.
func Equal(a, b *Document) bool {
	if a == nil || b == nil {
		return a == b
	}
	return nodesEqual(a.Content, b.Content)
}

func nodesEqual(a, b []Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !nodeEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func nodeEqual(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case *Text:
		bv, ok := b.(*Text)
		return ok && av.Text == bv.Text && marksEqual(av.Marks, bv.Marks)
	case *HardBreak:
		bv, ok := b.(*HardBreak)
		return ok && marksEqual(av.Marks, bv.Marks)
	case *Unknown:
		bv, ok := b.(*Unknown)
		return ok && rawEqual(av.Raw, bv.Raw)
	}
	if !attrsEqual(nodeAttrs(a), nodeAttrs(b)) {
		return false
	}
	return nodesEqual(Children(a), Children(b))
}

func nodeAttrs(n Node) Attrs {
	switch v := n.(type) {
	case *Heading:
		return v.Attrs
	case *Paragraph:
		return v.Attrs
	case *BulletList:
		return v.Attrs
	case *OrderedList:
		return v.Attrs
	case *ListItem:
		return v.Attrs
	default:
		return nil
	}
}

func marksEqual(a, b []Mark) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Type != b[i].Type || !attrsEqual(a[i].Attrs, b[i].Attrs) {
			return false
		}
	}
	return true
}

func attrsEqual(a, b Attrs) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(ab, bb)
}

func rawEqual(a, b json.RawMessage) bool {
	var ca, cb bytes.Buffer
	if json.Compact(&ca, a) != nil || json.Compact(&cb, b) != nil {
		return bytes.Equal(a, b)
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}

// Validate checks the structural invariants of a programmatically built tree.
func Validate(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: nil document", ErrMalformedContent)
	}
	for i, n := range doc.Content {
		if err := validateNode(n, fmt.Sprintf("content[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}

func validateNode(n Node, path string) error {
	switch v := n.(type) {
	case nil:
		return fmt.Errorf("%w: %s is nil", ErrMalformedContent, path)
	case *Text:
		if !utf8.ValidString(v.Text) {
			return fmt.Errorf("%w: %s holds invalid UTF-8", ErrMalformedContent, path)
		}
		return validateMarks(v.Marks, path)
	case *HardBreak:
		return validateMarks(v.Marks, path)
	case *Unknown:
		if v.Type == "" {
			return fmt.Errorf("%w: %s has no type", ErrMalformedContent, path)
		}
		if isKnownKind(Kind(v.Type)) {
			return fmt.Errorf("%w: %s wraps known type %q as unknown", ErrMalformedContent, path, v.Type)
		}
		if len(v.Raw) > 0 && !json.Valid(v.Raw) {
			return fmt.Errorf("%w: %s holds invalid raw JSON", ErrMalformedContent, path)
		}
		return nil
	}
	for i, child := range Children(n) {
		if err := validateNode(child, fmt.Sprintf("%s.content[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

func validateMarks(marks []Mark, path string) error {
	seen := make(map[MarkKind]struct{}, len(marks))
	for _, m := range marks {
		if m.Type == "" {
			return fmt.Errorf("%w: %s has a mark without type", ErrMalformedContent, path)
		}
		if _, dup := seen[m.Type]; dup {
			return fmt.Errorf("%w: %s repeats mark %q", ErrMalformedContent, path, m.Type)
		}
		seen[m.Type] = struct{}{}
	}
	return nil
}

func isKnownKind(k Kind) bool {
	switch k {
	case KindDoc, KindHeading, KindParagraph, KindBulletList, KindOrderedList, KindListItem, KindText, KindHardBreak:
		return true
	default:
		return false
	}
}
