package document

import (
	"encoding/json"
	"fmt"
)

// wireNode is the TipTap JSON shape shared by every node.
type wireNode struct {
	Type    string            `json:"type"`
	Attrs   Attrs             `json:"attrs,omitempty"`
	Content []json.RawMessage `json:"content,omitempty"`
	Text    *string           `json:"text,omitempty"`
	Marks   []Mark            `json:"marks,omitempty"`
}

// Marshal encodes doc as TipTap JSON. Unknown nodes are re-emitted verbatim.
func Marshal(doc *Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", ErrMalformedContent)
	}
	content, err := encodeNodes(doc.Content, "content")
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(wireNode{Type: string(KindDoc), Content: content})
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

func encodeNodes(nodes []Node, path string) ([]json.RawMessage, error) {
	if len(nodes) == 0 {
		return nil, nil
	}
	out := make([]json.RawMessage, 0, len(nodes))
	for i, n := range nodes {
		raw, err := encodeNode(n, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}

func encodeNode(n Node, path string) (json.RawMessage, error) {
	switch v := n.(type) {
	case nil:
		return nil, fmt.Errorf("%w: %s is nil", ErrMalformedContent, path)
	case *Text:
		text := v.Text
		return marshalWire(wireNode{Type: string(KindText), Text: &text, Marks: v.Marks}, path)
	case *HardBreak:
		return marshalWire(wireNode{Type: string(KindHardBreak), Marks: v.Marks}, path)
	case *Unknown:
		if len(v.Raw) == 0 {
			return marshalWire(wireNode{Type: v.Type}, path)
		}
		if !json.Valid(v.Raw) {
			return nil, fmt.Errorf("%w: %s holds invalid raw JSON", ErrMalformedContent, path)
		}
		return v.Raw, nil
	}
	content, err := encodeNodes(Children(n), path+".content")
	if err != nil {
		return nil, err
	}
	return marshalWire(wireNode{Type: string(n.Kind()), Attrs: nodeAttrs(n), Content: content}, path)
}

func marshalWire(w wireNode, path string) (json.RawMessage, error) {
	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", path, err)
	}
	return data, nil
}

// Unmarshal parses TipTap JSON into a tree. Any failure wraps ErrMalformedContent.
func Unmarshal(data []byte) (*Document, error) {
	var root wireNode
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedContent, err)
	}
	if Kind(root.Type) != KindDoc {
		return nil, fmt.Errorf("%w: root type is %q, want %q", ErrMalformedContent, root.Type, KindDoc)
	}
	if root.Text != nil {
		return nil, fmt.Errorf("%w: root carries text", ErrMalformedContent)
	}
	content, err := decodeNodes(root.Content, "content")
	if err != nil {
		return nil, err
	}
	return &Document{Content: content}, nil
}

func decodeNodes(raws []json.RawMessage, path string) ([]Node, error) {
	if len(raws) == 0 {
		return nil, nil
	}
	out := make([]Node, 0, len(raws))
	for i, raw := range raws {
		n, err := decodeNode(raw, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func decodeNode(raw json.RawMessage, path string) (Node, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedContent, path, err)
	}
	kind := Kind(head.Type)
	switch {
	case kind == "":
		return nil, fmt.Errorf("%w: %s has no type", ErrMalformedContent, path)
	case kind == KindDoc:
		return nil, fmt.Errorf("%w: %s nests a document", ErrMalformedContent, path)
	case !isKnownKind(kind):
		return &Unknown{Type: head.Type, Raw: raw}, nil
	}

	var w wireNode
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedContent, path, err)
	}

	if kind == KindText {
		if w.Text == nil {
			return nil, fmt.Errorf("%w: %s is a text node without text", ErrMalformedContent, path)
		}
		if len(w.Content) > 0 {
			return nil, fmt.Errorf("%w: %s is a text node with content", ErrMalformedContent, path)
		}
		marks, err := dedupeMarks(w.Marks, path)
		if err != nil {
			return nil, err
		}
		return &Text{Text: *w.Text, Marks: marks}, nil
	}

	if w.Text != nil {
		return nil, fmt.Errorf("%w: %s is a %s node carrying text", ErrMalformedContent, path, kind)
	}
	if kind == KindHardBreak {
		if len(w.Content) > 0 {
			return nil, fmt.Errorf("%w: %s is a hard break with content", ErrMalformedContent, path)
		}
		marks, err := dedupeMarks(w.Marks, path)
		if err != nil {
			return nil, err
		}
		return &HardBreak{Marks: marks}, nil
	}
	content, err := decodeNodes(w.Content, path+".content")
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindHeading:
		return &Heading{Attrs: w.Attrs, Content: content}, nil
	case KindParagraph:
		return &Paragraph{Attrs: w.Attrs, Content: content}, nil
	case KindBulletList:
		return &BulletList{Attrs: w.Attrs, Content: content}, nil
	case KindOrderedList:
		return &OrderedList{Attrs: w.Attrs, Content: content}, nil
	default:
		return &ListItem{Attrs: w.Attrs, Content: content}, nil
	}
}

// dedupeMarks keeps the first mark of each kind.
func dedupeMarks(marks []Mark, path string) ([]Mark, error) {
	if len(marks) == 0 {
		return nil, nil
	}
	seen := make(map[MarkKind]struct{}, len(marks))
	out := make([]Mark, 0, len(marks))
	for _, m := range marks {
		if m.Type == "" {
			return nil, fmt.Errorf("%w: %s has a mark without type", ErrMalformedContent, path)
		}
		if _, dup := seen[m.Type]; dup {
			continue
		}
		seen[m.Type] = struct{}{}
		out = append(out, m)
	}
	return out, nil
}
