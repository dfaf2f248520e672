package editor

import (
	"fmt"
	"unicode/utf8"

	"studynotes/api/internal/document"
)

// The cursor always sits at the end of the document. Commands act on the
// textblock found by following the last child down through lists.

type cursor struct {
	container *[]document.Node // slice holding block
	block     document.Node    // *document.Paragraph or *document.Heading
	item      *document.ListItem
	items     *[]document.Node // content of the list holding item
	owner     *[]document.Node // slice holding that list
	tail      *[]document.Node // list content ending in a node that is not an item
}

func (e *Editor) locate() *cursor {
	c := &cursor{container: &e.doc.Content}
	for {
		nodes := *c.container
		if len(nodes) == 0 {
			return c
		}
		switch n := nodes[len(nodes)-1].(type) {
		case *document.Paragraph, *document.Heading:
			c.block = n
			return c
		case *document.BulletList:
			if !c.descend(&n.Content) {
				return c
			}
		case *document.OrderedList:
			if !c.descend(&n.Content) {
				return c
			}
		default:
			return c
		}
	}
}

func (c *cursor) descend(items *[]document.Node) bool {
	if len(*items) == 0 {
		return false
	}
	item, ok := (*items)[len(*items)-1].(*document.ListItem)
	if !ok {
		c.tail = items
		return false
	}
	c.owner = c.container
	c.items = items
	c.item = item
	c.container = &item.Content
	return true
}

// ensure appends an empty paragraph when no textblock receives input.
func (c *cursor) ensure() {
	if c.block != nil {
		return
	}
	p := &document.Paragraph{}
	*c.container = append(*c.container, p)
	c.block = p
}

func (c *cursor) inline() *[]document.Node {
	switch b := c.block.(type) {
	case *document.Paragraph:
		return &b.Content
	case *document.Heading:
		return &b.Content
	}
	return nil
}

func (c *cursor) replaceBlock(n document.Node) {
	(*c.container)[len(*c.container)-1] = n
	c.block = n
}

// removeItem drops the current list item and the list itself once it is empty.
func (c *cursor) removeItem() {
	*c.items = (*c.items)[:len(*c.items)-1]
	if len(*c.items) == 0 {
		*c.owner = (*c.owner)[:len(*c.owner)-1]
	}
}

func hasText(nodes []document.Node) bool {
	for _, n := range nodes {
		if t, ok := n.(*document.Text); ok && t.Text != "" {
			return true
		}
	}
	return false
}

func sameMarks(a, b []document.Mark) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Type != b[i].Type || href(a[i]) != href(b[i]) {
			return false
		}
	}
	return true
}

func href(m document.Mark) string {
	s, _ := m.Attrs["href"].(string)
	return s
}

// TypeText inserts s at the cursor with the active marks.
func (e *Editor) TypeText(s string) error {
	return e.mutate(func() error {
		if s == "" {
			return nil
		}
		c := e.locate()
		c.ensure()
		content := c.inline()
		if n := len(*content); n > 0 {
			if last, ok := (*content)[n-1].(*document.Text); ok && sameMarks(last.Marks, e.marks) {
				last.Text += s
				return nil
			}
		}
		*content = append(*content, &document.Text{Text: s, Marks: cloneMarks(e.marks)})
		return nil
	})
}

// Enter splits off a new block. Inside a list it starts a new item; on an empty
// item it leaves the list and continues with a paragraph after it.
func (e *Editor) Enter() error {
	return e.mutate(func() error {
		c := e.locate()
		c.ensure()
		if c.item == nil {
			*c.container = append(*c.container, &document.Paragraph{})
			return nil
		}
		if len(c.item.Content) == 1 && !hasText(*c.inline()) {
			c.removeItem()
			*c.owner = append(*c.owner, &document.Paragraph{})
			return nil
		}
		*c.items = append(*c.items, &document.ListItem{Content: []document.Node{&document.Paragraph{}}})
		return nil
	})
}

// Backspace deletes the last character, or the current block once it holds no text.
func (e *Editor) Backspace() error {
	return e.mutate(func() error {
		c := e.locate()
		if c.block == nil {
			if c.tail != nil {
				*c.tail = (*c.tail)[:len(*c.tail)-1]
				if len(*c.tail) == 0 {
					*c.container = (*c.container)[:len(*c.container)-1]
				}
				return nil
			}
			if n := len(*c.container); n > 0 {
				*c.container = (*c.container)[:n-1]
			} else if c.item != nil {
				c.removeItem()
			}
			return nil
		}
		content := c.inline()
		for n := len(*content); n > 0; n = len(*content) {
			t, ok := (*content)[n-1].(*document.Text)
			if !ok {
				*content = (*content)[:n-1]
				return nil
			}
			if t.Text == "" {
				*content = (*content)[:n-1]
				continue
			}
			_, size := utf8.DecodeLastRuneInString(t.Text)
			t.Text = t.Text[:len(t.Text)-size]
			if t.Text == "" {
				*content = (*content)[:n-1]
			}
			return nil
		}
		*c.container = (*c.container)[:len(*c.container)-1]
		if c.item != nil && len(c.item.Content) == 0 {
			c.removeItem()
		}
		return nil
	})
}

// ToggleMark switches a style on or off for subsequently typed text.
// Links carry an href and go through SetLink instead.
func (e *Editor) ToggleMark(kind document.MarkKind) error {
	if kind == document.MarkLink || kind == "" {
		return fmt.Errorf("%w: toggle mark %q", ErrInvalidCommand, kind)
	}
	return e.mutate(func() error {
		e.toggle(document.Mark{Type: kind})
		return nil
	})
}

// SetLink applies a link mark to subsequently typed text. An empty href removes it.
func (e *Editor) SetLink(url string) error {
	return e.mutate(func() error {
		e.removeMark(document.MarkLink)
		if url != "" {
			e.marks = append(e.marks, document.Mark{Type: document.MarkLink, Attrs: document.Attrs{"href": url}})
		}
		return nil
	})
}

func (e *Editor) toggle(m document.Mark) {
	if e.removeMark(m.Type) {
		return
	}
	e.marks = append(e.marks, m)
}

func (e *Editor) removeMark(kind document.MarkKind) bool {
	for i, m := range e.marks {
		if m.Type == kind {
			e.marks = append(e.marks[:i:i], e.marks[i+1:]...)
			return true
		}
	}
	return false
}

// SetHeading turns the current block into a heading of the given level.
func (e *Editor) SetHeading(level int) error {
	if level < 1 || level > 6 {
		return fmt.Errorf("%w: heading level %d", ErrInvalidCommand, level)
	}
	return e.mutate(func() error {
		c := e.locate()
		c.ensure()
		attrs := blockAttrs(c.block)
		attrs["level"] = level
		c.replaceBlock(&document.Heading{Attrs: attrs, Content: *c.inline()})
		return nil
	})
}

// SetParagraph turns the current block back into a paragraph.
func (e *Editor) SetParagraph() error {
	return e.mutate(func() error {
		c := e.locate()
		c.ensure()
		attrs := blockAttrs(c.block)
		delete(attrs, "level")
		if len(attrs) == 0 {
			attrs = nil
		}
		c.replaceBlock(&document.Paragraph{Attrs: attrs, Content: *c.inline()})
		return nil
	})
}

var alignments = map[string]bool{"left": true, "center": true, "right": true, "justify": true}

func (e *Editor) SetTextAlign(align string) error {
	if !alignments[align] {
		return fmt.Errorf("%w: text align %q", ErrInvalidCommand, align)
	}
	return e.mutate(func() error {
		c := e.locate()
		c.ensure()
		switch b := c.block.(type) {
		case *document.Paragraph:
			if b.Attrs == nil {
				b.Attrs = document.Attrs{}
			}
			b.Attrs["textAlign"] = align
		case *document.Heading:
			if b.Attrs == nil {
				b.Attrs = document.Attrs{}
			}
			b.Attrs["textAlign"] = align
		}
		return nil
	})
}

func (e *Editor) ToggleBulletList() error {
	return e.mutate(func() error {
		e.toggleList(document.KindBulletList)
		return nil
	})
}

func (e *Editor) ToggleOrderedList() error {
	return e.mutate(func() error {
		e.toggleList(document.KindOrderedList)
		return nil
	})
}

// toggleList wraps the current block in a list of kind, lifts it out when it
// already sits in such a list, or converts a list of the other kind.
func (e *Editor) toggleList(kind document.Kind) {
	c := e.locate()
	c.ensure()
	if c.item == nil {
		item := &document.ListItem{Content: []document.Node{c.block}}
		c.replaceBlock(newList(kind, []document.Node{item}))
		return
	}
	list := (*c.owner)[len(*c.owner)-1]
	if list.Kind() != kind {
		(*c.owner)[len(*c.owner)-1] = newList(kind, *c.items)
		return
	}
	lifted := c.item.Content
	c.removeItem()
	*c.owner = append(*c.owner, lifted...)
}

func newList(kind document.Kind, items []document.Node) document.Node {
	if kind == document.KindOrderedList {
		return &document.OrderedList{Content: items}
	}
	return &document.BulletList{Content: items}
}

// Clear empties the document.
func (e *Editor) Clear() error {
	return e.mutate(func() error {
		e.doc = document.New()
		e.marks = nil
		return nil
	})
}

func blockAttrs(n document.Node) document.Attrs {
	var src document.Attrs
	switch b := n.(type) {
	case *document.Paragraph:
		src = b.Attrs
	case *document.Heading:
		src = b.Attrs
	}
	attrs := make(document.Attrs, len(src)+1)
	for k, v := range src {
		attrs[k] = v
	}
	return attrs
}

func cloneMarks(marks []document.Mark) []document.Mark {
	if len(marks) == 0 {
		return nil
	}
	out := make([]document.Mark, len(marks))
	for i, m := range marks {
		out[i] = document.Mark{Type: m.Type}
		if h := href(m); h != "" {
			out[i].Attrs = document.Attrs{"href": h}
		}
	}
	return out
}
