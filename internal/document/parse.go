package document

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseMarkup builds a tree from HTML. Block elements map onto the closed node
// set, inline formatting tags become marks and any other element contributes
// its children. Whitespace is collapsed and empty blocks are dropped.
func ParseMarkup(markup string) (*Document, error) {
	if strayCells(markup) {
		markup = "<table>" + markup + "</table>"
	}
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse markup: %v", ErrMalformedContent, err)
	}
	doc := New()
	b := &blockBuilder{out: &doc.Content}
	for _, n := range nodes {
		b.node(n, nil)
	}
	b.flush()
	return doc, nil
}

// strayCells reports table cells or rows outside any table. The HTML parser
// drops those tags and would run neighbouring cells together.
func strayCells(markup string) bool {
	lower := strings.ToLower(markup)
	if strings.Contains(lower, "<table") {
		return false
	}
	return strings.Contains(lower, "<td") || strings.Contains(lower, "<th") ||
		strings.Contains(lower, "<tr>") || strings.Contains(lower, "<tr ")
}

// blockBuilder appends blocks to out, collecting loose inline content into an
// implicit paragraph (or heading) that is flushed at the next block boundary.
type blockBuilder struct {
	out     *[]Node
	level   int
	attrs   Attrs
	content []Node
}

func (b *blockBuilder) node(n *html.Node, marks []Mark) {
	switch n.Type {
	case html.TextNode:
		b.text(n.Data, marks)
		return
	case html.ElementNode:
	case html.DocumentNode:
		b.children(n, marks)
		return
	default:
		return
	}

	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Head, atom.Title, atom.Template:
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		b.textblock(n, marks, int(n.Data[1]-'0'))
	case atom.P:
		b.textblock(n, marks, 0)
	case atom.Div, atom.Blockquote, atom.Pre, atom.Section, atom.Article, atom.Main,
		atom.Header, atom.Footer, atom.Aside, atom.Nav, atom.Body, atom.Html, atom.Li,
		atom.Table, atom.Thead, atom.Tbody, atom.Tfoot, atom.Tr, atom.Td, atom.Th, atom.Caption:
		if hasBlockChild(n) {
			b.flush()
			b.children(n, marks)
			b.flush()
		} else {
			b.textblock(n, marks, 0)
		}
	case atom.Ul, atom.Ol:
		b.flush()
		if list := parseList(n, marks); list != nil {
			*b.out = append(*b.out, list)
		}
	case atom.Br:
		b.hardBreak(marks)
	case atom.Strong, atom.B:
		b.children(n, withMark(marks, Mark{Type: MarkBold}))
	case atom.Em, atom.I:
		b.children(n, withMark(marks, Mark{Type: MarkItalic}))
	case atom.U:
		b.children(n, withMark(marks, Mark{Type: MarkUnderline}))
	case atom.Mark:
		b.children(n, withMark(marks, Mark{Type: MarkHighlight}))
	case atom.S, atom.Del, atom.Strike:
		b.children(n, withMark(marks, Mark{Type: MarkStrike}))
	case atom.Code:
		b.children(n, withMark(marks, Mark{Type: MarkCode}))
	case atom.A:
		if href := attr(n, "href"); href != "" {
			marks = withMark(marks, Mark{Type: MarkLink, Attrs: Attrs{"href": href}})
		}
		b.children(n, marks)
	default:
		b.children(n, marks)
	}
}

func (b *blockBuilder) children(n *html.Node, marks []Mark) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.node(c, marks)
	}
}

func (b *blockBuilder) textblock(n *html.Node, marks []Mark, level int) {
	b.flush()
	b.level = level
	b.attrs = alignAttrs(n)
	b.children(n, marks)
	b.flush()
}

func (b *blockBuilder) text(s string, marks []Mark) {
	s = collapseSpace(s)
	if s == "" {
		return
	}
	var last *Text
	if n := len(b.content); n > 0 {
		last, _ = b.content[n-1].(*Text)
	}
	if last == nil || strings.HasSuffix(last.Text, " ") {
		s = strings.TrimLeft(s, " ")
		if s == "" {
			return
		}
	}
	if last != nil && marksEqual(last.Marks, marks) {
		last.Text += s
		return
	}
	b.content = append(b.content, &Text{Text: s, Marks: marks})
}

// flush closes the open textblock, dropping it when it holds no text.
func (b *blockBuilder) flush() {
	content := b.content
	level, attrs := b.level, b.attrs
	b.content, b.level, b.attrs = nil, 0, nil

	trimTrailing(&content)
	if len(content) == 0 {
		return
	}
	if level > 0 {
		if attrs == nil {
			attrs = Attrs{}
		}
		attrs["level"] = level
		*b.out = append(*b.out, &Heading{Attrs: attrs, Content: content})
		return
	}
	*b.out = append(*b.out, &Paragraph{Attrs: attrs, Content: content})
}

// hardBreak ends the current line. Breaks before any text are dropped.
func (b *blockBuilder) hardBreak(marks []Mark) {
	n := len(b.content)
	if n == 0 {
		return
	}
	if last, ok := b.content[n-1].(*Text); ok {
		last.Text = strings.TrimRight(last.Text, " ")
		if last.Text == "" {
			b.content = b.content[:n-1]
			if n == 1 {
				return
			}
		}
	}
	b.content = append(b.content, &HardBreak{Marks: marks})
}

// trimTrailing strips trailing spaces and hard breaks from inline content.
func trimTrailing(content *[]Node) {
	for n := len(*content); n > 0; n = len(*content) {
		if last, ok := (*content)[n-1].(*Text); ok {
			last.Text = strings.TrimRight(last.Text, " ")
			if last.Text != "" {
				return
			}
		}
		*content = (*content)[:n-1]
	}
}

func parseList(n *html.Node, marks []Mark) Node {
	var items []Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode && strings.TrimSpace(c.Data) == "" {
			continue
		}
		item := &ListItem{}
		b := &blockBuilder{out: &item.Content}
		if c.Type == html.ElementNode && c.DataAtom == atom.Li {
			b.children(c, marks)
		} else {
			b.node(c, marks)
		}
		b.flush()
		if len(item.Content) == 0 {
			item.Content = []Node{&Paragraph{}}
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil
	}
	if n.DataAtom == atom.Ol {
		list := &OrderedList{Content: items}
		if start, err := strconv.Atoi(attr(n, "start")); err == nil && start > 1 {
			list.Attrs = Attrs{"start": start}
		}
		return list
	}
	return &BulletList{Content: items}
}

var blockAtoms = map[atom.Atom]bool{
	atom.P: true, atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Div: true, atom.Blockquote: true, atom.Pre: true, atom.Ul: true, atom.Ol: true, atom.Li: true,
	atom.Section: true, atom.Article: true, atom.Main: true, atom.Header: true, atom.Footer: true,
	atom.Aside: true, atom.Nav: true, atom.Table: true, atom.Tr: true, atom.Td: true, atom.Th: true,
	atom.Caption: true,
}

func hasBlockChild(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if blockAtoms[c.DataAtom] || hasBlockChild(c) {
			return true
		}
	}
	return false
}

func withMark(marks []Mark, m Mark) []Mark {
	for _, existing := range marks {
		if existing.Type == m.Type {
			return marks
		}
	}
	out := make([]Mark, len(marks), len(marks)+1)
	copy(out, marks)
	return append(out, m)
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func alignAttrs(n *html.Node) Attrs {
	align := strings.ToLower(attr(n, "align"))
	for _, decl := range strings.Split(attr(n, "style"), ";") {
		prop, value, ok := strings.Cut(decl, ":")
		if ok && strings.EqualFold(strings.TrimSpace(prop), "text-align") {
			align = strings.ToLower(strings.TrimSpace(value))
		}
	}
	switch align {
	case "left", "center", "right", "justify":
		return Attrs{"textAlign": align}
	default:
		return nil
	}
}

func collapseSpace(s string) string {
	var b strings.Builder
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteRune(r)
	}
	if space {
		b.WriteByte(' ')
	}
	return b.String()
}
