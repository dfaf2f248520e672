package document

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	lineBreak      = 1
	paragraphBreak = 2
)

// PlainText flattens doc into whitespace-normalised text. Headings and paragraphs
// are separated by a blank line, list items by a newline. Marks add nothing and
// links keep only their visible text. An empty or unsupported tree yields "".
func PlainText(doc *Document) string {
	markup := Markup(doc)
	if markup == "" {
		return ""
	}
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	f := &flattener{}
	f.walk(root, 0)
	return f.String()
}

// flattener accumulates text, owing line breaks and spaces lazily so that no
// leading, trailing or repeated whitespace is ever written.
type flattener struct {
	b       strings.Builder
	pending int
	space   bool
}

func (f *flattener) walk(n *html.Node, listDepth int) {
	switch n.Type {
	case html.TextNode:
		f.text(n.Data)
		return
	case html.ElementNode:
	default:
		f.children(n, listDepth)
		return
	}

	switch n.DataAtom {
	case atom.Br:
		f.block(lineBreak)
	case atom.P, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Blockquote, atom.Pre, atom.Div:
		sep := paragraphBreak
		if listDepth > 0 {
			sep = lineBreak
		}
		f.block(sep)
		f.children(n, listDepth)
		f.block(sep)
	case atom.Ul, atom.Ol:
		sep := paragraphBreak
		if listDepth > 0 {
			sep = lineBreak
		}
		f.block(sep)
		f.children(n, listDepth+1)
		f.block(sep)
	case atom.Li:
		f.block(lineBreak)
		f.children(n, listDepth)
		f.block(lineBreak)
	case atom.Script, atom.Style, atom.Head:
	default:
		f.children(n, listDepth)
	}
}

func (f *flattener) children(n *html.Node, listDepth int) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		f.walk(c, listDepth)
	}
}

func (f *flattener) block(breaks int) {
	if breaks > f.pending {
		f.pending = breaks
	}
	f.space = false
}

func (f *flattener) text(s string) {
	for _, r := range s {
		if unicode.IsSpace(r) {
			f.space = true
			continue
		}
		if f.b.Len() > 0 {
			if f.pending > 0 {
				f.b.WriteString(strings.Repeat("\n", f.pending))
			} else if f.space {
				f.b.WriteByte(' ')
			}
		}
		f.pending = 0
		f.space = false
		f.b.WriteRune(r)
	}
}

func (f *flattener) String() string {
	return f.b.String()
}
