package document

import (
	"fmt"
	"html"
	"strings"
)

// Markup renders doc as HTML. It is the bridge used for plain-text extraction and
// for exports. Unknown nodes render as nothing.
func Markup(doc *Document) string {
	if doc == nil {
		return ""
	}
	var b strings.Builder
	renderNodes(&b, doc.Content)
	return b.String()
}

func renderNodes(b *strings.Builder, nodes []Node) {
	for _, n := range nodes {
		renderNode(b, n)
	}
}

func renderNode(b *strings.Builder, n Node) {
	switch v := n.(type) {
	case *Paragraph:
		fmt.Fprintf(b, "<p%s>", alignStyle(v.Attrs))
		renderNodes(b, v.Content)
		b.WriteString("</p>\n")
	case *Heading:
		level := v.Level()
		fmt.Fprintf(b, "<h%d%s>", level, alignStyle(v.Attrs))
		renderNodes(b, v.Content)
		fmt.Fprintf(b, "</h%d>\n", level)
	case *BulletList:
		b.WriteString("<ul>\n")
		renderNodes(b, v.Content)
		b.WriteString("</ul>\n")
	case *OrderedList:
		if start := orderedStart(v.Attrs); start > 1 {
			fmt.Fprintf(b, "<ol start=\"%d\">\n", start)
		} else {
			b.WriteString("<ol>\n")
		}
		renderNodes(b, v.Content)
		b.WriteString("</ol>\n")
	case *ListItem:
		b.WriteString("<li>")
		renderNodes(b, v.Content)
		b.WriteString("</li>\n")
	case *Text:
		b.WriteString(renderTextWithMarks(v.Text, v.Marks))
	case *HardBreak:
		b.WriteString("<br>")
	case *Unknown:
		// forward-compatible content has no rendering
	}
}

// renderTextWithMarks wraps escaped text in mark tags, first mark outermost.
func renderTextWithMarks(text string, marks []Mark) string {
	if text == "" {
		return ""
	}
	out := html.EscapeString(text)
	for i := len(marks) - 1; i >= 0; i-- {
		switch marks[i].Type {
		case MarkBold:
			out = "<strong>" + out + "</strong>"
		case MarkItalic:
			out = "<em>" + out + "</em>"
		case MarkUnderline:
			out = "<u>" + out + "</u>"
		case MarkHighlight:
			out = "<mark>" + out + "</mark>"
		case MarkStrike:
			out = "<s>" + out + "</s>"
		case MarkCode:
			out = "<code>" + out + "</code>"
		case MarkLink:
			href, _ := marks[i].Attrs["href"].(string)
			out = fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(href), out)
		}
	}
	return out
}

func alignStyle(attrs Attrs) string {
	align, _ := attrs["textAlign"].(string)
	switch align {
	case "center", "right", "justify":
		return fmt.Sprintf(` style="text-align: %s"`, align)
	default:
		return ""
	}
}

func orderedStart(attrs Attrs) int {
	switch v := attrs["start"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 1
	}
}
