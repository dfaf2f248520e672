package document

import (
	"strings"
	"testing"
)

func TestMarkup(t *testing.T) {
	tests := []struct {
		name     string
		doc      *Document
		expected string
	}{
		{
			name:     "nil document",
			doc:      nil,
			expected: "",
		},
		{
			name:     "simple paragraph",
			doc:      New(NewParagraph("Hello world")),
			expected: "<p>Hello world</p>",
		},
		{
			name:     "heading with level",
			doc:      New(NewHeading(2, "Section Title")),
			expected: "<h2>Section Title</h2>",
		},
		{
			name:     "heading level clamped",
			doc:      New(&Heading{Attrs: Attrs{"level": 9.0}, Content: []Node{&Text{Text: "Deep"}}}),
			expected: "<h6>Deep</h6>",
		},
		{
			name: "bold and italic text",
			doc: New(&Paragraph{Content: []Node{
				&Text{Text: "Bold and italic", Marks: []Mark{{Type: MarkBold}, {Type: MarkItalic}}},
			}}),
			expected: "<strong><em>Bold and italic</em></strong>",
		},
		{
			name: "underline and highlight",
			doc: New(&Paragraph{Content: []Node{
				&Text{Text: "key", Marks: []Mark{{Type: MarkUnderline}, {Type: MarkHighlight}}},
			}}),
			expected: "<u><mark>key</mark></u>",
		},
		{
			name: "link href escaped",
			doc: New(&Paragraph{Content: []Node{
				&Text{Text: "go", Marks: []Mark{{Type: MarkLink, Attrs: Attrs{"href": `https://x.test/?a="b"`}}}},
			}}),
			expected: `<a href="https://x.test/?a=&#34;b&#34;">go</a>`,
		},
		{
			name:     "aligned paragraph",
			doc:      New(&Paragraph{Attrs: Attrs{"textAlign": "center"}, Content: []Node{&Text{Text: "mid"}}}),
			expected: `<p style="text-align: center">mid</p>`,
		},
		{
			name:     "left alignment is the default",
			doc:      New(&Paragraph{Attrs: Attrs{"textAlign": "left"}, Content: []Node{&Text{Text: "l"}}}),
			expected: "<p>l</p>",
		},
		{
			name: "bullet list",
			doc: New(&BulletList{Content: []Node{
				&ListItem{Content: []Node{NewParagraph("Item 1")}},
			}}),
			expected: "<ul>",
		},
		{
			name:     "ordered list start",
			doc:      New(&OrderedList{Attrs: Attrs{"start": 3.0}, Content: []Node{&ListItem{Content: []Node{NewParagraph("c")}}}}),
			expected: `<ol start="3">`,
		},
		{
			name:     "text escaped",
			doc:      New(NewParagraph("<script>")),
			expected: "&lt;script&gt;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Markup(tt.doc)
			if tt.expected == "" {
				if result != "" {
					t.Errorf("expected empty string, got %q", result)
				}
				return
			}
			if !strings.Contains(result, tt.expected) {
				t.Errorf("expected result to contain %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestMarkupSkipsUnknownNodes(t *testing.T) {
	doc := New(&Unknown{Type: "mathBlock", Raw: []byte(`{"type":"mathBlock","content":[{"type":"text","text":"x^2"}]}`)})
	if got := Markup(doc); got != "" {
		t.Errorf("expected unknown node to render as nothing, got %q", got)
	}
}

func TestMarkupHardBreak(t *testing.T) {
	doc := New(&Paragraph{Content: []Node{&Text{Text: "a"}, &HardBreak{}, &Text{Text: "b"}}})
	if got := Markup(doc); got != "<p>a<br>b</p>\n" {
		t.Errorf("unexpected markup %q", got)
	}
}
