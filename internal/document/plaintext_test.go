package document

import (
	"strings"
	"testing"
)

func TestPlainText(t *testing.T) {
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
			name:     "document without children",
			doc:      New(),
			expected: "",
		},
		{
			name:     "only empty paragraphs",
			doc:      New(&Paragraph{}, &Paragraph{}, NewParagraph("")),
			expected: "",
		},
		{
			name:     "two paragraphs",
			doc:      New(NewParagraph("A"), NewParagraph("B")),
			expected: "A\n\nB",
		},
		{
			name:     "hard break",
			doc:      New(&Paragraph{Content: []Node{&Text{Text: "line1"}, &HardBreak{}, &Text{Text: "line2"}}}),
			expected: "line1\nline2",
		},
		{
			name:     "heading then paragraph",
			doc:      New(NewHeading(1, "Title"), NewParagraph("Body text")),
			expected: "Title\n\nBody text",
		},
		{
			name: "marks add no separators",
			doc: New(&Paragraph{Content: []Node{
				&Text{Text: "bold", Marks: []Mark{{Type: MarkBold}}},
				&Text{Text: "italic", Marks: []Mark{{Type: MarkItalic}}},
				&Text{Text: " plain"},
			}}),
			expected: "bolditalic plain",
		},
		{
			name: "link keeps visible text only",
			doc: New(&Paragraph{Content: []Node{
				&Text{Text: "see "},
				&Text{Text: "the docs", Marks: []Mark{{Type: MarkLink, Attrs: Attrs{"href": "https://example.com/x"}}}},
				&Text{Text: " now"},
			}}),
			expected: "see the docs now",
		},
		{
			name: "bullet list items on their own lines",
			doc: New(
				&BulletList{Content: []Node{
					&ListItem{Content: []Node{NewParagraph("one")}},
					&ListItem{Content: []Node{NewParagraph("two")}},
				}},
				NewParagraph("after"),
			),
			expected: "one\ntwo\n\nafter",
		},
		{
			name: "nested ordered list",
			doc: New(&OrderedList{Content: []Node{
				&ListItem{Content: []Node{
					NewParagraph("outer"),
					&BulletList{Content: []Node{
						&ListItem{Content: []Node{NewParagraph("inner")}},
					}},
				}},
				&ListItem{Content: []Node{NewParagraph("second")}},
			}}),
			expected: "outer\ninner\nsecond",
		},
		{
			name: "empty text run keeps block separation",
			doc: New(
				&Paragraph{Content: []Node{&Text{Text: ""}}},
				NewParagraph("A"),
				&Paragraph{Content: []Node{&Text{Text: ""}}},
				NewParagraph("B"),
			),
			expected: "A\n\nB",
		},
		{
			name: "unknown node contributes nothing",
			doc: New(
				NewParagraph("A"),
				&Unknown{Type: "youtube", Raw: []byte(`{"type":"youtube","attrs":{"src":"x"}}`)},
				NewParagraph("B"),
			),
			expected: "A\n\nB",
		},
		{
			name:     "whitespace collapses",
			doc:      New(NewParagraph("  many   spaces\tand\nlines  ")),
			expected: "many spaces and lines",
		},
		{
			name:     "markup characters survive",
			doc:      New(NewParagraph(`a < b & "c" > d`)),
			expected: `a < b & "c" > d`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PlainText(tt.doc)
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestPlainTextIsDeterministic(t *testing.T) {
	doc := sampleDocument()
	first := PlainText(doc)
	second := PlainText(doc)
	if first != second {
		t.Fatalf("extraction not deterministic: %q vs %q", first, second)
	}
	if strings.TrimSpace(first) != first {
		t.Fatalf("result has surrounding whitespace: %q", first)
	}
	if strings.Contains(first, "\n\n\n") {
		t.Fatalf("blank lines not collapsed: %q", first)
	}
}

func TestPlainTextBlockSeparation(t *testing.T) {
	got := PlainText(New(NewParagraph("A"), NewParagraph("B")))
	a := strings.Index(got, "A")
	b := strings.Index(got, "B")
	if a < 0 || b < 0 || a > b {
		t.Fatalf("expected A before B, got %q", got)
	}
	if !strings.Contains(got[a:b], "\n") {
		t.Fatalf("expected a line break between A and B, got %q", got)
	}
}

func TestPlainTextOfParsedTableCells(t *testing.T) {
	doc, err := ParseMarkup("<td>a</td><td>b</td>")
	if err != nil {
		t.Fatalf("ParseMarkup: %v", err)
	}
	if got := PlainText(doc); got == "ab" || !strings.Contains(got, "a") || !strings.Contains(got, "b") {
		t.Fatalf("expected separated cells, got %q", got)
	}
}
