package document

import (
	"errors"
	"testing"
)

func TestCloneIsIndependent(t *testing.T) {
	original := sampleDocument()
	copied := Clone(original)
	if !Equal(original, copied) {
		t.Fatal("clone differs from original")
	}

	heading := copied.Content[0].(*Heading)
	heading.Attrs["level"] = 4
	heading.Content[0].(*Text).Text = "changed"
	copied.Content = append(copied.Content, NewParagraph("extra"))

	if Equal(original, copied) {
		t.Fatal("mutating the clone should not leave trees equal")
	}
	if original.Content[0].(*Heading).Level() != 2 {
		t.Errorf("original heading level changed")
	}
	if original.Content[0].(*Heading).Content[0].(*Text).Text != "Cell Biology" {
		t.Errorf("original text changed")
	}
}

func TestEqual(t *testing.T) {
	base := New(NewParagraph("a"))
	tests := []struct {
		name  string
		other *Document
		want  bool
	}{
		{name: "same", other: New(NewParagraph("a")), want: true},
		{name: "nil vs empty attrs", other: New(&Paragraph{Attrs: Attrs{}, Content: []Node{&Text{Text: "a"}}}), want: true},
		{name: "different text", other: New(NewParagraph("b")), want: false},
		{name: "different kind", other: New(NewHeading(1, "a")), want: false},
		{name: "extra mark", other: New(&Paragraph{Content: []Node{&Text{Text: "a", Marks: []Mark{{Type: MarkBold}}}}}), want: false},
		{name: "extra block", other: New(NewParagraph("a"), NewParagraph("")), want: false},
		{name: "nil", other: nil, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(base, tt.other); got != tt.want {
				t.Errorf("Equal = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		doc     *Document
		wantErr bool
	}{
		{name: "sample", doc: sampleDocument()},
		{name: "empty", doc: New()},
		{name: "nil", doc: nil, wantErr: true},
		{name: "nil child", doc: New(&BulletList{Content: []Node{nil}}), wantErr: true},
		{name: "duplicate marks", doc: New(&Paragraph{Content: []Node{&Text{Text: "x", Marks: []Mark{{Type: MarkBold}, {Type: MarkBold}}}}}), wantErr: true},
		{name: "unknown wrapping known type", doc: New(&Unknown{Type: "paragraph"}), wantErr: true},
		{name: "unknown without type", doc: New(&Unknown{}), wantErr: true},
		{name: "invalid utf-8 text", doc: New(NewParagraph("a\xffb")), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.doc)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedContent) {
					t.Fatalf("expected ErrMalformedContent, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestWalkAndIsEmpty(t *testing.T) {
	var kinds []Kind
	Walk(sampleDocument(), func(n Node) bool {
		kinds = append(kinds, n.Kind())
		return n.Kind() != KindBulletList && n.Kind() != KindOrderedList
	})
	for _, k := range kinds {
		if k == KindListItem {
			t.Fatal("walk descended into a skipped list")
		}
	}
	if len(kinds) == 0 || kinds[0] != KindHeading {
		t.Fatalf("unexpected visit order: %v", kinds)
	}

	if !IsEmpty(New(&Paragraph{}, NewParagraph(""))) {
		t.Error("expected document with empty paragraphs to be empty")
	}
	if IsEmpty(sampleDocument()) {
		t.Error("expected sample document not to be empty")
	}
}
