package document

import (
	"strings"
	"unicode/utf8"
)

// DefaultExcerptLength is the number of characters kept in a note excerpt.
const DefaultExcerptLength = 200

// Stats holds counts derived from a document's plain text.
type Stats struct {
	Words      int `json:"words"`
	Characters int `json:"characters"`
}

// StatsOf computes word and character counts over the plain text of doc.
func StatsOf(doc *Document) Stats {
	text := PlainText(doc)
	return Stats{Words: CountWords(text), Characters: CountCharacters(text)}
}

// CountWords counts whitespace-delimited tokens.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// CountCharacters counts every character, whitespace included.
func CountCharacters(text string) int {
	return utf8.RuneCountInString(text)
}

// Excerpt returns the first limit characters of the document text on a single
// line, followed by "..." when the text was cut.
func Excerpt(doc *Document, limit int) string {
	if limit <= 0 {
		limit = DefaultExcerptLength
	}
	text := strings.Join(strings.Fields(PlainText(doc)), " ")
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return strings.TrimRight(string(runes[:limit]), " ") + "..."
}
