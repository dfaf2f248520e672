package search

import "context"

// Result is a single search hit returned to the caller.
type Result struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Snippet    string   `json:"snippet"`
	Subject    string   `json:"subject"`
	Tags       []string `json:"tags"`
	Visibility string   `json:"visibility"`
	UserID     string   `json:"userId"`
	GroupID    string   `json:"groupId,omitempty"`
}

// Query describes a search request. Results are limited to notes the caller
// can read: public notes, their own notes and notes shared with GroupIDs.
type Query struct {
	Text     string
	UserID   string
	GroupIDs []string
	Subject  string // empty = all subjects
	Limit    int
	Offset   int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push notes into a search index.
type Indexer interface {
	IndexNote(note NoteRecord) error
	IndexNotes(notes []NoteRecord) error
	DeleteNote(id string) error
}

// NoteRecord is the data we index for a note. Body is the plain text of the
// note content.
type NoteRecord struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Excerpt    string   `json:"excerpt"`
	Subject    string   `json:"subject"`
	Tags       []string `json:"tags"`
	Body       string   `json:"body"`
	Visibility string   `json:"visibility"`
	UserID     string   `json:"userId"`
	GroupID    string   `json:"groupId"`
}

// Readable reports whether a hit may be shown to the querying user.
func (q Query) Readable(r Result) bool {
	switch {
	case r.UserID == q.UserID && q.UserID != "":
		return true
	case r.Visibility == "public":
		return true
	case r.Visibility == "group":
		for _, id := range q.GroupIDs {
			if id == r.GroupID {
				return true
			}
		}
	}
	return false
}
