package search

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true: if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search matches notes.fts with plainto_tsquery, ranked by ts_rank, with a
// ts_headline snippet over the note body.
func (p *PgFTS) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	where := fmt.Sprintf(`n.fts @@ %s AND (
		n.visibility = 'public'
		OR n.user_id = $2
		OR (n.visibility = 'group' AND n.group_id IN (SELECT group_id FROM group_members WHERE user_id = $2))
	)`, tsQuery)
	args := []any{q.Text, q.UserID}
	if q.Subject != "" {
		args = append(args, q.Subject)
		where += fmt.Sprintf(" AND s.name = $%d", len(args))
	}

	from := "FROM notes n JOIN subjects s ON s.id = n.subject_id WHERE " + where

	var total int
	if err := p.db.QueryRowContext(ctx, "SELECT count(*) "+from, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	dataSQL := fmt.Sprintf(`SELECT n.id, n.title,
			ts_headline('english', coalesce(nullif(n.body_text, ''), n.excerpt), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
			s.name, n.tags, n.visibility, n.user_id, coalesce(n.group_id, '')
		%s
		ORDER BY ts_rank(n.fts, %s) DESC, n.updated_at DESC
		LIMIT %d OFFSET %d`, tsQuery, from, tsQuery, limit, offset)

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	results := make([]Result, 0)
	for rows.Next() {
		var (
			r       Result
			tagsRaw []byte
		)
		if err := rows.Scan(&r.ID, &r.Title, &r.Snippet, &r.Subject, &tagsRaw, &r.Visibility, &r.UserID, &r.GroupID); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Tags = decodeTags(tagsRaw)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns every note as an index record for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]NoteRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT n.id, n.title, n.excerpt, s.name, n.tags, n.body_text, n.visibility, n.user_id, coalesce(n.group_id, '')
		FROM notes n
		JOIN subjects s ON s.id = n.subject_id
	`)
	if err != nil {
		return nil, fmt.Errorf("load notes: %w", err)
	}
	defer rows.Close()

	notes := make([]NoteRecord, 0)
	for rows.Next() {
		var (
			n       NoteRecord
			tagsRaw []byte
		)
		if err := rows.Scan(&n.ID, &n.Title, &n.Excerpt, &n.Subject, &tagsRaw, &n.Body, &n.Visibility, &n.UserID, &n.GroupID); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		n.Tags = decodeTags(tagsRaw)
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return notes, nil
}

func decodeTags(raw []byte) []string {
	tags := []string{}
	_ = json.Unmarshal(raw, &tags)
	if tags == nil {
		tags = []string{}
	}
	return tags
}
