package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"studynotes/api/internal/util"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

const noteColumns = `
	n.id, n.user_id, n.title, n.excerpt, n.content_key, n.subject_id, s.name,
	n.tags, n.visibility, n.group_id, n.word_count, n.body_text, n.created_at, n.updated_at`

const noteFrom = `FROM notes n JOIN subjects s ON s.id = n.subject_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (Note, error) {
	var (
		note    Note
		tagsRaw []byte
		groupID sql.NullString
	)
	if err := row.Scan(
		&note.ID,
		&note.UserID,
		&note.Title,
		&note.Excerpt,
		&note.ContentKey,
		&note.SubjectID,
		&note.Subject,
		&tagsRaw,
		&note.Visibility,
		&groupID,
		&note.WordCount,
		&note.BodyText,
		&note.CreatedAt,
		&note.UpdatedAt,
	); err != nil {
		return Note{}, err
	}
	note.GroupID = groupID.String
	_ = json.Unmarshal(tagsRaw, &note.Tags)
	if note.Tags == nil {
		note.Tags = []string{}
	}
	return note, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("marshal tags: %w", err)
	}
	return string(encoded), nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func (s *PostgresStore) InsertNote(ctx context.Context, note Note) error {
	tags, err := encodeTags(note.Tags)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notes (id, user_id, title, excerpt, content_key, subject_id, tags, visibility, group_id, word_count, body_text)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10, $11)
	`, note.ID, note.UserID, note.Title, note.Excerpt, note.ContentKey, note.SubjectID, tags,
		note.Visibility, nullIfEmpty(note.GroupID), note.WordCount, note.BodyText)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

// GetNote returns sql.ErrNoRows when the note does not exist.
func (s *PostgresStore) GetNote(ctx context.Context, noteID string) (Note, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+noteColumns+` `+noteFrom+` WHERE n.id=$1`, noteID)
	note, err := scanNote(row)
	if err != nil {
		return Note{}, err
	}
	return note, nil
}

// SwapNoteContent points the note at a new content blob and updates its
// details in one statement. It only succeeds while the note still references
// oldKey; otherwise ErrContentConflict is returned and nothing changes.
func (s *PostgresStore) SwapNoteContent(ctx context.Context, noteID, oldKey string, content NoteContent, details NoteDetails) error {
	tags, err := encodeTags(details.Tags)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE notes
		SET content_key=$3, excerpt=$4, word_count=$5, body_text=$6,
			title=$7, subject_id=$8, tags=$9::jsonb, visibility=$10, group_id=$11,
			updated_at=NOW()
		WHERE id=$1 AND content_key=$2
	`, noteID, oldKey, content.ContentKey, content.Excerpt, content.WordCount, content.BodyText,
		details.Title, details.SubjectID, tags, details.Visibility, nullIfEmpty(details.GroupID))
	if err != nil {
		return fmt.Errorf("swap note content: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("swap note content: %w", err)
	}
	if affected == 0 {
		if _, err := s.GetNote(ctx, noteID); err != nil {
			return err
		}
		return ErrContentConflict
	}
	return nil
}

func (s *PostgresStore) UpdateNoteDetails(ctx context.Context, noteID string, details NoteDetails) error {
	tags, err := encodeTags(details.Tags)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE notes
		SET title=$2, subject_id=$3, tags=$4::jsonb, visibility=$5, group_id=$6, updated_at=NOW()
		WHERE id=$1
	`, noteID, details.Title, details.SubjectID, tags, details.Visibility, nullIfEmpty(details.GroupID))
	if err != nil {
		return fmt.Errorf("update note details: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) DeleteNote(ctx context.Context, noteID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id=$1`, noteID)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListPublicNotes returns one page of public notes, newest first, and the
// total number of matches.
func (s *PostgresStore) ListPublicNotes(ctx context.Context, search string, limit, offset int) ([]Note, int, error) {
	return s.listNotes(ctx, "n.visibility = 'public'", nil, search, limit, offset)
}

// ListUserNotes returns notes owned by userID regardless of visibility.
func (s *PostgresStore) ListUserNotes(ctx context.Context, userID, search string, limit, offset int) ([]Note, int, error) {
	return s.listNotes(ctx, "n.user_id = $1", []any{userID}, search, limit, offset)
}

// ListUserPublicNotes returns the public notes owned by userID.
func (s *PostgresStore) ListUserPublicNotes(ctx context.Context, userID, search string, limit, offset int) ([]Note, int, error) {
	return s.listNotes(ctx, "n.user_id = $1 AND n.visibility = 'public'", []any{userID}, search, limit, offset)
}

func (s *PostgresStore) ListGroupNotes(ctx context.Context, groupID string, limit, offset int) ([]Note, int, error) {
	return s.listNotes(ctx, "n.visibility = 'group' AND n.group_id = $1", []any{groupID}, "", limit, offset)
}

func (s *PostgresStore) listNotes(ctx context.Context, where string, args []any, search string, limit, offset int) ([]Note, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if search = strings.TrimSpace(search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		n := len(args)
		where += fmt.Sprintf(" AND (n.title ILIKE $%d OR n.excerpt ILIKE $%d OR s.name ILIKE $%d OR n.tags::text ILIKE $%d)", n, n, n, n)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) `+noteFrom+` WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notes: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY n.updated_at DESC, n.id LIMIT $%d OFFSET $%d`,
		noteColumns, noteFrom, where, len(args)+1, len(args)+2)
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	items := make([]Note, 0)
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan note: %w", err)
		}
		items = append(items, note)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate notes: %w", err)
	}
	return items, total, nil
}

func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}

// EnsureSubject returns the subject with the given name, creating it if needed.
func (s *PostgresStore) EnsureSubject(ctx context.Context, name string) (Subject, error) {
	var subject Subject
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO subjects (id, name)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name=EXCLUDED.name
		RETURNING id, name
	`, util.NewID("subj"), name).Scan(&subject.ID, &subject.Name)
	if err != nil {
		return Subject{}, fmt.Errorf("ensure subject: %w", err)
	}
	return subject, nil
}

// InsertGroup creates the group with its owner as the first member.
func (s *PostgresStore) InsertGroup(ctx context.Context, group Group) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert group tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO study_groups (id, name, description, owner_id, is_public, max_members)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, group.ID, group.Name, group.Description, group.OwnerID, group.IsPublic, group.MaxMembers); err != nil {
		return fmt.Errorf("insert group: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO group_members (group_id, user_id) VALUES ($1, $2)
	`, group.ID, group.OwnerID); err != nil {
		return fmt.Errorf("insert group owner: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert group: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetGroup(ctx context.Context, groupID string) (Group, error) {
	var group Group
	err := s.db.QueryRowContext(ctx, `
		SELECT g.id, g.name, g.description, g.owner_id, g.is_public, g.max_members, g.created_at,
			(SELECT count(*) FROM group_members m WHERE m.group_id = g.id)
		FROM study_groups g
		WHERE g.id=$1
	`, groupID).Scan(&group.ID, &group.Name, &group.Description, &group.OwnerID, &group.IsPublic, &group.MaxMembers, &group.CreatedAt, &group.MemberCount)
	if err != nil {
		return Group{}, err
	}
	return group, nil
}

// ListPublicGroups pages through public groups, newest first, matching
// search against name and description.
func (s *PostgresStore) ListPublicGroups(ctx context.Context, search string, limit, offset int) ([]Group, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	where := "g.is_public"
	args := []any{}
	if search = strings.TrimSpace(search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		where += " AND (g.name ILIKE $1 OR g.description ILIKE $1)"
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM study_groups g WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count groups: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT g.id, g.name, g.description, g.owner_id, g.is_public, g.max_members, g.created_at,
			(SELECT count(*) FROM group_members m WHERE m.group_id = g.id)
		FROM study_groups g
		WHERE %s
		ORDER BY g.created_at DESC, g.id
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	items := make([]Group, 0)
	for rows.Next() {
		var group Group
		if err := rows.Scan(&group.ID, &group.Name, &group.Description, &group.OwnerID, &group.IsPublic, &group.MaxMembers, &group.CreatedAt, &group.MemberCount); err != nil {
			return nil, 0, fmt.Errorf("scan group: %w", err)
		}
		items = append(items, group)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate groups: %w", err)
	}
	return items, total, nil
}

// AddGroupMember joins userID to the group. Joining twice is a no-op; a group
// at capacity yields ErrGroupFull and a missing group sql.ErrNoRows.
func (s *PostgresStore) AddGroupMember(ctx context.Context, groupID, userID string) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO group_members (group_id, user_id)
		SELECT $1, $2
		WHERE (SELECT count(*) FROM group_members WHERE group_id=$1)
			< (SELECT max_members FROM study_groups WHERE id=$1)
		ON CONFLICT (group_id, user_id) DO NOTHING
	`, groupID, userID)
	if err != nil {
		return fmt.Errorf("add group member: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("add group member: %w", err)
	}
	if affected > 0 {
		return nil
	}

	member, err := s.IsGroupMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if member {
		return nil
	}
	if _, err := s.GetGroup(ctx, groupID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("read group: %w", err)
	}
	return ErrGroupFull
}

func (s *PostgresStore) IsGroupMember(ctx context.Context, groupID, userID string) (bool, error) {
	var member bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM group_members WHERE group_id=$1 AND user_id=$2)
	`, groupID, userID).Scan(&member)
	if err != nil {
		return false, fmt.Errorf("check group member: %w", err)
	}
	return member, nil
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ListUserGroupIDs returns the ids of every group userID belongs to.
func (s *PostgresStore) ListUserGroupIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT group_id FROM group_members WHERE user_id=$1 ORDER BY group_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user groups: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan group id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user groups: %w", err)
	}
	return ids, nil
}
