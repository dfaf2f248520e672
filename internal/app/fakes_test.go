package app

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"studynotes/api/internal/ai"
	"studynotes/api/internal/auth"
	"studynotes/api/internal/config"
	"studynotes/api/internal/content"
	"studynotes/api/internal/export"
	"studynotes/api/internal/search"
	"studynotes/api/internal/store"
)

const testSecret = "test-secret"

// fakeStore keeps rows in maps. Function fields override single methods to
// inject failures.
type fakeStore struct {
	mu       sync.Mutex
	notes    map[string]store.Note
	subjects map[string]store.Subject
	groups   map[string]store.Group
	members  map[string]map[string]bool
	clock    time.Time

	insertNoteFn func(context.Context, store.Note) error
	swapFn       func(context.Context, string, string, store.NoteContent, store.NoteDetails) error
	swapAfterErr error
	pingFn       func(context.Context) error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		notes:    map[string]store.Note{},
		subjects: map[string]store.Subject{},
		groups:   map[string]store.Group{},
		members:  map[string]map[string]bool{},
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) tick() time.Time {
	f.clock = f.clock.Add(time.Minute)
	return f.clock
}

func (f *fakeStore) InsertNote(ctx context.Context, note store.Note) error {
	if f.insertNoteFn != nil {
		if err := f.insertNoteFn(ctx, note); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.tick()
	note.CreatedAt, note.UpdatedAt = now, now
	for _, subject := range f.subjects {
		if subject.ID == note.SubjectID {
			note.Subject = subject.Name
		}
	}
	f.notes[note.ID] = note
	return nil
}

func (f *fakeStore) GetNote(_ context.Context, id string) (store.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	note, ok := f.notes[id]
	if !ok {
		return store.Note{}, sql.ErrNoRows
	}
	return note, nil
}

func (f *fakeStore) applyDetails(note *store.Note, details store.NoteDetails) {
	note.Title = details.Title
	note.SubjectID = details.SubjectID
	for _, subject := range f.subjects {
		if subject.ID == details.SubjectID {
			note.Subject = subject.Name
		}
	}
	note.Tags = details.Tags
	note.Visibility = details.Visibility
	note.GroupID = details.GroupID
	note.UpdatedAt = f.tick()
}

func (f *fakeStore) SwapNoteContent(ctx context.Context, id, oldKey string, c store.NoteContent, details store.NoteDetails) error {
	if f.swapFn != nil {
		if err := f.swapFn(ctx, id, oldKey, c, details); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	note, ok := f.notes[id]
	if !ok {
		return sql.ErrNoRows
	}
	if note.ContentKey != oldKey {
		return store.ErrContentConflict
	}
	note.ContentKey, note.Excerpt, note.WordCount, note.BodyText = c.ContentKey, c.Excerpt, c.WordCount, c.BodyText
	f.applyDetails(&note, details)
	f.notes[id] = note
	return f.swapAfterErr
}

func (f *fakeStore) UpdateNoteDetails(_ context.Context, id string, details store.NoteDetails) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	note, ok := f.notes[id]
	if !ok {
		return sql.ErrNoRows
	}
	f.applyDetails(&note, details)
	f.notes[id] = note
	return nil
}

func (f *fakeStore) DeleteNote(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.notes[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.notes, id)
	return nil
}

func (f *fakeStore) list(match func(store.Note) bool, search string, limit, offset int) ([]store.Note, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []store.Note
	for _, note := range f.notes {
		if !match(note) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(note.Title), strings.ToLower(search)) {
			continue
		}
		matched = append(matched, note)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].UpdatedAt.After(matched[j].UpdatedAt) })
	total := len(matched)
	if offset >= total {
		return []store.Note{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (f *fakeStore) ListPublicNotes(_ context.Context, search string, limit, offset int) ([]store.Note, int, error) {
	return f.list(func(n store.Note) bool { return n.Visibility == store.VisibilityPublic }, search, limit, offset)
}

func (f *fakeStore) ListUserNotes(_ context.Context, userID, search string, limit, offset int) ([]store.Note, int, error) {
	return f.list(func(n store.Note) bool { return n.UserID == userID }, search, limit, offset)
}

func (f *fakeStore) ListUserPublicNotes(_ context.Context, userID, search string, limit, offset int) ([]store.Note, int, error) {
	return f.list(func(n store.Note) bool {
		return n.UserID == userID && n.Visibility == store.VisibilityPublic
	}, search, limit, offset)
}

func (f *fakeStore) ListGroupNotes(_ context.Context, groupID string, limit, offset int) ([]store.Note, int, error) {
	return f.list(func(n store.Note) bool {
		return n.Visibility == store.VisibilityGroup && n.GroupID == groupID
	}, "", limit, offset)
}

func (f *fakeStore) EnsureSubject(_ context.Context, name string) (store.Subject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if subject, ok := f.subjects[name]; ok {
		return subject, nil
	}
	subject := store.Subject{ID: "subj_" + strings.ToLower(name), Name: name}
	f.subjects[name] = subject
	return subject, nil
}

func (f *fakeStore) InsertGroup(_ context.Context, group store.Group) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	group.CreatedAt = f.tick()
	f.groups[group.ID] = group
	f.members[group.ID] = map[string]bool{group.OwnerID: true}
	return nil
}

func (f *fakeStore) GetGroup(_ context.Context, id string) (store.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	group, ok := f.groups[id]
	if !ok {
		return store.Group{}, sql.ErrNoRows
	}
	group.MemberCount = len(f.members[id])
	return group, nil
}

func (f *fakeStore) AddGroupMember(_ context.Context, groupID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	group, ok := f.groups[groupID]
	if !ok {
		return sql.ErrNoRows
	}
	if f.members[groupID][userID] {
		return nil
	}
	if len(f.members[groupID]) >= group.MaxMembers {
		return store.ErrGroupFull
	}
	f.members[groupID][userID] = true
	return nil
}

func (f *fakeStore) IsGroupMember(_ context.Context, groupID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.members[groupID][userID], nil
}

func (f *fakeStore) ListUserGroupIDs(_ context.Context, userID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := []string{}
	for groupID, members := range f.members {
		if members[userID] {
			ids = append(ids, groupID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeStore) ListPublicGroups(_ context.Context, search string, limit, offset int) ([]store.Group, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	needle := strings.ToLower(search)
	var matched []store.Group
	for id, group := range f.groups {
		if !group.IsPublic {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(group.Name+" "+group.Description), needle) {
			continue
		}
		group.MemberCount = len(f.members[id])
		matched = append(matched, group)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := len(matched)
	if offset >= total {
		return []store.Group{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (f *fakeStore) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}

// flakyBlobs wraps the memory repository with injectable failures.
type flakyBlobs struct {
	*content.Memory
	putErr    error
	deleteErr error
}

func (b *flakyBlobs) Put(ctx context.Context, key string, data []byte) error {
	if b.putErr != nil {
		return b.putErr
	}
	return b.Memory.Put(ctx, key, data)
}

func (b *flakyBlobs) Delete(ctx context.Context, key string) error {
	if b.deleteErr != nil {
		return b.deleteErr
	}
	return b.Memory.Delete(ctx, key)
}

type fakeSearch struct {
	mu        sync.Mutex
	indexed   []search.NoteRecord
	deleted   []string
	lastQuery search.Query
	results   []search.Result
}

func (f *fakeSearch) Search(_ context.Context, q search.Query) search.Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = q
	results := f.results
	if results == nil {
		results = []search.Result{}
	}
	return search.Response{Results: results, Total: len(results), Query: q.Text}
}

func (f *fakeSearch) IndexNote(note search.NoteRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, note)
}

func (f *fakeSearch) DeleteNote(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
}

// fakeProvider answers AI requests through generate.
type fakeProvider struct {
	generate func(context.Context, ai.Request) (string, error)
	calls    int
}

func (f *fakeProvider) Generate(ctx context.Context, req ai.Request) (string, error) {
	f.calls++
	if f.generate == nil {
		return "", nil
	}
	return f.generate(ctx, req)
}

type testEnv struct {
	store    *fakeStore
	blobs    *flakyBlobs
	search   *fakeSearch
	provider *fakeProvider
	service  *Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:    newFakeStore(),
		blobs:    &flakyBlobs{Memory: content.NewMemory()},
		search:   &fakeSearch{},
		provider: &fakeProvider{},
	}
	env.service = &Service{
		cfg:      config.Config{JWTSecret: testSecret},
		store:    env.store,
		blobs:    env.blobs,
		search:   env.search,
		exporter: export.NewServiceWith(nil, nil),
		ai:       ai.NewTransformer(env.provider, time.Second),
	}
	return env
}

func session(userID string) Session {
	return Session{UserID: userID, UserName: userID}
}

func testToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.IssueToken([]byte(testSecret), auth.Claims{Sub: userID, Name: userID, Exp: time.Now().Add(time.Hour).Unix()})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

const sampleContent = `{"type":"doc","content":[{"type":"heading","attrs":{"level":1},"content":[{"type":"text","text":"Mitosis"}]},{"type":"paragraph","content":[{"type":"text","text":"Cells divide into two daughter cells."}]}]}`

func createTestNote(t *testing.T, env *testEnv, userID, visibility, groupID string) string {
	t.Helper()
	payload, err := env.service.CreateNote(context.Background(), session(userID), CreateNoteInput{
		Title:      "Cell division",
		Subject:    "Biology",
		Tags:       []string{"cells"},
		Visibility: visibility,
		GroupID:    groupID,
		Content:    []byte(sampleContent),
	})
	if err != nil {
		t.Fatalf("create note: %v", err)
	}
	return payload["id"].(string)
}
