package search

import (
	"context"
	"log"
	"sync"
)

// Index is a search engine that can also be written to.
type Index interface {
	Searcher
	Indexer
}

// RecordLoader supplies every note for a full reindex.
type RecordLoader interface {
	LoadAllRecords(ctx context.Context) ([]NoteRecord, error)
}

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	index    Index
	fallback Searcher
	loader   RecordLoader
	pending  sync.WaitGroup
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, pgfts *PgFTS) *Service {
	s := &Service{}
	if meili != nil {
		s.index = meili
	}
	if pgfts != nil {
		s.fallback = pgfts
		s.loader = pgfts
	}
	return s
}

// NewServiceWith wires arbitrary engines; any argument may be nil.
func NewServiceWith(index Index, fallback Searcher, loader RecordLoader) *Service {
	return &Service{index: index, fallback: fallback, loader: loader}
}

// Search tries the index if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.index != nil && s.index.Healthy() {
		results, total, err := s.index.Search(ctx, q)
		if err == nil {
			return Response{Results: readable(nonNil(results), q), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to pgfts: %v", err)
	}

	if s.fallback == nil {
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	results, total, err := s.fallback.Search(ctx, q)
	if err != nil {
		log.Printf("search: pgfts error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: readable(nonNil(results), q), Total: total, Query: q.Text}
}

// IndexNote indexes a note (fire-and-forget).
func (s *Service) IndexNote(note NoteRecord) {
	if s.index == nil || !s.index.Healthy() {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.index.IndexNote(note); err != nil {
			log.Printf("search: index note %s: %v", note.ID, err)
		}
	}()
}

// DeleteNote removes a note from the search index (fire-and-forget).
func (s *Service) DeleteNote(id string) {
	if s.index == nil || !s.index.Healthy() {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.index.DeleteNote(id); err != nil {
			log.Printf("search: delete note %s: %v", id, err)
		}
	}()
}

// Wait blocks until in-flight index writes finish.
func (s *Service) Wait() {
	s.pending.Wait()
}

// ReindexAll reads every note from PG and pushes it to the index.
func (s *Service) ReindexAll(ctx context.Context) {
	if s.index == nil || !s.index.Healthy() || s.loader == nil {
		return
	}
	notes, err := s.loader.LoadAllRecords(ctx)
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	if err := s.index.IndexNotes(notes); err != nil {
		log.Printf("search: reindex notes: %v", err)
		return
	}
	log.Printf("search: reindexed %d notes", len(notes))
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}

func readable(results []Result, q Query) []Result {
	filtered := make([]Result, 0, len(results))
	for _, result := range results {
		if q.Readable(result) {
			filtered = append(filtered, result)
		}
	}
	return filtered
}
