// Package memstore is an in-process docstore.Store for tests and local development.
package memstore

import (
	"context"
	"sync"

	"github.com/MrEthical07/authcore/docstore"
	"github.com/google/uuid"
)

// Store keeps every collection as an insertion-ordered slice guarded by one mutex.
type Store struct {
	mu          sync.RWMutex
	collections map[string][]docstore.Document
}

var _ docstore.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{collections: make(map[string][]docstore.Document)}
}

func (s *Store) FindOne(ctx context.Context, collection string, filter docstore.Filter) (docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, doc := range s.collections[collection] {
		ok, err := docstore.Match(doc, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			return docstore.Clone(doc), nil
		}
	}
	return nil, docstore.ErrNotFound
}

func (s *Store) Find(ctx context.Context, collection string, filter docstore.Filter, opts docstore.FindOptions) ([]docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []docstore.Document
	for _, doc := range s.collections[collection] {
		ok, err := docstore.Match(doc, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, docstore.Clone(doc))
		}
	}
	return docstore.Sort(out, opts), nil
}

func (s *Store) InsertOne(ctx context.Context, collection string, doc docstore.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc = docstore.Clone(doc)
	if doc == nil {
		doc = docstore.Document{}
	}
	if doc.ID() == "" {
		doc[docstore.IDField] = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.collections[collection] {
		if existing.ID() == doc.ID() {
			return docstore.ErrDuplicate
		}
	}
	s.collections[collection] = append(s.collections[collection], doc)
	return nil
}

func (s *Store) UpdateOne(ctx context.Context, collection string, filter docstore.Filter, update docstore.Update) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.collections[collection]
	for i, doc := range docs {
		ok, err := docstore.Match(doc, filter)
		if err != nil {
			return 0, err
		}
		if ok {
			docs[i] = docstore.Apply(doc, update)
			return 1, nil
		}
	}
	return 0, nil
}

func (s *Store) DeleteOne(ctx context.Context, collection string, filter docstore.Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.collections[collection]
	for i, doc := range docs {
		ok, err := docstore.Match(doc, filter)
		if err != nil {
			return 0, err
		}
		if ok {
			s.collections[collection] = append(docs[:i:i], docs[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (s *Store) DeleteMany(ctx context.Context, collection string, filter docstore.Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.collections[collection]
	kept := docs[:0:0]
	var deleted int64
	for _, doc := range docs {
		ok, err := docstore.Match(doc, filter)
		if err != nil {
			return 0, err
		}
		if ok {
			deleted++
			continue
		}
		kept = append(kept, doc)
	}
	s.collections[collection] = kept
	return deleted, nil
}

// Len reports how many documents a collection holds.
func (s *Store) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}
