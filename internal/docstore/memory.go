package docstore

import (
	"context"
	"sync"
	"sync/atomic"
)

// MemoryStore is an in-memory Store implementation. It backs tests and the
// `--store memory` development mode, and honors the same atomicity contract
// as the real store: increments are atomic and batch commits apply under a
// single lock.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document

	commits atomic.Int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]Document),
	}
}

// BatchCommits returns the number of batch commits applied.
// Test hook for verifying chunking behavior.
func (s *MemoryStore) BatchCommits() int64 {
	return s.commits.Load()
}

func (s *MemoryStore) Get(ctx context.Context, collection, key string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.collections[collection][key]
	if !ok {
		return nil, ErrNotFound
	}
	return copyWithKey(doc, key), nil
}

func (s *MemoryStore) Set(ctx context.Context, collection, key string, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(collection, key, doc)
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, key string, fields Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.collections[collection][key]
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		doc[k] = v
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[collection][key]; !ok {
		return ErrNotFound
	}
	delete(s.collections[collection], key)
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []Document
	for key, doc := range s.collections[collection] {
		if matches(doc, filter) {
			results = append(results, copyWithKey(doc, key))
		}
	}
	return results, nil
}

func (s *MemoryStore) Increment(ctx context.Context, collection, key, field string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, ok := s.collections[collection]
	if !ok {
		col = make(map[string]Document)
		s.collections[collection] = col
	}
	doc, ok := col[key]
	if !ok {
		doc = Document{}
		col[key] = doc
	}

	current := doc.Int(field)
	next := current + delta
	doc[field] = next
	return next, nil
}

func (s *MemoryStore) Batch() WriteBatch {
	return &memoryBatch{store: s}
}

func (s *MemoryStore) HealthCheck(ctx context.Context) error {
	return nil
}

// set stores a copy of doc. Must be called with the write lock held.
func (s *MemoryStore) set(collection, key string, doc Document) {
	col, ok := s.collections[collection]
	if !ok {
		col = make(map[string]Document)
		s.collections[collection] = col
	}
	stored := make(Document, len(doc))
	for k, v := range doc {
		if k == KeyField {
			continue
		}
		stored[k] = v
	}
	col[key] = stored
}

type batchOp struct {
	collection string
	key        string
	fields     Document
	merge      bool
}

type memoryBatch struct {
	store *MemoryStore
	ops   []batchOp
}

func (b *memoryBatch) Set(collection, key string, doc Document) {
	b.ops = append(b.ops, batchOp{collection: collection, key: key, fields: doc})
}

func (b *memoryBatch) Update(collection, key string, fields Document) {
	b.ops = append(b.ops, batchOp{collection: collection, key: key, fields: fields, merge: true})
}

func (b *memoryBatch) Len() int {
	return len(b.ops)
}

func (b *memoryBatch) Commit(ctx context.Context) error {
	if len(b.ops) > MaxBatchOps {
		return ErrBatchTooLarge
	}
	if len(b.ops) == 0 {
		return nil
	}

	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	for _, op := range b.ops {
		if op.merge {
			if doc, ok := b.store.collections[op.collection][op.key]; ok {
				for k, v := range op.fields {
					doc[k] = v
				}
				continue
			}
		}
		b.store.set(op.collection, op.key, op.fields)
	}

	b.ops = nil
	b.store.commits.Add(1)
	return nil
}

func copyWithKey(doc Document, key string) Document {
	out := make(Document, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	out[KeyField] = key
	return out
}

func matches(doc Document, filter Filter) bool {
	for field, want := range filter {
		got, ok := doc[field]
		if !ok {
			return false
		}
		if !valueEqual(got, want) {
			return false
		}
	}
	return true
}

// valueEqual compares filter values loosely across numeric types, matching
// how JSON decoding widens integers to float64.
func valueEqual(got, want any) bool {
	if gi, ok := asInt64(got); ok {
		if wi, ok := asInt64(want); ok {
			return gi == wi
		}
	}
	return got == want
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	}
	return 0, false
}
