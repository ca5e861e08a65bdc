// Package docstore abstracts the document store the rest of Pulse persists
// into. Implementations must provide point reads/writes by (collection, key),
// equality queries, batched multi-document commits, and a genuine atomic
// numeric increment - session counters depend on the increment being atomic
// rather than read-modify-write.
package docstore

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for the docstore package.
var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrBatchTooLarge is returned when a batch exceeds MaxBatchOps.
	ErrBatchTooLarge = errors.New("batch exceeds maximum operation count")

	// ErrUnhealthy is returned when the store health check fails.
	ErrUnhealthy = errors.New("store health check failed")
)

// MaxBatchOps is the hard per-commit operation ceiling of the store.
// Callers writing more operations than this must chunk into multiple commits.
const MaxBatchOps = 1000

// Document holds a stored record's fields. Values are JSON-compatible:
// string, int64, float64, bool, nested map[string]any, []any.
// Documents returned from Get and Query carry the storage key under KeyField.
type Document map[string]any

// KeyField is the reserved field name carrying a document's storage key
// in read results.
const KeyField = "_key"

// Key returns the document's storage key, or "" if not a read result.
func (d Document) Key() string {
	k, _ := d[KeyField].(string)
	return k
}

// String returns the named field as a string ("" if absent or wrong type).
func (d Document) String(field string) string {
	v, _ := d[field].(string)
	return v
}

// Int returns the named field as an int64, coercing float64 (JSON numbers).
func (d Document) Int(field string) int64 {
	switch v := d[field].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// Bool returns the named field as a bool (false if absent).
func (d Document) Bool(field string) bool {
	v, _ := d[field].(bool)
	return v
}

// Time parses the named field as an RFC3339 timestamp.
// Returns the zero time if the field is absent or malformed.
func (d Document) Time(field string) time.Time {
	s, ok := d[field].(string)
	if !ok || s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Filter selects documents whose fields are equal to every entry.
type Filter map[string]any

// Store is the document store contract. All methods are safe for
// concurrent use.
type Store interface {
	// Get returns the document at (collection, key), or ErrNotFound.
	Get(ctx context.Context, collection, key string) (Document, error)

	// Set creates or replaces the document at (collection, key).
	Set(ctx context.Context, collection, key string, doc Document) error

	// Update merges fields into an existing document.
	// Returns ErrNotFound if the document does not exist.
	Update(ctx context.Context, collection, key string, fields Document) error

	// Delete removes the document. Returns ErrNotFound if absent.
	Delete(ctx context.Context, collection, key string) error

	// Query returns all documents in the collection matching the filter.
	// A nil filter matches everything. Equality only; range conditions are
	// evaluated by callers.
	Query(ctx context.Context, collection string, filter Filter) ([]Document, error)

	// Increment atomically adds delta to a numeric field and returns the
	// new value. A missing document or field starts from zero.
	Increment(ctx context.Context, collection, key, field string, delta int64) (int64, error)

	// Batch returns a new write batch. Commit applies all queued operations
	// in one atomic multi-document commit.
	Batch() WriteBatch

	// HealthCheck reports whether the store is reachable.
	HealthCheck(ctx context.Context) error
}

// WriteBatch accumulates write operations for a single atomic commit.
// Batches are not safe for concurrent use.
type WriteBatch interface {
	// Set queues a create-or-replace of (collection, key).
	Set(collection, key string, doc Document)

	// Update queues a field merge into (collection, key). A queued update
	// on a missing document creates it (upsert semantics).
	Update(collection, key string, fields Document)

	// Len returns the number of queued operations.
	Len() int

	// Commit applies the batch. Returns ErrBatchTooLarge when Len exceeds
	// MaxBatchOps. A committed batch must not be reused.
	Commit(ctx context.Context) error
}

// FormatTime renders a timestamp for storage. All stored timestamps are
// UTC RFC3339.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
