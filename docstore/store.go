/*
Package docstore defines the narrow document-store capability set the ledger is written against.

PURPOSE:
  The ledger persists records in a document store that offers create, read,
  single-field queries, partial updates and deletes. Nothing more. There is
  no multi-predicate OR and no join between a record and its children, so
  every higher-level read is composed from these primitives.

KEY TYPES:
  Document:  Weakly-typed record body (field name -> value)
  Snapshot:  A document together with its identity
  Predicate: One single-field condition (equality or array membership)
  Query:     At most one predicate, optional ordering and limit
  Write:     One operation inside an atomic Batch
  Store:     The capability interface implemented by every backend

COLLECTIONS:
  Collections are slash-separated paths with an odd number of segments.
  Nested collections hang under a parent document:

    summaries                      top-level collection
    summaries/{id}/transactions    versions owned by one summary

TYPING:
  Documents round-trip through JSON. Numbers come back as json.Number,
  time.Time values come back as RFC 3339 text. Callers decode at one
  boundary per entity and never trust the raw types.

IMPLEMENTATIONS:
  - docstore/memory: In-memory store for tests and local runs
  - store/sqlite:    SQLite documents table

SEE ALSO:
  - errors.go: Sentinel errors shared by all backends
  - match.go:  Predicate evaluation and ordering shared by backends
*/
package docstore

import (
	"context"
	"fmt"
	"strings"
)

// =============================================================================
// DOCUMENTS
// =============================================================================

// Document is the body of a stored record.
type Document map[string]any

// Snapshot is a document read back from a store, with its identity.
type Snapshot struct {
	ID   string
	Data Document
}

// =============================================================================
// QUERIES - Single-field predicates only
// =============================================================================

// Op is a predicate operator.
type Op string

const (
	OpEqual         Op = "=="
	OpArrayContains Op = "array-contains"
)

// Predicate restricts a query on exactly one field.
type Predicate struct {
	Field string
	Op    Op
	Value any
}

// Where builds a field-equals predicate.
func Where(field string, value any) *Predicate {
	return &Predicate{Field: field, Op: OpEqual, Value: value}
}

// ArrayContains builds an array-membership predicate. The element is matched
// by exact equality, so a composite value must equal the stored element in
// every field.
func ArrayContains(field string, value any) *Predicate {
	return &Predicate{Field: field, Op: OpArrayContains, Value: value}
}

// Query describes a read against one collection.
// A nil Where returns every document in the collection.
type Query struct {
	Where      *Predicate
	OrderBy    string
	Descending bool
	Limit      int
}

// Validate checks the query against the supported capability set.
func (q Query) Validate() error {
	if q.Where != nil {
		if q.Where.Field == "" {
			return fmt.Errorf("%w: empty predicate field", ErrInvalidQuery)
		}
		if q.Where.Op != OpEqual && q.Where.Op != OpArrayContains {
			return fmt.Errorf("%w: unsupported operator %q", ErrInvalidQuery, q.Where.Op)
		}
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalidQuery)
	}
	return nil
}

// =============================================================================
// BATCH WRITES
// =============================================================================

type WriteKind string

const (
	WriteCreate WriteKind = "create"
	WriteUpdate WriteKind = "update"
	WriteDelete WriteKind = "delete"
)

// Write is one operation of an atomic batch.
// Create fails with ErrAlreadyExists when the identity is taken,
// Update fails with ErrNotFound when the document is absent.
type Write struct {
	Kind       WriteKind
	Collection string
	ID         string
	Data       Document
}

func CreateOp(collection, id string, data Document) Write {
	return Write{Kind: WriteCreate, Collection: collection, ID: id, Data: data}
}

func UpdateOp(collection, id string, fields Document) Write {
	return Write{Kind: WriteUpdate, Collection: collection, ID: id, Data: fields}
}

func DeleteOp(collection, id string) Write {
	return Write{Kind: WriteDelete, Collection: collection, ID: id}
}

// =============================================================================
// STORE - Capability interface
// =============================================================================

// Store is the document store the ledger runs against.
type Store interface {
	// Create appends a document under a store-assigned identity.
	Create(ctx context.Context, collection string, data Document) (string, error)

	// CreateWithID appends a document under a caller-chosen identity.
	// Returns ErrAlreadyExists if the identity is taken.
	CreateWithID(ctx context.Context, collection, id string, data Document) error

	// Get returns the document, or nil when it does not exist.
	Get(ctx context.Context, collection, id string) (*Snapshot, error)

	// Query runs a single-predicate query.
	Query(ctx context.Context, collection string, q Query) ([]Snapshot, error)

	// Update merges fields into an existing document.
	Update(ctx context.Context, collection, id string, fields Document) error

	// Delete removes a document. Deleting an absent document is not an error.
	Delete(ctx context.Context, collection, id string) error

	// Batch applies all writes atomically: either all succeed or none do.
	Batch(ctx context.Context, writes []Write) error
}

// =============================================================================
// PATHS
// =============================================================================

// Path joins segments into a collection path.
func Path(segments ...string) string {
	return strings.Join(segments, "/")
}

// ValidateCollection checks that a collection path has an odd number of
// non-empty segments.
func ValidateCollection(collection string) error {
	if collection == "" {
		return fmt.Errorf("%w: empty collection", ErrInvalidPath)
	}
	segments := strings.Split(collection, "/")
	if len(segments)%2 == 0 {
		return fmt.Errorf("%w: %q names a document, not a collection", ErrInvalidPath, collection)
	}
	for _, s := range segments {
		if s == "" {
			return fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, collection)
		}
	}
	return nil
}

// ValidateID checks a document identity.
func ValidateID(id string) error {
	if id == "" || strings.Contains(id, "/") {
		return fmt.Errorf("%w: invalid document id %q", ErrInvalidPath, id)
	}
	return nil
}
