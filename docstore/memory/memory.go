// Package memory provides an in-memory docstore.Store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/warp/expense-ledger/docstore"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps every document JSON-encoded so reads see the same weak
// typing a real document store hands back.
type Memory struct {
	mu    sync.RWMutex
	docs  map[string]map[string][]byte
	newID func() string
}

var _ docstore.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		docs:  make(map[string]map[string][]byte),
		newID: uuid.NewString,
	}
}

func (m *Memory) Create(ctx context.Context, collection string, data docstore.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.newID()
	if err := m.createLocked(collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (m *Memory) CreateWithID(ctx context.Context, collection, id string, data docstore.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createLocked(collection, id, data)
}

func (m *Memory) createLocked(collection, id string, data docstore.Document) error {
	if err := docstore.ValidateCollection(collection); err != nil {
		return err
	}
	if err := docstore.ValidateID(id); err != nil {
		return err
	}
	coll := m.docs[collection]
	if coll == nil {
		coll = make(map[string][]byte)
		m.docs[collection] = coll
	}
	if _, exists := coll[id]; exists {
		return fmt.Errorf("%s/%s: %w", collection, id, docstore.ErrAlreadyExists)
	}
	b, err := docstore.Encode(data)
	if err != nil {
		return err
	}
	coll[id] = b
	return nil
}

func (m *Memory) Get(ctx context.Context, collection, id string) (*docstore.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.docs[collection][id]
	if !ok {
		return nil, nil
	}
	doc, err := docstore.Decode(b)
	if err != nil {
		return nil, err
	}
	return &docstore.Snapshot{ID: id, Data: doc}, nil
}

func (m *Memory) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := docstore.ValidateCollection(collection); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	matcher, err := docstore.NewMatcher(q.Where)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	coll := m.docs[collection]
	ids := make([]string, 0, len(coll))
	for id := range coll {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var result []docstore.Snapshot
	for _, id := range ids {
		doc, err := docstore.Decode(coll[id])
		if err != nil {
			return nil, err
		}
		if matcher.Match(doc) {
			result = append(result, docstore.Snapshot{ID: id, Data: doc})
		}
	}
	return docstore.Arrange(result, q), nil
}

func (m *Memory) Update(ctx context.Context, collection, id string, fields docstore.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLocked(collection, id, fields)
}

func (m *Memory) updateLocked(collection, id string, fields docstore.Document) error {
	b, ok := m.docs[collection][id]
	if !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, docstore.ErrNotFound)
	}
	current, err := docstore.Decode(b)
	if err != nil {
		return err
	}
	merged, err := docstore.Encode(docstore.Merge(current, fields))
	if err != nil {
		return err
	}
	m.docs[collection][id] = merged
	return nil
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs[collection], id)
	return nil
}

// Batch applies all writes atomically.
// Simulated with a snapshot + rollback on error.
func (m *Memory) Batch(ctx context.Context, writes []docstore.Write) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshot()
	for _, w := range writes {
		if err := m.applyLocked(w); err != nil {
			m.docs = snapshot
			return err
		}
	}
	return nil
}

func (m *Memory) applyLocked(w docstore.Write) error {
	switch w.Kind {
	case docstore.WriteCreate:
		id := w.ID
		if id == "" {
			id = m.newID()
		}
		return m.createLocked(w.Collection, id, w.Data)
	case docstore.WriteUpdate:
		return m.updateLocked(w.Collection, w.ID, w.Data)
	case docstore.WriteDelete:
		delete(m.docs[w.Collection], w.ID)
		return nil
	default:
		return fmt.Errorf("%w: unknown write kind %q", docstore.ErrInvalidQuery, w.Kind)
	}
}

// Encoded documents are immutable, so copying the maps is enough.
func (m *Memory) snapshot() map[string]map[string][]byte {
	out := make(map[string]map[string][]byte, len(m.docs))
	for name, coll := range m.docs {
		cp := make(map[string][]byte, len(coll))
		for id, b := range coll {
			cp[id] = b
		}
		out[name] = cp
	}
	return out
}

// Reset drops every document.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = make(map[string]map[string][]byte)
}
