/*
Package sqlite provides a SQLite-backed implementation of docstore.Store.

PURPOSE:
  Persists ledger documents in a single documents table. Each row is one
  document, keyed by (collection, id), with the body stored as JSON text.
  Single-field predicates are pushed down to SQLite's JSON functions.

KEY TABLE:
  documents: collection, id, data (JSON), created_at, updated_at

INDEXES:
  - PRIMARY KEY (collection, id): identity uniqueness, the compare-and-swap
    the ledger relies on for version numbers
  - idx_documents_paid_by:   summaries by payer
  - idx_documents_group_id:  summaries by group
  - idx_documents_version:   versions of one expense, ordered
  - idx_documents_expense:   audit entries by expense

QUERY PUSHDOWN:
  field-equals        -> json_extract(data, '$.field') = ?
  array-contains      -> EXISTS (SELECT 1 FROM json_each(data, '$.field') WHERE value = ?)
  Composite predicate values (objects, arrays) cannot be bound as SQL
  parameters; those queries scan the collection and filter with the shared
  docstore matcher instead.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. ":memory:" databases are pinned to a
  single connection, since every new connection would open an empty database.

WAL MODE:
  File databases are opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - docstore/store.go: Interface definition
  - docstore/memory:   In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/warp/expense-ledger/docstore"
)

// Store implements docstore.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ docstore.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		data TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	);

	CREATE INDEX IF NOT EXISTS idx_documents_paid_by
		ON documents(collection, json_extract(data, '$.paidBy'));
	CREATE INDEX IF NOT EXISTS idx_documents_group_id
		ON documents(collection, json_extract(data, '$.groupId'));
	CREATE INDEX IF NOT EXISTS idx_documents_version
		ON documents(collection, json_extract(data, '$.version') DESC);
	CREATE INDEX IF NOT EXISTS idx_documents_expense
		ON documents(collection, json_extract(data, '$.expenseId'));
	`

	_, err := s.db.Exec(schema)
	return err
}

// conn is satisfied by both *sql.DB and *sql.Tx.
type conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// WRITES
// =============================================================================

// Create inserts a document under a generated identity.
func (s *Store) Create(ctx context.Context, collection string, data docstore.Document) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	if err := s.insert(ctx, s.db, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

// CreateWithID inserts a document under the given identity.
func (s *Store) CreateWithID(ctx context.Context, collection, id string, data docstore.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insert(ctx, s.db, collection, id, data)
}

func (s *Store) insert(ctx context.Context, c conn, collection, id string, data docstore.Document) error {
	if err := docstore.ValidateCollection(collection); err != nil {
		return err
	}
	if err := docstore.ValidateID(id); err != nil {
		return err
	}
	body, err := docstore.Encode(data)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = c.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		collection, id, string(body), now, now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%s/%s: %w", collection, id, docstore.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// Update merges fields into an existing document.
func (s *Store) Update(ctx context.Context, collection, id string, fields docstore.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := s.update(ctx, sqlTx, collection, id, fields); err != nil {
		return err
	}
	return sqlTx.Commit()
}

func (s *Store) update(ctx context.Context, c conn, collection, id string, fields docstore.Document) error {
	current, err := s.get(ctx, c, collection, id)
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("%s/%s: %w", collection, id, docstore.ErrNotFound)
	}
	body, err := docstore.Encode(docstore.Merge(current.Data, fields))
	if err != nil {
		return err
	}

	_, err = c.ExecContext(ctx,
		`UPDATE documents SET data = ?, updated_at = ? WHERE collection = ? AND id = ?`,
		string(body), time.Now().UTC().Format(time.RFC3339), collection, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	return nil
}

// Delete removes a document.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.delete(ctx, s.db, collection, id)
}

func (s *Store) delete(ctx context.Context, c conn, collection, id string) error {
	_, err := c.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// Batch applies all writes in one SQL transaction.
func (s *Store) Batch(ctx context.Context, writes []docstore.Write) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, w := range writes {
		switch w.Kind {
		case docstore.WriteCreate:
			id := w.ID
			if id == "" {
				id = uuid.NewString()
			}
			err = s.insert(ctx, sqlTx, w.Collection, id, w.Data)
		case docstore.WriteUpdate:
			err = s.update(ctx, sqlTx, w.Collection, w.ID, w.Data)
		case docstore.WriteDelete:
			err = s.delete(ctx, sqlTx, w.Collection, w.ID)
		default:
			err = fmt.Errorf("%w: unknown write kind %q", docstore.ErrInvalidQuery, w.Kind)
		}
		if err != nil {
			return err
		}
	}

	return sqlTx.Commit()
}

// =============================================================================
// READS
// =============================================================================

// Get returns a document, or nil if absent.
func (s *Store) Get(ctx context.Context, collection, id string) (*docstore.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.get(ctx, s.db, collection, id)
}

func (s *Store) get(ctx context.Context, c conn, collection, id string) (*docstore.Snapshot, error) {
	var body string
	err := c.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND id = ?`, collection, id,
	).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	doc, err := docstore.Decode([]byte(body))
	if err != nil {
		return nil, err
	}
	return &docstore.Snapshot{ID: id, Data: doc}, nil
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// Query runs a single-predicate query, pushing it down to SQL when the
// predicate value is a scalar.
func (s *Store) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Snapshot, error) {
	if err := docstore.ValidateCollection(collection); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if q.Where != nil && !fieldPattern.MatchString(q.Where.Field) {
		return nil, fmt.Errorf("%w: field %q", docstore.ErrInvalidQuery, q.Where.Field)
	}
	if q.OrderBy != "" && !fieldPattern.MatchString(q.OrderBy) {
		return nil, fmt.Errorf("%w: order field %q", docstore.ErrInvalidQuery, q.OrderBy)
	}
	matcher, err := docstore.NewMatcher(q.Where)
	if err != nil {
		return nil, err
	}

	query := `SELECT id, data FROM documents WHERE collection = ?`
	args := []any{collection}

	pushdown := true
	if q.Where != nil {
		value, ok := bindable(q.Where.Value)
		switch {
		case !ok:
			pushdown = false
		case q.Where.Op == docstore.OpEqual:
			query += ` AND json_extract(data, ?) = ?`
			args = append(args, "$."+q.Where.Field, value)
		case q.Where.Op == docstore.OpArrayContains:
			query += ` AND EXISTS (SELECT 1 FROM json_each(documents.data, ?) AS e WHERE e.value = ?)`
			args = append(args, "$."+q.Where.Field, value)
		}
	}
	if pushdown {
		if q.OrderBy != "" {
			dir := "ASC"
			if q.Descending {
				dir = "DESC"
			}
			query += ` ORDER BY json_extract(data, ?) ` + dir + `, id ASC`
			args = append(args, "$."+q.OrderBy)
		} else {
			query += ` ORDER BY id ASC`
		}
		if q.Limit > 0 {
			query += ` LIMIT ?`
			args = append(args, q.Limit)
		}
	} else {
		query += ` ORDER BY id ASC`
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var result []docstore.Snapshot
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc, err := docstore.Decode([]byte(body))
		if err != nil {
			return nil, err
		}
		if matcher.Match(doc) {
			result = append(result, docstore.Snapshot{ID: id, Data: doc})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !pushdown {
		result = docstore.Arrange(result, q)
	}
	return result, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM documents")
	return err
}

// bindable converts a predicate value into an SQL parameter. Composite and
// null values are not bindable.
func bindable(v any) (any, bool) {
	norm, err := docstore.Normalize(v)
	if err != nil {
		return nil, false
	}
	switch n := norm.(type) {
	case string:
		return n, true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return f, true
		}
	}
	return nil, false
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
