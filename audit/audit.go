/*
Package audit keeps an append-only trail of ledger operations.

PURPOSE:
  Every successful write to the ledger produces an Entry: who did what to
  which expense, and which version resulted. Entries are never updated or
  deleted, not even when the expense itself is deleted.

COMPONENTS:
  Entry     - one recorded operation
  Log       - persistence (Append + Query)
  DocLog    - Log backed by the "audit" collection of a docstore
  Recorder  - what the ledger writer talks to
  Worker    - asynchronous Recorder: buffers entries and drains on shutdown
  Sync      - synchronous Recorder, used by tools and tests
  Discard   - Recorder that drops everything

SEE ALSO:
  - expense/writer.go: records an entry after each write
  - cmd/server/main.go: starts and drains the Worker
*/
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ENTRY
// =============================================================================

type Action string

const (
	ActionCreated   Action = "expense_created"
	ActionCompleted Action = "expense_completed"
	ActionRevised   Action = "expense_revised"
	ActionSettled   Action = "expense_settled"
	ActionDeleted   Action = "expense_deleted"
)

// Entry is one recorded ledger operation.
type Entry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	ActorID   string         `json:"actorId"`
	Action    Action         `json:"action"`
	ExpenseID string         `json:"expenseId"`
	Version   int            `json:"version,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

type EntryOption func(*Entry)

func WithActor(actorID string) EntryOption {
	return func(e *Entry) {
		e.ActorID = actorID
	}
}

func WithVersion(version int) EntryOption {
	return func(e *Entry) {
		e.Version = version
	}
}

func WithPayload(key string, value any) EntryOption {
	return func(e *Entry) {
		if e.Payload == nil {
			e.Payload = make(map[string]any)
		}
		e.Payload[key] = value
	}
}

func NewEntry(action Action, expenseID string, opts ...EntryOption) Entry {
	e := Entry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Action:    action,
		ExpenseID: expenseID,
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// =============================================================================
// INTERFACES
// =============================================================================

// Filter selects entries. Empty fields match everything.
type Filter struct {
	ExpenseID string
	Action    Action
}

type Log interface {
	Append(ctx context.Context, e Entry) error
	Query(ctx context.Context, f Filter) ([]Entry, error)
}

// Recorder accepts entries from the ledger. Recording never fails the
// operation that produced the entry.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

// Discard drops every entry.
var Discard Recorder = discard{}

type discard struct{}

func (discard) Record(context.Context, Entry) {}
