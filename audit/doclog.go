package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/warp/expense-ledger/docstore"
)

// Collection holds audit entries, keyed by entry id.
const Collection = "audit"

// DocLog persists entries in a docstore collection.
type DocLog struct {
	store docstore.Store
}

var _ Log = (*DocLog)(nil)

func NewDocLog(store docstore.Store) *DocLog {
	return &DocLog{store: store}
}

func (l *DocLog) Append(ctx context.Context, e Entry) error {
	norm, err := docstore.Normalize(e)
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}
	doc, ok := norm.(map[string]any)
	if !ok {
		return fmt.Errorf("encode audit entry: unexpected shape %T", norm)
	}
	delete(doc, "id")
	if err := l.store.CreateWithID(ctx, Collection, e.ID, doc); err != nil {
		return fmt.Errorf("append audit entry %s: %w", e.ID, err)
	}
	return nil
}

// Query returns matching entries, oldest first.
func (l *DocLog) Query(ctx context.Context, f Filter) ([]Entry, error) {
	var q docstore.Query
	switch {
	case f.ExpenseID != "":
		q.Where = docstore.Where("expenseId", f.ExpenseID)
	case f.Action != "":
		q.Where = docstore.Where("action", string(f.Action))
	}

	snaps, err := l.store.Query(ctx, Collection, q)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}

	entries := make([]Entry, 0, len(snaps))
	for _, snap := range snaps {
		e, err := decodeEntry(snap)
		if err != nil {
			return nil, err
		}
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return entries, nil
}

func decodeEntry(snap docstore.Snapshot) (Entry, error) {
	b, err := docstore.Encode(snap.Data)
	if err != nil {
		return Entry{}, err
	}
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		return Entry{}, fmt.Errorf("decode audit entry %s: %w", snap.ID, err)
	}
	e.ID = snap.ID
	return e, nil
}
