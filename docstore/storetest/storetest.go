// Package storetest holds the behaviour every docstore.Store must share.
// Backends run it from their own tests:
//
//	func TestContract(t *testing.T) {
//	    storetest.Run(t, func(t *testing.T) docstore.Store { return memory.NewMemory() })
//	}
package storetest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/expense-ledger/docstore"
)

// Factory returns an empty store.
type Factory func(t *testing.T) docstore.Store

func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s docstore.Store)
	}{
		{"CreateAssignsID", testCreateAssignsID},
		{"CreateWithIDRejectsDuplicate", testCreateWithIDRejectsDuplicate},
		{"GetMissingReturnsNil", testGetMissing},
		{"RoundTripWeakTyping", testRoundTripWeakTyping},
		{"UpdateMergesShallow", testUpdateMerges},
		{"UpdateMissing", testUpdateMissing},
		{"DeleteIsIdempotent", testDeleteIdempotent},
		{"QueryEquality", testQueryEquality},
		{"QueryArrayContainsScalar", testQueryArrayContainsScalar},
		{"QueryArrayContainsCompositeIsExact", testQueryArrayContainsComposite},
		{"QueryOrderAndLimit", testQueryOrderAndLimit},
		{"QueryRejectsBadInput", testQueryRejectsBadInput},
		{"NestedCollectionsAreScoped", testNestedCollections},
		{"BatchIsAllOrNothing", testBatchAllOrNothing},
		{"BatchAppliesAll", testBatchAppliesAll},
		{"HonoursCancelledContext", testCancelledContext},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func testCreateAssignsID(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	a, err := s.Create(ctx, "things", docstore.Document{"n": 1})
	require.NoError(t, err)
	b, err := s.Create(ctx, "things", docstore.Document{"n": 2})
	require.NoError(t, err)

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)

	snap, err := s.Get(ctx, "things", a)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, a, snap.ID)
}

func testCreateWithIDRejectsDuplicate(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateWithID(ctx, "things", "x", docstore.Document{"n": 1}))

	err := s.CreateWithID(ctx, "things", "x", docstore.Document{"n": 2})
	assert.ErrorIs(t, err, docstore.ErrAlreadyExists)
	assert.True(t, docstore.IsConflict(err))

	snap, err := s.Get(ctx, "things", "x")
	require.NoError(t, err)
	assert.Equal(t, json.Number("1"), snap.Data["n"], "first write stands")
}

func testGetMissing(t *testing.T, s docstore.Store) {
	snap, err := s.Get(context.Background(), "things", "nope")
	assert.NoError(t, err)
	assert.Nil(t, snap)
}

func testRoundTripWeakTyping(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)
	require.NoError(t, s.CreateWithID(ctx, "things", "x", docstore.Document{
		"amount": 12.5,
		"count":  3,
		"when":   at,
		"none":   nil,
		"tags":   []string{"a", "b"},
		"nested": map[string]any{"k": "v"},
	}))

	snap, err := s.Get(ctx, "things", "x")
	require.NoError(t, err)
	assert.Equal(t, json.Number("12.5"), snap.Data["amount"])
	assert.Equal(t, json.Number("3"), snap.Data["count"])
	assert.Equal(t, "2025-03-01T10:30:00Z", snap.Data["when"])
	assert.Nil(t, snap.Data["none"])
	assert.Equal(t, []any{"a", "b"}, snap.Data["tags"])
	assert.Equal(t, map[string]any{"k": "v"}, snap.Data["nested"])
}

func testUpdateMerges(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateWithID(ctx, "things", "x", docstore.Document{"a": "1", "b": "2"}))
	require.NoError(t, s.Update(ctx, "things", "x", docstore.Document{"b": "3", "c": "4"}))

	snap, err := s.Get(ctx, "things", "x")
	require.NoError(t, err)
	assert.Equal(t, docstore.Document{"a": "1", "b": "3", "c": "4"}, snap.Data)
}

func testUpdateMissing(t *testing.T, s docstore.Store) {
	err := s.Update(context.Background(), "things", "nope", docstore.Document{"a": 1})
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func testDeleteIdempotent(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateWithID(ctx, "things", "x", docstore.Document{}))
	require.NoError(t, s.Delete(ctx, "things", "x"))
	require.NoError(t, s.Delete(ctx, "things", "x"))

	snap, err := s.Get(ctx, "things", "x")
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func seed(t *testing.T, s docstore.Store, collection string, docs map[string]docstore.Document) {
	t.Helper()
	for id, doc := range docs {
		require.NoError(t, s.CreateWithID(context.Background(), collection, id, doc))
	}
}

func ids(snaps []docstore.Snapshot) []string {
	out := make([]string, len(snaps))
	for i, s := range snaps {
		out[i] = s.ID
	}
	return out
}

func testQueryEquality(t *testing.T, s docstore.Store) {
	seed(t, s, "summaries", map[string]docstore.Document{
		"e1": {"paidBy": "u", "version": 1},
		"e2": {"paidBy": "v", "version": 2},
		"e3": {"paidBy": "u", "version": 2},
	})
	ctx := context.Background()

	got, err := s.Query(ctx, "summaries", docstore.Query{Where: docstore.Where("paidBy", "u")})
	require.NoError(t, err)
	assert.Equal(t, []string{"e1", "e3"}, ids(got))

	got, err = s.Query(ctx, "summaries", docstore.Query{Where: docstore.Where("version", 2)})
	require.NoError(t, err)
	assert.Equal(t, []string{"e2", "e3"}, ids(got))

	got, err = s.Query(ctx, "summaries", docstore.Query{})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func testQueryArrayContainsScalar(t *testing.T, s docstore.Store) {
	seed(t, s, "summaries", map[string]docstore.Document{
		"e1": {"participantIds": []string{"u", "a"}},
		"e2": {"participantIds": []string{"a", "b"}},
		"e3": {"participantIds": []string{}},
		"e4": {"other": "field"},
	})

	got, err := s.Query(context.Background(), "summaries", docstore.Query{
		Where: docstore.ArrayContains("participantIds", "a"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"e1", "e2"}, ids(got))
}

func testQueryArrayContainsComposite(t *testing.T, s docstore.Store) {
	// Element match is exact: a split with any differing field does not match.
	seed(t, s, "summaries", map[string]docstore.Document{
		"e1": {"splits": []any{map[string]any{"participantId": "u", "amountOwed": 10}}},
		"e2": {"splits": []any{map[string]any{"participantId": "u", "amountOwed": 12}}},
	})

	got, err := s.Query(context.Background(), "summaries", docstore.Query{
		Where: docstore.ArrayContains("splits", map[string]any{"participantId": "u", "amountOwed": 10}),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"e1"}, ids(got))
}

func testQueryOrderAndLimit(t *testing.T, s docstore.Store) {
	seed(t, s, "summaries/e1/transactions", map[string]docstore.Document{
		"v1":  {"version": 1},
		"v2":  {"version": 2},
		"v10": {"version": 10},
	})
	ctx := context.Background()

	got, err := s.Query(ctx, "summaries/e1/transactions", docstore.Query{OrderBy: "version", Descending: true, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"v10"}, ids(got), "numeric, not lexical, ordering")

	got, err = s.Query(ctx, "summaries/e1/transactions", docstore.Query{OrderBy: "version"})
	require.NoError(t, err)
	assert.Equal(t, []string{"v1", "v2", "v10"}, ids(got))
}

func testQueryRejectsBadInput(t *testing.T, s docstore.Store) {
	ctx := context.Background()

	_, err := s.Query(ctx, "summaries/e1", docstore.Query{})
	assert.ErrorIs(t, err, docstore.ErrInvalidPath)

	_, err = s.Query(ctx, "summaries", docstore.Query{Limit: -1})
	assert.ErrorIs(t, err, docstore.ErrInvalidQuery)
}

func testNestedCollections(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateWithID(ctx, "summaries/e1/transactions", "v1", docstore.Document{"version": 1}))
	require.NoError(t, s.CreateWithID(ctx, "summaries/e2/transactions", "v1", docstore.Document{"version": 1}))

	got, err := s.Query(ctx, "summaries/e1/transactions", docstore.Query{})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	top, err := s.Query(ctx, "summaries", docstore.Query{})
	require.NoError(t, err)
	assert.Empty(t, top)
}

func testBatchAllOrNothing(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateWithID(ctx, "things", "taken", docstore.Document{"n": 1}))

	err := s.Batch(ctx, []docstore.Write{
		docstore.CreateOp("things", "fresh", docstore.Document{"n": 2}),
		docstore.UpdateOp("things", "taken", docstore.Document{"n": 3}),
		docstore.CreateOp("things", "taken", docstore.Document{"n": 4}),
	})
	assert.ErrorIs(t, err, docstore.ErrAlreadyExists)

	fresh, err := s.Get(ctx, "things", "fresh")
	require.NoError(t, err)
	assert.Nil(t, fresh, "earlier create rolled back")

	taken, err := s.Get(ctx, "things", "taken")
	require.NoError(t, err)
	assert.Equal(t, json.Number("1"), taken.Data["n"], "earlier update rolled back")
}

func testBatchAppliesAll(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateWithID(ctx, "things", "old", docstore.Document{"n": 1}))

	require.NoError(t, s.Batch(ctx, []docstore.Write{
		docstore.CreateOp("things", "a", docstore.Document{"n": 2}),
		docstore.CreateOp("things/a/children", "c", docstore.Document{"n": 3}),
		docstore.UpdateOp("things", "old", docstore.Document{"m": 5}),
		docstore.DeleteOp("things", "missing"),
	}))

	all, err := s.Query(ctx, "things", docstore.Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "old"}, ids(all))

	child, err := s.Get(ctx, "things/a/children", "c")
	require.NoError(t, err)
	require.NotNil(t, child)

	old, err := s.Get(ctx, "things", "old")
	require.NoError(t, err)
	assert.Equal(t, json.Number("5"), old.Data["m"])
}

func testCancelledContext(t *testing.T, s docstore.Store) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.CreateWithID(ctx, "things", "x", docstore.Document{})
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)

	_, err = s.Query(ctx, "things", docstore.Query{})
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}
