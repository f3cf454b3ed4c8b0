package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/expense-ledger/docstore"
	"github.com/warp/expense-ledger/docstore/storetest"
	"github.com/warp/expense-ledger/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLite_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) docstore.Store {
		return newTestStore(t)
	})
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	// GIVEN: A file database with one document
	// WHEN: The store is closed and reopened
	// THEN: The document is still there

	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	store, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, store.CreateWithID(ctx, "summaries", "e1", docstore.Document{"paidBy": "u"}))
	require.NoError(t, store.Close())

	reopened, err := sqlite.New(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Query(ctx, "summaries", docstore.Query{Where: docstore.Where("paidBy", "u")})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "e1", got[0].ID)
}

func TestSQLite_BooleanPredicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateWithID(ctx, "things", "a", docstore.Document{"active": true}))
	require.NoError(t, store.CreateWithID(ctx, "things", "b", docstore.Document{"active": false}))

	got, err := store.Query(ctx, "things", docstore.Query{Where: docstore.Where("active", true)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestSQLite_RejectsUnsafeFieldNames(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Query(context.Background(), "things", docstore.Query{
		Where: docstore.Where("a') OR 1=1 --", "x"),
	})
	assert.ErrorIs(t, err, docstore.ErrInvalidQuery)
}

func TestSQLite_Reset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateWithID(ctx, "things", "a", docstore.Document{}))
	require.NoError(t, store.Reset(ctx))

	got, err := store.Query(ctx, "things", docstore.Query{})
	require.NoError(t, err)
	assert.Empty(t, got)
}
