package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/expense-ledger/docstore"
	"github.com/warp/expense-ledger/docstore/memory"
	"github.com/warp/expense-ledger/docstore/storetest"
)

func TestMemory_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) docstore.Store {
		return memory.NewMemory()
	})
}

func TestMemory_Reset(t *testing.T) {
	m := memory.NewMemory()
	ctx := context.Background()
	require.NoError(t, m.CreateWithID(ctx, "things", "x", docstore.Document{"a": 1}))

	m.Reset()

	snap, err := m.Get(ctx, "things", "x")
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestMemory_ReturnedDocumentsAreCopies(t *testing.T) {
	m := memory.NewMemory()
	ctx := context.Background()
	require.NoError(t, m.CreateWithID(ctx, "things", "x", docstore.Document{"a": "1"}))

	snap, err := m.Get(ctx, "things", "x")
	require.NoError(t, err)
	snap.Data["a"] = "changed"

	again, err := m.Get(ctx, "things", "x")
	require.NoError(t, err)
	assert.Equal(t, "1", again.Data["a"])
}
