package expense_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/warp/expense-ledger/docstore"
	"github.com/warp/expense-ledger/docstore/memory"
	"github.com/warp/expense-ledger/expense"
	"github.com/warp/expense-ledger/split"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var baseTime = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr(s string) *string {
	return &s
}

// clock advances one minute per call so createdAt ordering is predictable.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

func sequentialIDs(prefix string) func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%03d", prefix, n)
	}
}

func newLedger(t *testing.T, store docstore.Store, opts ...expense.WriterOption) (*expense.Writer, *expense.Reader) {
	t.Helper()
	c := &clock{now: baseTime}
	base := []expense.WriterOption{
		expense.WithClock(c.Now),
		expense.WithIDGenerator(sequentialIDs("exp")),
	}
	return expense.NewWriter(store, append(base, opts...)...), expense.NewReader(store)
}

func participants(ids ...string) []split.Participant {
	out := make([]split.Participant, len(ids))
	for i, id := range ids {
		out[i] = split.Participant{ID: id, Name: "User " + id}
	}
	return out
}

// dinner is a 130.00 expense split equally five ways, paid by alice.
func dinner() expense.CreateInput {
	return expense.CreateInput{
		Description:  "Team dinner",
		Currency:     "USD",
		PaidBy:       "alice",
		PayerName:    ptr("Alice"),
		Date:         "2025-03-01",
		Subtotal:     d("107"),
		Tax:          d("8"),
		Tip:          d("15"),
		SplitMethod:  split.Equal,
		Participants: participants("alice", "bob", "carol", "dave", "erin"),
	}
}

func equalInput(paidBy string, total string, ids ...string) expense.CreateInput {
	return expense.CreateInput{
		Description:  "Shared " + total,
		Currency:     "USD",
		PaidBy:       paidBy,
		Date:         "2025-03-01",
		Subtotal:     d(total),
		SplitMethod:  split.Equal,
		Participants: participants(ids...),
	}
}

func assertTransactionEqual(t *testing.T, want, got expense.Transaction) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.ExpenseID, got.ExpenseID)
	assert.Equal(t, want.Version, got.Version)
	assert.True(t, want.Subtotal.Equal(got.Subtotal), "subtotal %s != %s", want.Subtotal, got.Subtotal)
	assert.True(t, want.Tax.Equal(got.Tax), "tax %s != %s", want.Tax, got.Tax)
	assert.True(t, want.Tip.Equal(got.Tip), "tip %s != %s", want.Tip, got.Tip)
	assert.Equal(t, want.SplitMethod, got.SplitMethod)
	assert.Equal(t, want.CreatedBy, got.CreatedBy)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "createdAt %s != %s", want.CreatedAt, got.CreatedAt)

	if assert.Len(t, got.Splits, len(want.Splits)) {
		for i := range want.Splits {
			assert.Equal(t, want.Splits[i].ParticipantID, got.Splits[i].ParticipantID)
			assert.Equal(t, want.Splits[i].ParticipantName, got.Splits[i].ParticipantName)
			assert.Equal(t, want.Splits[i].Method, got.Splits[i].Method)
			assert.True(t, want.Splits[i].AmountOwed.Equal(got.Splits[i].AmountOwed),
				"split %d: %s != %s", i, want.Splits[i].AmountOwed, got.Splits[i].AmountOwed)
		}
	}
	if assert.Len(t, got.ItemizedItems, len(want.ItemizedItems)) {
		for i := range want.ItemizedItems {
			assert.Equal(t, want.ItemizedItems[i].Name, got.ItemizedItems[i].Name)
			assert.Equal(t, want.ItemizedItems[i].SplitAcross, got.ItemizedItems[i].SplitAcross)
			assert.True(t, want.ItemizedItems[i].Amount.Equal(got.ItemizedItems[i].Amount))
		}
	}
}

func ids(summaries []expense.Summary) []string {
	out := make([]string, len(summaries))
	for i, s := range summaries {
		out[i] = s.ID
	}
	return out
}

// =============================================================================
// FAKE STORES
// =============================================================================

// hookStore wraps a real store and lets a test intercept calls.
type hookStore struct {
	docstore.Store

	onQuery        func(ctx context.Context, collection string, q docstore.Query) error
	onCreateWithID func(collection, id string) error
	onBatch        func(ctx context.Context, writes []docstore.Write) error
}

func newHookStore() *hookStore {
	return &hookStore{Store: memory.NewMemory()}
}

func (h *hookStore) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Snapshot, error) {
	if h.onQuery != nil {
		if err := h.onQuery(ctx, collection, q); err != nil {
			return nil, err
		}
	}
	return h.Store.Query(ctx, collection, q)
}

func (h *hookStore) CreateWithID(ctx context.Context, collection, id string, data docstore.Document) error {
	if h.onCreateWithID != nil {
		if err := h.onCreateWithID(collection, id); err != nil {
			return err
		}
	}
	return h.Store.CreateWithID(ctx, collection, id, data)
}

func (h *hookStore) Batch(ctx context.Context, writes []docstore.Write) error {
	if h.onBatch != nil {
		if err := h.onBatch(ctx, writes); err != nil {
			return err
		}
	}
	return h.Store.Batch(ctx, writes)
}

// blockUntilDone simulates a store that never answers.
func blockUntilDone(ctx context.Context, _ string, _ docstore.Query) error {
	<-ctx.Done()
	return ctx.Err()
}
