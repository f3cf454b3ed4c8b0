package audit_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/expense-ledger/audit"
	"github.com/warp/expense-ledger/docstore/memory"
)

func TestDocLog_AppendAndQuery(t *testing.T) {
	log := audit.NewDocLog(memory.NewMemory())
	ctx := context.Background()

	first := audit.NewEntry(audit.ActionCreated, "e1", audit.WithActor("alice"), audit.WithVersion(1))
	second := audit.NewEntry(audit.ActionRevised, "e1", audit.WithActor("bob"), audit.WithVersion(2),
		audit.WithPayload("total", "12.00"))
	second.Timestamp = first.Timestamp.Add(time.Second)
	other := audit.NewEntry(audit.ActionCreated, "e2")

	for _, e := range []audit.Entry{second, other, first} {
		require.NoError(t, log.Append(ctx, e))
	}

	got, err := log.Query(ctx, audit.Filter{ExpenseID: "e1"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first.ID, got[0].ID, "oldest first")
	assert.Equal(t, "alice", got[0].ActorID)
	assert.Equal(t, 2, got[1].Version)
	assert.Equal(t, "12.00", got[1].Payload["total"])
	assert.True(t, got[1].Timestamp.Equal(second.Timestamp))

	created, err := log.Query(ctx, audit.Filter{Action: audit.ActionCreated})
	require.NoError(t, err)
	assert.Len(t, created, 2)

	all, err := log.Query(ctx, audit.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDocLog_EntriesAreAppendOnly(t *testing.T) {
	log := audit.NewDocLog(memory.NewMemory())
	e := audit.NewEntry(audit.ActionSettled, "e1")

	require.NoError(t, log.Append(context.Background(), e))
	assert.Error(t, log.Append(context.Background(), e))
}

// memLog records entries in memory and can be told to fail.
type memLog struct {
	mu      sync.Mutex
	entries []audit.Entry
	fail    bool
}

func (l *memLog) Append(_ context.Context, e audit.Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail {
		return errors.New("log unavailable")
	}
	l.entries = append(l.entries, e)
	return nil
}

func (l *memLog) Query(context.Context, audit.Filter) ([]audit.Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]audit.Entry(nil), l.entries...), nil
}

func TestWorker_DrainsOnShutdown(t *testing.T) {
	// GIVEN: A started worker with buffered entries
	// WHEN: Shutdown is called
	// THEN: Every entry reaches the log and later entries are dropped

	log := &memLog{}
	w := audit.NewWorker(log, 16, nil)
	w.Start()

	for i := 0; i < 10; i++ {
		w.Record(context.Background(), audit.NewEntry(audit.ActionCreated, "e1"))
	}
	w.Shutdown()

	got, _ := log.Query(context.Background(), audit.Filter{})
	assert.Len(t, got, 10)

	w.Record(context.Background(), audit.NewEntry(audit.ActionCreated, "late"))
	got, _ = log.Query(context.Background(), audit.Filter{})
	assert.Len(t, got, 10)

	w.Shutdown() // second call is harmless
}

func TestWorker_DrainsIntoDocLogOnShutdown(t *testing.T) {
	// GIVEN: A worker writing to a document-backed log
	// WHEN: Shutdown races the entries still being consumed
	// THEN: No round loses an entry

	for round := 0; round < 50; round++ {
		log := audit.NewDocLog(memory.NewMemory())
		w := audit.NewWorker(log, 64, nil)
		w.Start()

		for i := 0; i < 64; i++ {
			w.Record(context.Background(), audit.NewEntry(audit.ActionCreated, "e1"))
		}
		w.Shutdown()

		got, err := log.Query(context.Background(), audit.Filter{ExpenseID: "e1"})
		require.NoError(t, err)
		require.Len(t, got, 64, "round %d", round)
	}
}

func TestWorker_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	log := &memLog{}
	w := audit.NewWorker(log, 2, nil)

	// Not started: nothing drains the buffer.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			w.Record(context.Background(), audit.NewEntry(audit.ActionCreated, "e1"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full buffer")
	}

	w.Start()
	w.Shutdown()
	got, _ := log.Query(context.Background(), audit.Filter{})
	assert.Len(t, got, 2)
}

func TestSync_LogsFailures(t *testing.T) {
	log := &memLog{fail: true}
	assert.NotPanics(t, func() {
		audit.Sync{Log: log}.Record(context.Background(), audit.NewEntry(audit.ActionDeleted, "e1"))
	})
	audit.Discard.Record(context.Background(), audit.NewEntry(audit.ActionDeleted, "e1"))
}
