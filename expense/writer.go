/*
writer.go - Expense write protocol

PURPOSE:
  Orchestrates every write to the ledger: creating an expense (summary +
  transaction v1), appending revisions, settling and deleting.

STATE MACHINE (per expense):
  absent -> created(v1) -> revised(v2) -> revised(v3) -> ...

CREATE:
  1. Compute splits (or validate caller-supplied ones)
  2. Write the summary
  3. Write transaction v1 under summaries/{id}/transactions/v1
  4. Read both back and return the view

  In atomic mode (default) steps 2 and 3 are a single store batch, so the
  partial state cannot happen. Otherwise a failure in step 3 returns a
  PartialWriteError carrying the expense id; CompleteExpense retries step 3.

REVISE:
  Version documents are keyed v{n}. A revision computes n = latest+1 and
  creates v{n} with create-if-absent semantics inside a batch. Two racing
  revisions compute the same n; the loser gets a VersionConflictError and
  nothing it wrote is kept.

SEE ALSO:
  - reader.go: read-back and latest-version lookup
  - model.go: NewTransaction / NewSummary validation
  - audit/audit.go: entries recorded after each write
*/
package expense

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/warp/expense-ledger/audit"
	"github.com/warp/expense-ledger/docstore"
)

// =============================================================================
// WRITER
// =============================================================================

type Writer struct {
	store    docstore.Store
	reader   *Reader
	atomic   bool
	now      func() time.Time
	newID    func() string
	recorder audit.Recorder
	logger   *slog.Logger
	readOpts []ReaderOption
}

type WriterOption func(*Writer)

// WithAtomicWrites selects batch (true) or sequential (false) creation.
func WithAtomicWrites(atomic bool) WriterOption {
	return func(w *Writer) {
		w.atomic = atomic
	}
}

func WithClock(now func() time.Time) WriterOption {
	return func(w *Writer) {
		w.now = now
	}
}

func WithIDGenerator(newID func() string) WriterOption {
	return func(w *Writer) {
		w.newID = newID
	}
}

func WithRecorder(r audit.Recorder) WriterOption {
	return func(w *Writer) {
		w.recorder = r
	}
}

func WithWriterLogger(logger *slog.Logger) WriterOption {
	return func(w *Writer) {
		w.logger = logger
	}
}

// WithReaderOptions configures the reader used to read writes back, so a
// read-back honours the same timeout as any other read.
func WithReaderOptions(opts ...ReaderOption) WriterOption {
	return func(w *Writer) {
		w.readOpts = append(w.readOpts, opts...)
	}
}

func NewWriter(store docstore.Store, opts ...WriterOption) *Writer {
	w := &Writer{
		store:    store,
		atomic:   true,
		now:      time.Now,
		newID:    uuid.NewString,
		recorder: audit.Discard,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.reader = NewReader(store, append([]ReaderOption{WithReaderLogger(w.logger)}, w.readOpts...)...)
	return w
}

// =============================================================================
// CREATE
// =============================================================================

// CreateExpense records a new expense and returns it as read back from the store.
// Validation failures are returned before anything is written.
func (w *Writer) CreateExpense(ctx context.Context, in CreateInput) (View, error) {
	if in.CreatedBy == "" {
		in.CreatedBy = in.PaidBy
	}
	in.Currency = currencyCode(in.Currency)
	now := w.now()
	id := w.newID()

	tx, err := NewTransaction(id, 1, in.Detail(), in.CreatedBy, now)
	if err != nil {
		return View{}, err
	}
	summary, err := NewSummary(id, in, tx, now)
	if err != nil {
		return View{}, err
	}

	summaryDoc := encodeSummary(summary)
	txDoc := encodeTransaction(tx)

	if w.atomic {
		err := w.store.Batch(ctx, []docstore.Write{
			docstore.CreateOp(SummariesCollection, id, summaryDoc),
			docstore.CreateOp(TransactionsCollection(id), tx.ID, txDoc),
		})
		if err != nil {
			return View{}, fmt.Errorf("create expense: %w", err)
		}
	} else {
		if err := w.store.CreateWithID(ctx, SummariesCollection, id, summaryDoc); err != nil {
			return View{}, fmt.Errorf("create expense summary: %w", err)
		}
		if err := w.store.CreateWithID(ctx, TransactionsCollection(id), tx.ID, txDoc); err != nil {
			w.logger.Warn("expense summary written without transaction", "expense_id", id, "error", err)
			return View{}, &PartialWriteError{ExpenseID: id, Err: err}
		}
	}

	w.logger.Info("expense created", "expense_id", id, "paid_by", summary.PaidBy, "total", summary.TotalAmount.String())
	w.recorder.Record(ctx, audit.NewEntry(audit.ActionCreated, id,
		audit.WithActor(in.CreatedBy),
		audit.WithVersion(1),
		audit.WithPayload("totalAmount", summary.TotalAmount.String()),
		audit.WithPayload("splitMethod", string(tx.SplitMethod)),
	))
	return w.reader.GetExpenseView(ctx, id)
}

// CompleteExpense writes transaction v1 for a summary left without one by a
// partial write. Calling it on a complete expense returns the existing view.
func (w *Writer) CompleteExpense(ctx context.Context, expenseID string, in CreateInput) (View, error) {
	view, err := w.reader.GetExpenseView(ctx, expenseID)
	if err != nil {
		return View{}, err
	}
	if view.Complete() {
		return view, nil
	}
	if in.CreatedBy == "" {
		in.CreatedBy = view.Summary.PaidBy
	}

	d := in.Detail()
	d.Currency = view.Summary.Currency
	tx, err := NewTransaction(expenseID, 1, d, in.CreatedBy, w.now())
	if err != nil {
		return View{}, err
	}
	if !tx.Total().Equal(view.Summary.TotalAmount) {
		return View{}, invalidField("totalAmount", "transaction total %s does not match summary total %s",
			tx.Total(), view.Summary.TotalAmount)
	}
	if len(tx.Splits) != view.Summary.ParticipantCount {
		return View{}, invalidField("participantCount", "transaction has %d splits, summary has %d participants",
			len(tx.Splits), view.Summary.ParticipantCount)
	}

	err = w.store.CreateWithID(ctx, TransactionsCollection(expenseID), tx.ID, encodeTransaction(tx))
	switch {
	case errors.Is(err, docstore.ErrAlreadyExists):
		// Another retry won; its v1 stands.
	case err != nil:
		return View{}, &PartialWriteError{ExpenseID: expenseID, Err: err}
	default:
		w.logger.Info("expense completed", "expense_id", expenseID)
		w.recorder.Record(ctx, audit.NewEntry(audit.ActionCompleted, expenseID,
			audit.WithActor(in.CreatedBy),
			audit.WithVersion(1),
		))
	}
	return w.reader.GetExpenseView(ctx, expenseID)
}

// =============================================================================
// REVISE
// =============================================================================

// ReviseExpense appends version latest+1. The summary keeps its creation
// fields; new participants join its participant index and the status may
// move to settled.
func (w *Writer) ReviseExpense(ctx context.Context, expenseID string, in ReviseInput) (View, error) {
	current, err := w.reader.GetExpenseView(ctx, expenseID)
	if err != nil {
		return View{}, err
	}
	if !current.Complete() {
		return View{}, fmt.Errorf("revise expense %s: %w", expenseID, ErrIncompleteExpense)
	}
	if in.CreatedBy == "" {
		in.CreatedBy = current.Summary.PaidBy
	}

	version := current.Latest.Version + 1
	tx, err := NewTransaction(expenseID, version, in.Detail(current.Summary.Currency), in.CreatedBy, w.now())
	if err != nil {
		return View{}, err
	}

	update := docstore.Document{}
	ids := unionParticipants(current.Summary.ParticipantIDs, tx.Splits)
	if len(ids) != len(current.Summary.ParticipantIDs) {
		update["participantIds"] = ids
	}
	if in.Status != "" {
		changed, err := Transition(current.Summary.Status, in.Status)
		if err != nil {
			return View{}, err
		}
		if changed {
			update["status"] = string(in.Status)
		}
	}

	writes := []docstore.Write{
		docstore.CreateOp(TransactionsCollection(expenseID), tx.ID, encodeTransaction(tx)),
	}
	if len(update) > 0 {
		writes = append(writes, docstore.UpdateOp(SummariesCollection, expenseID, update))
	}
	if err := w.store.Batch(ctx, writes); err != nil {
		if errors.Is(err, docstore.ErrAlreadyExists) {
			return View{}, &VersionConflictError{ExpenseID: expenseID, Version: version}
		}
		return View{}, fmt.Errorf("revise expense %s: %w", expenseID, err)
	}

	w.logger.Info("expense revised", "expense_id", expenseID, "version", version)
	w.recorder.Record(ctx, audit.NewEntry(audit.ActionRevised, expenseID,
		audit.WithActor(in.CreatedBy),
		audit.WithVersion(version),
		audit.WithPayload("total", tx.Total().String()),
	))
	return w.reader.GetExpenseView(ctx, expenseID)
}

// =============================================================================
// STATUS & DELETION
// =============================================================================

// SettleExpense moves a pending expense to settled. Settling a settled
// expense is a no-op.
func (w *Writer) SettleExpense(ctx context.Context, expenseID, actorID string) (Summary, error) {
	summary, err := w.reader.GetSummary(ctx, expenseID)
	if err != nil {
		return Summary{}, err
	}
	changed, err := Transition(summary.Status, StatusSettled)
	if err != nil {
		return Summary{}, err
	}
	if !changed {
		return summary, nil
	}

	err = w.store.Update(ctx, SummariesCollection, expenseID, docstore.Document{"status": string(StatusSettled)})
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Summary{}, &NotFoundError{ExpenseID: expenseID}
		}
		return Summary{}, fmt.Errorf("settle expense %s: %w", expenseID, err)
	}
	summary.Status = StatusSettled

	w.logger.Info("expense settled", "expense_id", expenseID, "actor", actorID)
	w.recorder.Record(ctx, audit.NewEntry(audit.ActionSettled, expenseID, audit.WithActor(actorID)))
	return summary, nil
}

// DeleteExpense removes the summary and every version in one batch.
func (w *Writer) DeleteExpense(ctx context.Context, expenseID, actorID string) error {
	if _, err := w.reader.GetSummary(ctx, expenseID); err != nil {
		return err
	}
	versions, err := w.store.Query(ctx, TransactionsCollection(expenseID), docstore.Query{})
	if err != nil {
		return fmt.Errorf("delete expense %s: %w", expenseID, err)
	}

	writes := make([]docstore.Write, 0, len(versions)+1)
	for _, v := range versions {
		writes = append(writes, docstore.DeleteOp(TransactionsCollection(expenseID), v.ID))
	}
	writes = append(writes, docstore.DeleteOp(SummariesCollection, expenseID))
	if err := w.store.Batch(ctx, writes); err != nil {
		return fmt.Errorf("delete expense %s: %w", expenseID, err)
	}

	w.logger.Info("expense deleted", "expense_id", expenseID, "versions", len(versions), "actor", actorID)
	w.recorder.Record(ctx, audit.NewEntry(audit.ActionDeleted, expenseID,
		audit.WithActor(actorID),
		audit.WithPayload("versions", len(versions)),
	))
	return nil
}
