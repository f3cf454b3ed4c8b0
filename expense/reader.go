/*
reader.go - Read/merge engine

PURPOSE:
  Answers "which expenses touch user U" and "what is the latest version of
  expense E" against a store that only supports single-predicate queries
  and has no joins.

LIST FOR USER:
  Two queries run concurrently and both must finish:
    (a) summaries where paidBy == U
    (b) summaries where participantIds array-contains U
  If either fails the whole call fails. Results are merged by expense id
  (MergeSummaries) and ordered by createdAt desc, id asc.

  (b) matches a scalar id. Matching split objects by value would miss a
  participant whose split differs in any field (name, amount).

LATEST VERSION:
  summaries/{id}/transactions ordered by version desc, limit 1. No
  transaction means an incomplete expense: the view has Latest == nil.

TIMEOUTS:
  With a timeout set, every call runs under a deadline. Expiry surfaces as
  StoreTimeoutError instead of a context error.
*/
package expense

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/warp/expense-ledger/docstore"
)

// DefaultViewConcurrency bounds the per-expense lookups of ListViewsForUser.
const DefaultViewConcurrency = 8

type Reader struct {
	store       docstore.Store
	timeout     time.Duration
	concurrency int
	logger      *slog.Logger
}

type ReaderOption func(*Reader)

// WithTimeout sets a deadline for every read. Zero disables it.
func WithTimeout(d time.Duration) ReaderOption {
	return func(r *Reader) {
		r.timeout = d
	}
}

func WithViewConcurrency(n int) ReaderOption {
	return func(r *Reader) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

func WithReaderLogger(logger *slog.Logger) ReaderOption {
	return func(r *Reader) {
		r.logger = logger
	}
}

func NewReader(store docstore.Store, opts ...ReaderOption) *Reader {
	r := &Reader{
		store:       store,
		concurrency: DefaultViewConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// run executes fn under the reader's deadline.
func (r *Reader) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if r.timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	err := fn(ctx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return &StoreTimeoutError{Op: op, Timeout: r.timeout}
	}
	return err
}

// =============================================================================
// LISTS
// =============================================================================

// ListExpensesForUser returns every expense the user paid for or takes part in.
func (r *Reader) ListExpensesForUser(ctx context.Context, userID string) ([]Summary, error) {
	var result []Summary
	err := r.run(ctx, "list expenses for user", func(ctx context.Context) error {
		var err error
		result, err = r.listForUser(ctx, userID)
		return err
	})
	return result, err
}

func (r *Reader) listForUser(ctx context.Context, userID string) ([]Summary, error) {
	var paid, participating []Summary

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		paid, err = r.querySummaries(gctx, docstore.Where("paidBy", userID))
		return err
	})
	g.Go(func() error {
		var err error
		participating, err = r.querySummaries(gctx, docstore.ArrayContains("participantIds", userID))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("list expenses for %s: %w", userID, err)
	}
	return MergeSummaries(paid, participating), nil
}

// ListExpensesForGroup returns the group's expenses, newest first.
func (r *Reader) ListExpensesForGroup(ctx context.Context, groupID string) ([]Summary, error) {
	var result []Summary
	err := r.run(ctx, "list expenses for group", func(ctx context.Context) error {
		summaries, err := r.querySummaries(ctx, docstore.Where("groupId", groupID))
		if err != nil {
			return fmt.Errorf("list expenses for group %s: %w", groupID, err)
		}
		result = MergeSummaries(summaries)
		return nil
	})
	return result, err
}

// ListViewsForUser is ListExpensesForUser with each expense's latest version
// attached. Lookups run concurrently, bounded by the view concurrency.
func (r *Reader) ListViewsForUser(ctx context.Context, userID string) ([]View, error) {
	var views []View
	err := r.run(ctx, "list views for user", func(ctx context.Context) error {
		summaries, err := r.listForUser(ctx, userID)
		if err != nil {
			return err
		}

		views = make([]View, len(summaries))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.concurrency)
		for i, s := range summaries {
			g.Go(func() error {
				latest, err := r.latest(gctx, s)
				if err != nil {
					return err
				}
				views[i] = View{Summary: s, Latest: latest}
				return nil
			})
		}
		return g.Wait()
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

// querySummaries decodes a summary query. Malformed records are skipped with
// a warning so one bad document does not hide a user's other expenses.
func (r *Reader) querySummaries(ctx context.Context, where *docstore.Predicate) ([]Summary, error) {
	snaps, err := r.store.Query(ctx, SummariesCollection, docstore.Query{Where: where})
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(snaps))
	for _, snap := range snaps {
		s, err := DecodeSummary(snap)
		if err != nil {
			r.logger.Warn("skipping malformed summary", "expense_id", snap.ID, "error", err)
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// =============================================================================
// SINGLE EXPENSE
// =============================================================================

// GetSummary fetches one summary.
func (r *Reader) GetSummary(ctx context.Context, expenseID string) (Summary, error) {
	var s Summary
	err := r.run(ctx, "get summary", func(ctx context.Context) error {
		var err error
		s, err = r.summary(ctx, expenseID)
		return err
	})
	return s, err
}

func (r *Reader) summary(ctx context.Context, expenseID string) (Summary, error) {
	if expenseID == "" {
		return Summary{}, &NotFoundError{ExpenseID: expenseID}
	}
	snap, err := r.store.Get(ctx, SummariesCollection, expenseID)
	if err != nil {
		return Summary{}, fmt.Errorf("get expense %s: %w", expenseID, err)
	}
	if snap == nil {
		return Summary{}, &NotFoundError{ExpenseID: expenseID}
	}
	return DecodeSummary(*snap)
}

// GetExpenseView returns the summary with its highest version attached.
func (r *Reader) GetExpenseView(ctx context.Context, expenseID string) (View, error) {
	var view View
	err := r.run(ctx, "get expense view", func(ctx context.Context) error {
		s, err := r.summary(ctx, expenseID)
		if err != nil {
			return err
		}
		latest, err := r.latest(ctx, s)
		if err != nil {
			return err
		}
		view = View{Summary: s, Latest: latest}
		return nil
	})
	return view, err
}

func (r *Reader) latest(ctx context.Context, s Summary) (*Transaction, error) {
	snaps, err := r.store.Query(ctx, TransactionsCollection(s.ID), docstore.Query{
		OrderBy:    "version",
		Descending: true,
		Limit:      1,
	})
	if err != nil {
		return nil, fmt.Errorf("latest version of %s: %w", s.ID, err)
	}
	if len(snaps) == 0 {
		return nil, nil
	}
	tx, err := DecodeTransaction(s.ID, s.Currency, snaps[0])
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// ListVersions returns every version of the expense, oldest first.
func (r *Reader) ListVersions(ctx context.Context, expenseID string) ([]Transaction, error) {
	var versions []Transaction
	err := r.run(ctx, "list versions", func(ctx context.Context) error {
		s, err := r.summary(ctx, expenseID)
		if err != nil {
			return err
		}
		snaps, err := r.store.Query(ctx, TransactionsCollection(expenseID), docstore.Query{OrderBy: "version"})
		if err != nil {
			return fmt.Errorf("list versions of %s: %w", expenseID, err)
		}
		versions = make([]Transaction, 0, len(snaps))
		for _, snap := range snaps {
			tx, err := DecodeTransaction(expenseID, s.Currency, snap)
			if err != nil {
				return err
			}
			versions = append(versions, tx)
		}
		return nil
	})
	return versions, err
}

// GetVersion returns one specific version.
func (r *Reader) GetVersion(ctx context.Context, expenseID string, version int) (Transaction, error) {
	var tx Transaction
	err := r.run(ctx, "get version", func(ctx context.Context) error {
		s, err := r.summary(ctx, expenseID)
		if err != nil {
			return err
		}
		snaps, err := r.store.Query(ctx, TransactionsCollection(expenseID), docstore.Query{
			Where: docstore.Where("version", version),
			Limit: 1,
		})
		if err != nil {
			return fmt.Errorf("get version %d of %s: %w", version, expenseID, err)
		}
		if len(snaps) == 0 {
			return &NotFoundError{ExpenseID: expenseID, Version: version}
		}
		tx, err = DecodeTransaction(expenseID, s.Currency, snaps[0])
		return err
	})
	return tx, err
}
