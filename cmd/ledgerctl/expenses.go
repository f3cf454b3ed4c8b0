package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/warp/expense-ledger/api"
	"github.com/warp/expense-ledger/expense"
	"github.com/warp/expense-ledger/renderer"
)

// =============================================================================
// CREATE / COMPLETE
// =============================================================================

type createCmd struct {
	file string
}

func (*createCmd) Name() string     { return "create" }
func (*createCmd) Synopsis() string { return "record an expense" }
func (*createCmd) Usage() string {
	return `ledgerctl [-as <participant>] create -f <expense.json>

  Records an expense and its first version. On a partial write the
  expense id is printed so the write can be finished with 'complete'.
`
}

func (c *createCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.file, "f", "", "create expense request, - for stdin")
}

func (c *createCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var req api.CreateExpenseRequest
	if err := readJSON(c.file, &req); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading request: %v\n", err)
		return subcommands.ExitUsageError
	}

	l, err := openLedger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer l.Close()

	if req.Currency == "" {
		req.Currency = l.currency
	}
	in, err := req.CreateInput(*actorID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading request: %v\n", err)
		return subcommands.ExitUsageError
	}

	view, err := l.writer.CreateExpense(ctx, in)
	if err != nil {
		var partial *expense.PartialWriteError
		if errors.As(err, &partial) {
			fmt.Fprintf(os.Stderr, "Expense %s was recorded without its first version: %v\n", partial.ExpenseID, partial.Err)
			fmt.Fprintf(os.Stderr, "Run: ledgerctl complete -id %s -f %s\n", partial.ExpenseID, c.file)
			return subcommands.ExitFailure
		}
		fmt.Fprintf(os.Stderr, "Error creating expense: %v\n", err)
		return subcommands.ExitFailure
	}

	printMarkdown(renderer.Expense(view))
	return subcommands.ExitSuccess
}

type completeCmd struct {
	id   string
	file string
}

func (*completeCmd) Name() string     { return "complete" }
func (*completeCmd) Synopsis() string { return "write the missing first version of an expense" }
func (*completeCmd) Usage() string {
	return `ledgerctl [-as <participant>] complete -id <expense> -f <expense.json>

  Finishes an expense left without a first version by a partial write.
  Takes the same file as 'create'. Running it twice is harmless.
`
}

func (c *completeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "expense id")
	f.StringVar(&c.file, "f", "", "create expense request, - for stdin")
}

func (c *completeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.id == "" {
		fmt.Fprintln(os.Stderr, "Error: -id is required")
		return subcommands.ExitUsageError
	}
	var req api.CreateExpenseRequest
	if err := readJSON(c.file, &req); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading request: %v\n", err)
		return subcommands.ExitUsageError
	}
	in, err := req.CreateInput(*actorID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading request: %v\n", err)
		return subcommands.ExitUsageError
	}

	l, err := openLedger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer l.Close()

	view, err := l.writer.CompleteExpense(ctx, c.id, in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error completing expense: %v\n", err)
		return subcommands.ExitFailure
	}

	printMarkdown(renderer.Expense(view))
	return subcommands.ExitSuccess
}

// =============================================================================
// REVISE
// =============================================================================

type reviseCmd struct {
	id   string
	file string
}

func (*reviseCmd) Name() string     { return "revise" }
func (*reviseCmd) Synopsis() string { return "append a version to an expense" }
func (*reviseCmd) Usage() string {
	return `ledgerctl [-as <participant>] revise -id <expense> -f <revision.json>

  Appends a new version with recomputed splits. Earlier versions are kept.
`
}

func (c *reviseCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "expense id")
	f.StringVar(&c.file, "f", "", "revise expense request, - for stdin")
}

func (c *reviseCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.id == "" {
		fmt.Fprintln(os.Stderr, "Error: -id is required")
		return subcommands.ExitUsageError
	}
	var req api.ReviseExpenseRequest
	if err := readJSON(c.file, &req); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading request: %v\n", err)
		return subcommands.ExitUsageError
	}
	in, err := req.ReviseInput(*actorID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading request: %v\n", err)
		return subcommands.ExitUsageError
	}

	l, err := openLedger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer l.Close()

	view, err := l.writer.ReviseExpense(ctx, c.id, in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error revising expense: %v\n", err)
		return subcommands.ExitFailure
	}

	printMarkdown(renderer.Expense(view))
	return subcommands.ExitSuccess
}

// =============================================================================
// SETTLE / DELETE
// =============================================================================

type settleCmd struct {
	id string
}

func (*settleCmd) Name() string     { return "settle" }
func (*settleCmd) Synopsis() string { return "mark an expense settled" }
func (*settleCmd) Usage() string {
	return `ledgerctl [-as <participant>] settle -id <expense>
`
}

func (c *settleCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "expense id")
}

func (c *settleCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.id == "" {
		fmt.Fprintln(os.Stderr, "Error: -id is required")
		return subcommands.ExitUsageError
	}

	l, err := openLedger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer l.Close()

	if _, err := l.writer.SettleExpense(ctx, c.id, *actorID); err != nil {
		fmt.Fprintf(os.Stderr, "Error settling expense: %v\n", err)
		return subcommands.ExitFailure
	}
	view, err := l.reader.GetExpenseView(ctx, c.id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading expense: %v\n", err)
		return subcommands.ExitFailure
	}

	printMarkdown(renderer.Expense(view))
	return subcommands.ExitSuccess
}

type deleteCmd struct {
	id string
}

func (*deleteCmd) Name() string     { return "delete" }
func (*deleteCmd) Synopsis() string { return "remove an expense and all its versions" }
func (*deleteCmd) Usage() string {
	return `ledgerctl [-as <participant>] delete -id <expense>

  The audit trail of the expense is kept.
`
}

func (c *deleteCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "expense id")
}

func (c *deleteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.id == "" {
		fmt.Fprintln(os.Stderr, "Error: -id is required")
		return subcommands.ExitUsageError
	}

	l, err := openLedger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer l.Close()

	if err := l.writer.DeleteExpense(ctx, c.id, *actorID); err != nil {
		fmt.Fprintf(os.Stderr, "Error deleting expense: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Fprintf(stdout, "Deleted expense %s\n", c.id)
	return subcommands.ExitSuccess
}
