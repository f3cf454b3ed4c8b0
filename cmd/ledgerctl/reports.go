package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/warp/expense-ledger/audit"
	"github.com/warp/expense-ledger/expense"
	"github.com/warp/expense-ledger/renderer"
)

// =============================================================================
// LIST
// =============================================================================

type listCmd struct {
	user  string
	group string
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list a user's or a group's expenses" }
func (*listCmd) Usage() string {
	return `ledgerctl list (-user <participant> | -group <group>)

  Lists expenses newest first.
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.user, "user", "", "participant id")
	f.StringVar(&c.group, "group", "", "group id")
}

func (c *listCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if (c.user == "") == (c.group == "") {
		fmt.Fprintln(os.Stderr, "Error: exactly one of -user or -group is required")
		return subcommands.ExitUsageError
	}

	l, err := openLedger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer l.Close()

	var (
		summaries []expense.Summary
		heading   string
	)
	if c.user != "" {
		heading = "Expenses for " + c.user
		summaries, err = l.reader.ListExpensesForUser(ctx, c.user)
	} else {
		heading = "Expenses in group " + c.group
		summaries, err = l.reader.ListExpensesForGroup(ctx, c.group)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing expenses: %v\n", err)
		return subcommands.ExitFailure
	}

	printMarkdown(renderer.Expenses(heading, summaries))
	return subcommands.ExitSuccess
}

// =============================================================================
// SHOW
// =============================================================================

type showCmd struct {
	id      string
	version int
	history bool
}

func (*showCmd) Name() string     { return "show" }
func (*showCmd) Synopsis() string { return "show an expense, one version or its full history" }
func (*showCmd) Usage() string {
	return `ledgerctl show -id <expense> [-version <n> | -history]

  Without options, shows the expense with its latest version.
`
}

func (c *showCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "expense id")
	f.IntVar(&c.version, "version", 0, "show this version only")
	f.BoolVar(&c.history, "history", false, "show every version, oldest first")
}

func (c *showCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.id == "" {
		fmt.Fprintln(os.Stderr, "Error: -id is required")
		return subcommands.ExitUsageError
	}
	if c.version < 0 || (c.version > 0 && c.history) {
		fmt.Fprintln(os.Stderr, "Error: -version must be positive and cannot be combined with -history")
		return subcommands.ExitUsageError
	}

	l, err := openLedger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer l.Close()

	switch {
	case c.history:
		summary, err := l.reader.GetSummary(ctx, c.id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading expense: %v\n", err)
			return subcommands.ExitFailure
		}
		versions, err := l.reader.ListVersions(ctx, c.id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading versions: %v\n", err)
			return subcommands.ExitFailure
		}
		printMarkdown(renderer.History(summary, versions))

	case c.version > 0:
		summary, err := l.reader.GetSummary(ctx, c.id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading expense: %v\n", err)
			return subcommands.ExitFailure
		}
		tx, err := l.reader.GetVersion(ctx, c.id, c.version)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading version %d: %v\n", c.version, err)
			return subcommands.ExitFailure
		}
		printMarkdown(renderer.History(summary, []expense.Transaction{tx}))

	default:
		view, err := l.reader.GetExpenseView(ctx, c.id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading expense: %v\n", err)
			return subcommands.ExitFailure
		}
		printMarkdown(renderer.Expense(view))
	}
	return subcommands.ExitSuccess
}

// =============================================================================
// BALANCES
// =============================================================================

type balancesCmd struct {
	user string
	all  bool
}

func (*balancesCmd) Name() string     { return "balances" }
func (*balancesCmd) Synopsis() string { return "show what a user owes and is owed" }
func (*balancesCmd) Usage() string {
	return `ledgerctl balances -user <participant> [-all]

  Balances are per currency and per counterparty. Only pending expenses
  count unless -all is given.
`
}

func (c *balancesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.user, "user", "", "participant id")
	f.BoolVar(&c.all, "all", false, "include settled expenses")
}

func (c *balancesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.user == "" {
		fmt.Fprintln(os.Stderr, "Error: -user is required")
		return subcommands.ExitUsageError
	}

	l, err := openLedger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer l.Close()

	views, err := l.reader.ListViewsForUser(ctx, c.user)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading expenses: %v\n", err)
		return subcommands.ExitFailure
	}
	if !c.all {
		views = expense.Outstanding(views)
	}

	printMarkdown(renderer.Statement(c.user, views, c.all))
	return subcommands.ExitSuccess
}

// =============================================================================
// AUDIT
// =============================================================================

type auditCmd struct {
	id string
}

func (*auditCmd) Name() string     { return "audit" }
func (*auditCmd) Synopsis() string { return "show an expense's audit trail" }
func (*auditCmd) Usage() string {
	return `ledgerctl audit -id <expense>

  Works for deleted expenses too.
`
}

func (c *auditCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "expense id")
}

func (c *auditCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	entries, err := l.audit.Query(ctx, audit.Filter{ExpenseID: c.id})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading audit trail: %v\n", err)
		return subcommands.ExitFailure
	}

	printMarkdown(renderer.Audit(c.id, entries))
	return subcommands.ExitSuccess
}
