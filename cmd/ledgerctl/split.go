package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/warp/expense-ledger/api"
	"github.com/warp/expense-ledger/config"
	"github.com/warp/expense-ledger/renderer"
	"github.com/warp/expense-ledger/split"
)

// splitCmd previews a split without touching the ledger.
type splitCmd struct {
	file string
}

func (*splitCmd) Name() string     { return "split" }
func (*splitCmd) Synopsis() string { return "preview how an amount splits between participants" }
func (*splitCmd) Usage() string {
	return `ledgerctl split -f <request.json>

  Runs the split calculator on a split preview request and prints each
  participant's share. Nothing is written.
`
}

func (c *splitCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.file, "f", "", "split preview request, - for stdin")
}

func (c *splitCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var req api.SplitPreviewRequest
	if err := readJSON(c.file, &req); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading request: %v\n", err)
		return subcommands.ExitUsageError
	}
	if req.Currency == "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			return subcommands.ExitFailure
		}
		req.Currency = cfg.Ledger.DefaultCurrency
	}

	in, err := req.SplitInput()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading request: %v\n", err)
		return subcommands.ExitUsageError
	}
	splits, err := split.Calculate(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid split: %v\n", err)
		return subcommands.ExitFailure
	}

	printMarkdown(renderer.Splits(req.Currency, splits))
	return subcommands.ExitSuccess
}
