/*
ledgerctl - operator CLI for the expense ledger

PURPOSE:
  Runs ledger operations directly against a SQLite ledger file, without
  the HTTP server. Useful for inspecting data, fixing partial writes and
  trying out splits.

COMMANDS:
  split      preview a split from a JSON file, nothing is written
  create     record an expense from a JSON file
  complete   write the missing first version of a partially written expense
  revise     append a version to an expense
  settle     mark an expense settled
  delete     remove an expense and all its versions
  list       list a user's or a group's expenses
  show       show an expense, one version or its full history
  balances   show what a user owes and is owed
  audit      show an expense's audit trail

GLOBAL FLAGS:
  -config    yaml config file (store.path and ledger.* are read from it)
  -db        SQLite ledger file, overrides store.path
  -as        participant id recorded as the actor of writes
  -plain     print raw markdown instead of styled terminal output

INPUT FILES:
  create, complete and revise read the same JSON bodies the HTTP API
  accepts (api.CreateExpenseRequest, api.ReviseExpenseRequest); split
  reads an api.SplitPreviewRequest. "-" reads from stdin.

SEE ALSO:
  - api/dto.go: input file formats
  - cmd/server/main.go: the HTTP server over the same ledger
*/
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

func register(c *subcommands.Commander) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(c.CommandsCommand(), "")

	c.Register(&splitCmd{}, "calculator")

	c.Register(&createCmd{}, "expenses")
	c.Register(&completeCmd{}, "expenses")
	c.Register(&reviseCmd{}, "expenses")
	c.Register(&settleCmd{}, "expenses")
	c.Register(&deleteCmd{}, "expenses")

	c.Register(&listCmd{}, "reports")
	c.Register(&showCmd{}, "reports")
	c.Register(&balancesCmd{}, "reports")
	c.Register(&auditCmd{}, "reports")
}
