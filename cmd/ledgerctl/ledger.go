package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/warp/expense-ledger/audit"
	"github.com/warp/expense-ledger/config"
	"github.com/warp/expense-ledger/expense"
	"github.com/warp/expense-ledger/renderer"
	"github.com/warp/expense-ledger/store/sqlite"
)

var (
	configPath = flag.String("config", "", "Path to the config file")
	dbPath     = flag.String("db", "", "Path to the SQLite ledger file (overrides store.path)")
	actorID    = flag.String("as", "", "Participant id recorded as the actor of writes")
	plain      = flag.Bool("plain", false, "Print raw markdown instead of styled terminal output")
)

// stdout is where commands print; tests swap it.
var stdout io.Writer = os.Stdout

// ledger bundles everything a command needs.
type ledger struct {
	store    *sqlite.Store
	writer   *expense.Writer
	reader   *expense.Reader
	audit    audit.Log
	currency string
}

// openLedger opens the SQLite ledger named by the flags and config. Writes
// are audited synchronously since the process exits right after.
func openLedger() (*ledger, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	path := cfg.Store.Path
	if *dbPath != "" {
		path = *dbPath
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	store, err := sqlite.New(path)
	if err != nil {
		return nil, err
	}

	logger := cfg.Log.Logger()
	log := audit.NewDocLog(store)
	return &ledger{
		store: store,
		writer: expense.NewWriter(store,
			expense.WithAtomicWrites(cfg.Ledger.AtomicWrites),
			expense.WithRecorder(audit.Sync{Log: log, Logger: logger}),
			expense.WithWriterLogger(logger),
			expense.WithReaderOptions(expense.WithTimeout(cfg.Ledger.ReadTimeout)),
		),
		reader: expense.NewReader(store,
			expense.WithTimeout(cfg.Ledger.ReadTimeout),
			expense.WithViewConcurrency(cfg.Ledger.ViewConcurrency),
			expense.WithReaderLogger(logger),
		),
		audit:    log,
		currency: cfg.Ledger.DefaultCurrency,
	}, nil
}

func (l *ledger) Close() error {
	return l.store.Close()
}

// readJSON decodes a JSON file into dst. "-" reads stdin.
func readJSON(name string, dst any) error {
	if name == "" {
		return fmt.Errorf("an input file is required (-f)")
	}
	var r io.Reader = os.Stdin
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// printMarkdown prints a report, styled for the terminal unless -plain.
func printMarkdown(md string) {
	if !*plain {
		styled, err := renderer.Terminal(md, 100)
		if err == nil {
			fmt.Fprint(stdout, styled)
			return
		}
	}
	fmt.Fprint(stdout, md)
}
