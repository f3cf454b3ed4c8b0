/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the expense ledger HTTP server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load configuration (defaults, config file, .env, LEDGER_* environment)
  3. Open the document store (memory or SQLite)
  4. Start the audit worker
  5. Build the ledger writer/reader and the API handler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Path to a yaml config file (default: ./config.yaml if present)
  -port    HTTP server port, overrides server.port
  -db      SQLite database path, overrides store.path and selects the sqlite driver
           Use ":memory:" for an in-memory SQLite database
  -demo    Mount the scenario and reset endpoints

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (server.shutdown_timeout)
  3. Drain buffered audit entries
  4. Close the store
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/ledger.db"

  # Run against the in-memory store with demo data endpoints
  LEDGER_STORE_DRIVER=memory ./server -demo

  # Run on different port
  ./server -port=3000

SEE ALSO:
  - config/config.go: Configuration sources and defaults
  - api/server.go: Router configuration
  - expense/writer.go, expense/reader.go: The ledger core
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/warp/expense-ledger/api"
	"github.com/warp/expense-ledger/audit"
	"github.com/warp/expense-ledger/config"
	"github.com/warp/expense-ledger/docstore"
	"github.com/warp/expense-ledger/docstore/memory"
	"github.com/warp/expense-ledger/expense"
	"github.com/warp/expense-ledger/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "Path to config file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	demo := flag.Bool("demo", false, "Enable scenario and reset endpoints")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Store.Driver = "sqlite"
		cfg.Store.Path = *dbPath
	}
	if *demo {
		cfg.Server.Demo = true
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Log.Logger()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	// Initialize store
	store, reset, closeStore, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	// Audit trail
	var (
		auditLog audit.Log
		recorder audit.Recorder = audit.Discard
	)
	if cfg.Audit.Enabled {
		auditLog = audit.NewDocLog(store)
		worker := audit.NewWorker(auditLog, cfg.Audit.BufferSize, logger)
		worker.Start()
		defer worker.Shutdown()
		recorder = worker
	}

	// Ledger core
	writer := expense.NewWriter(store,
		expense.WithAtomicWrites(cfg.Ledger.AtomicWrites),
		expense.WithRecorder(recorder),
		expense.WithWriterLogger(logger),
		expense.WithReaderOptions(expense.WithTimeout(cfg.Ledger.ReadTimeout)),
	)
	reader := expense.NewReader(store,
		expense.WithTimeout(cfg.Ledger.ReadTimeout),
		expense.WithViewConcurrency(cfg.Ledger.ViewConcurrency),
		expense.WithReaderLogger(logger),
	)

	// Initialize handler
	handler := api.NewHandler(writer, reader, auditLog, logger)
	handler.DefaultCurrency = cfg.Ledger.DefaultCurrency
	if cfg.Server.Demo {
		handler.Reset = reset
		logger.Warn("demo endpoints enabled: /api/scenarios, /api/admin/reset")
	}

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(handler, cfg.Server.CORSOrigins),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			"addr", server.Addr,
			"store", cfg.Store.Driver,
			"atomic_writes", cfg.Ledger.AtomicWrites,
			"audit", cfg.Audit.Enabled,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		return err
	}

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// openStore builds the configured document store along with its reset and
// close functions.
func openStore(cfg config.StoreConfig) (docstore.Store, api.ResetFunc, func(), error) {
	switch cfg.Driver {
	case "memory":
		m := memory.NewMemory()
		reset := func(context.Context) error {
			m.Reset()
			return nil
		}
		return m, reset, func() {}, nil
	case "sqlite":
		if cfg.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
				return nil, nil, nil, fmt.Errorf("create data directory: %w", err)
			}
		}
		s, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return s, s.Reset, func() { s.Close() }, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
