package audit

import (
	"context"
	"log/slog"
	"sync"
)

// =============================================================================
// WORKER - asynchronous recorder
// =============================================================================

// Worker hands entries to a Log on a background goroutine. When the buffer
// is full new entries are dropped with a warning rather than blocking the
// ledger write that produced them.
type Worker struct {
	entryCh chan Entry
	log     Log
	logger  *slog.Logger
	wg      sync.WaitGroup
	stop    chan struct{}

	mu     sync.RWMutex
	closed bool
}

var _ Recorder = (*Worker)(nil)

func NewWorker(log Log, bufferSize int, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Worker{
		entryCh: make(chan Entry, bufferSize),
		log:     log,
		logger:  logger,
		stop:    make(chan struct{}),
	}
}

// Start consumes entries until Shutdown. Entries already queued are saved
// even while shutting down, so saves run on their own context.
func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-w.stop:
				w.logger.Info("draining audit entries before shutdown", "remaining_entries", len(w.entryCh))
				for len(w.entryCh) > 0 {
					w.save(context.Background(), <-w.entryCh)
				}
				return
			case e := <-w.entryCh:
				w.save(context.Background(), e)
			}
		}
	}()
}

func (w *Worker) save(ctx context.Context, e Entry) {
	if err := w.log.Append(ctx, e); err != nil {
		w.logger.Error("failed to save audit entry", "error", err, "action", e.Action, "expense_id", e.ExpenseID)
	}
}

// Record enqueues an entry. It never blocks.
func (w *Worker) Record(_ context.Context, e Entry) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		w.logger.Warn("audit worker stopped, dropping entry", "action", e.Action, "expense_id", e.ExpenseID)
		return
	}
	select {
	case w.entryCh <- e:
	default:
		w.logger.Warn("audit channel full, dropping entry", "action", e.Action, "expense_id", e.ExpenseID)
	}
}

// Shutdown stops accepting entries and waits until the buffer is drained.
func (w *Worker) Shutdown() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()

	close(w.stop)
	w.wg.Wait()
}

// =============================================================================
// SYNC - synchronous recorder
// =============================================================================

// Sync writes each entry before returning. Failures are logged.
type Sync struct {
	Log    Log
	Logger *slog.Logger
}

func (s Sync) Record(ctx context.Context, e Entry) {
	if err := s.Log.Append(ctx, e); err != nil {
		logger := s.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("failed to save audit entry", "error", err, "action", e.Action, "expense_id", e.ExpenseID)
	}
}
