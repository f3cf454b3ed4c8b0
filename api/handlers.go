package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/warp/expense-ledger/audit"
	"github.com/warp/expense-ledger/expense"
	"github.com/warp/expense-ledger/renderer"
	"github.com/warp/expense-ledger/split"
)

// ParticipantHeader carries the caller's participant id. Authentication
// happens in front of this service; the header is trusted as given.
const ParticipantHeader = "X-Participant-ID"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Writer *expense.Writer
	Reader *expense.Reader

	// Audit is optional; without it the audit endpoint answers 404.
	Audit audit.Log

	// DefaultCurrency fills in requests that name no currency.
	DefaultCurrency string

	// Reset clears the store before a scenario loads. Nil disables the
	// scenario and reset endpoints.
	Reset ResetFunc

	Logger *slog.Logger

	// scenarioMu serializes resets and scenario loads and guards
	// currentScenario.
	scenarioMu      sync.Mutex
	currentScenario string
}

// NewHandler creates a handler over the ledger's writer and reader.
func NewHandler(writer *expense.Writer, reader *expense.Reader, auditLog audit.Log, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Writer:          writer,
		Reader:          reader,
		Audit:           auditLog,
		DefaultCurrency: expense.DefaultCurrency,
		Logger:          logger,
	}
}

// actor is the participant making the request. Empty means the writer falls
// back to the payer.
func actor(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(ParticipantHeader))
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// =============================================================================
// EXPENSE HANDLERS
// =============================================================================

// CreateExpense records a new expense.
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req CreateExpenseRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Currency == "" {
		req.Currency = h.DefaultCurrency
	}
	in, err := req.CreateInput(actor(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid split method", err)
		return
	}

	view, err := h.Writer.CreateExpense(r.Context(), in)
	if err != nil {
		h.writeLedgerError(w, r, "Failed to create expense", err)
		return
	}
	writeJSON(w, http.StatusCreated, toViewDTO(view))
}

// CompleteExpense writes the first version of an expense left incomplete by
// a partial write. The body is the same as for creation.
func (h *Handler) CompleteExpense(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req CreateExpenseRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	in, err := req.CreateInput(actor(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid split method", err)
		return
	}

	view, err := h.Writer.CompleteExpense(r.Context(), id, in)
	if err != nil {
		h.writeLedgerError(w, r, "Failed to complete expense", err)
		return
	}
	writeJSON(w, http.StatusOK, toViewDTO(view))
}

// GetExpense returns the summary with its latest version.
func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	view, err := h.Reader.GetExpenseView(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeLedgerError(w, r, "Failed to load expense", err)
		return
	}
	writeJSON(w, http.StatusOK, toViewDTO(view))
}

// ReviseExpense appends a new version.
func (h *Handler) ReviseExpense(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ReviseExpenseRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	in, err := req.ReviseInput(actor(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid split method", err)
		return
	}

	view, err := h.Writer.ReviseExpense(r.Context(), id, in)
	if err != nil {
		h.writeLedgerError(w, r, "Failed to revise expense", err)
		return
	}
	writeJSON(w, http.StatusCreated, toViewDTO(view))
}

// ListVersions returns every version, oldest first.
func (h *Handler) ListVersions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.Reader.ListVersions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeLedgerError(w, r, "Failed to list versions", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

// GetVersion returns one version.
func (h *Handler) GetVersion(w http.ResponseWriter, r *http.Request) {
	version, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil || version < 1 {
		writeError(w, http.StatusBadRequest, "Invalid version", err)
		return
	}

	tx, err := h.Reader.GetVersion(r.Context(), chi.URLParam(r, "id"), version)
	if err != nil {
		h.writeLedgerError(w, r, "Failed to load version", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(tx))
}

// SettleExpense marks an expense settled.
func (h *Handler) SettleExpense(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Writer.SettleExpense(r.Context(), chi.URLParam(r, "id"), actor(r))
	if err != nil {
		h.writeLedgerError(w, r, "Failed to settle expense", err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseDTO(summary))
}

// DeleteExpense removes an expense and all of its versions.
func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := h.Writer.DeleteExpense(r.Context(), chi.URLParam(r, "id"), actor(r)); err != nil {
		h.writeLedgerError(w, r, "Failed to delete expense", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetExpenseAudit returns the audit trail of one expense, oldest first.
// Entries outlive the expense they describe.
func (h *Handler) GetExpenseAudit(w http.ResponseWriter, r *http.Request) {
	if h.Audit == nil {
		writeError(w, http.StatusNotFound, "Audit trail is disabled", nil)
		return
	}
	entries, err := h.Audit.Query(r.Context(), audit.Filter{ExpenseID: chi.URLParam(r, "id")})
	if err != nil {
		h.writeLedgerError(w, r, "Failed to load audit trail", err)
		return
	}
	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toAuditEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// USER & GROUP HANDLERS
// =============================================================================

// ListUserExpenses returns every expense the user paid or takes part in.
func (h *Handler) ListUserExpenses(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.Reader.ListExpensesForUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeLedgerError(w, r, "Failed to list expenses", err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseDTOs(summaries))
}

// GetUserBalances projects the user's position against everyone they share
// expenses with, one entry per currency. Settled expenses are left out
// unless include_settled=true.
func (h *Handler) GetUserBalances(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	includeSettled, err := parseIncludeSettled(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid include_settled", err)
		return
	}
	views, err := h.balanceViews(r, userID, includeSettled)
	if err != nil {
		h.writeLedgerError(w, r, "Failed to load balances", err)
		return
	}

	byCurrency := expense.ProjectByCurrency(userID, views)
	currencies := make([]string, 0, len(byCurrency))
	for c := range byCurrency {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)

	resp := BalancesResponse{
		UserID:         userID,
		IncludeSettled: includeSettled,
		Expenses:       len(views),
		Balances:       make([]BalanceDTO, 0, len(currencies)),
	}
	for _, c := range currencies {
		resp.Balances = append(resp.Balances, toBalanceDTO(c, byCurrency[c]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetUserStatement renders a user's balances and the expenses behind them
// as a report. format=md returns markdown, anything else HTML.
func (h *Handler) GetUserStatement(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	includeSettled, err := parseIncludeSettled(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid include_settled", err)
		return
	}
	views, err := h.balanceViews(r, userID, includeSettled)
	if err != nil {
		h.writeLedgerError(w, r, "Failed to load statement", err)
		return
	}

	md := renderer.Statement(userID, views, includeSettled)
	switch format := r.URL.Query().Get("format"); format {
	case "md", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(md))
	case "", "html":
		html, err := renderer.HTML(md)
		if err != nil {
			h.writeLedgerError(w, r, "Failed to render statement", err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(html))
	default:
		writeError(w, http.StatusBadRequest, "Invalid format", fmt.Errorf("unknown format %q, want md or html", format))
	}
}

func parseIncludeSettled(r *http.Request) (bool, error) {
	raw := r.URL.Query().Get("include_settled")
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}

// balanceViews loads the views that count towards a user's balances.
func (h *Handler) balanceViews(r *http.Request, userID string, includeSettled bool) ([]expense.View, error) {
	views, err := h.Reader.ListViewsForUser(r.Context(), userID)
	if err != nil {
		return nil, err
	}
	if !includeSettled {
		views = expense.Outstanding(views)
	}
	return views, nil
}

// ListGroupExpenses returns a group's expenses, newest first.
func (h *Handler) ListGroupExpenses(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.Reader.ListExpensesForGroup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeLedgerError(w, r, "Failed to list group expenses", err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseDTOs(summaries))
}

// =============================================================================
// SPLIT PREVIEW
// =============================================================================

// PreviewSplit runs the split calculator and returns the shares. Nothing is stored.
func (h *Handler) PreviewSplit(w http.ResponseWriter, r *http.Request) {
	var req SplitPreviewRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Currency == "" {
		req.Currency = h.DefaultCurrency
	}
	in, err := req.SplitInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid split method", err)
		return
	}

	splits, err := split.Calculate(in)
	if err != nil {
		h.writeLedgerError(w, r, "Invalid split", err)
		return
	}
	writeJSON(w, http.StatusOK, SplitPreviewDTO{
		Currency: split.LookupCurrency(req.Currency).Code,
		Total:    split.Sum(splits),
		Splits:   toSplitDTOs(splits),
	})
}

// Health reports that the process is serving.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeLedgerError maps ledger errors onto HTTP statuses:
//
//	bad input          400
//	unknown expense    404
//	version conflict   409
//	partial write      500, with the expense id so the client can complete it
//	store timeout      504
//	anything else      500
func (h *Handler) writeLedgerError(w http.ResponseWriter, r *http.Request, message string, err error) {
	var partial *expense.PartialWriteError
	switch {
	case errors.As(err, &partial):
		h.Logger.Error(message, "error", err, "expense_id", partial.ExpenseID, "path", r.URL.Path)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: message,
			Code:  "partial_write",
			Details: map[string]string{
				"expense_id": partial.ExpenseID,
				"cause":      partial.Err.Error(),
			},
		})
	case expense.IsClientError(err):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: message, Code: "invalid", Details: err.Error()})
	case expense.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: message, Code: "not_found", Details: err.Error()})
	case errors.Is(err, expense.ErrVersionConflict):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: message, Code: "version_conflict", Details: err.Error()})
	case errors.Is(err, expense.ErrStoreTimeout):
		h.Logger.Warn(message, "error", err, "path", r.URL.Path)
		writeJSON(w, http.StatusGatewayTimeout, ErrorResponse{Error: message, Code: "store_timeout", Details: err.Error()})
	default:
		h.Logger.Error(message, "error", err, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
