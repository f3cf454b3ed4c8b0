/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
	Provides pre-built scenarios that populate the ledger with realistic
	expenses. Each scenario goes through the same Writer the API uses, so
	a loaded scenario exercises the full write protocol (summary, v1,
	revisions, settlement, audit entries).

AVAILABLE SCENARIOS:

	team-dinner:  One dinner split equally five ways (26.00 each)
	pizza-night:  Itemized receipt, tax and tip shared by item subtotal
	weekend-trip: Group expenses with a percentage split, a revision and a
	              settled expense
	drinks:       Three-way equal split with a remainder cent (6.67/6.67/6.66)

HOW SCENARIOS WORK:
 1. Reset the store (clear all data)
 2. Create expenses through the Writer
 3. Optionally revise or settle some of them

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "weekend-trip"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add it to the 'loaders' map

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - server.go: routes are mounted only when a ResetFunc is configured
  - expense/writer.go: the write protocol every loader goes through
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/warp/expense-ledger/expense"
	"github.com/warp/expense-ledger/split"
)

// ResetFunc empties the underlying store.
type ResetFunc func(ctx context.Context) error

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "team-dinner",
		Name:        "Team Dinner",
		Description: "107.00 + 8.00 tax + 15.00 tip split equally five ways",
	},
	{
		ID:          "pizza-night",
		Name:        "Pizza Night",
		Description: "Itemized receipt: pizza for two, drinks for three, extras shared by item subtotal",
	},
	{
		ID:          "weekend-trip",
		Name:        "Weekend Trip",
		Description: "Group expenses with a percentage split, a revision and a settled expense",
	},
	{
		ID:          "drinks",
		Name:        "Drinks",
		Description: "20.00 split three ways; the remainder cent goes to the first participant",
	},
}

func (h *Handler) loaders() map[string]func(context.Context) error {
	return map[string]func(context.Context) error{
		"team-dinner":  h.loadTeamDinnerScenario,
		"pizza-night":  h.loadPizzaNightScenario,
		"weekend-trip": h.loadWeekendTripScenario,
		"drinks":       h.loadDrinksScenario,
	}
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.scenarioMu.Lock()
	current := h.currentScenario
	h.scenarioMu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the store and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	load, ok := h.loaders()[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("scenario %q", req.ScenarioID))
		return
	}

	h.scenarioMu.Lock()
	defer h.scenarioMu.Unlock()

	ctx := r.Context()
	if err := h.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset store", err)
		return
	}
	h.currentScenario = ""
	if err := load(ctx); err != nil {
		h.writeLedgerError(w, r, "Failed to load scenario", err)
		return
	}
	h.currentScenario = req.ScenarioID
	h.Logger.Info("scenario loaded", "scenario", req.ScenarioID)

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "loaded",
		"scenario": req.ScenarioID,
	})
}

// ResetStore clears every expense (dev only).
func (h *Handler) ResetStore(w http.ResponseWriter, r *http.Request) {
	h.scenarioMu.Lock()
	defer h.scenarioMu.Unlock()

	if err := h.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset store", err)
		return
	}
	h.currentScenario = ""
	h.Logger.Warn("store reset")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func people(names ...string) []split.Participant {
	out := make([]split.Participant, len(names))
	for i, n := range names {
		out[i] = split.Participant{ID: personID(n), Name: n}
	}
	return out
}

func personID(name string) string {
	return "user-" + name
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func strRef(s string) *string {
	return &s
}

func (h *Handler) loadTeamDinnerScenario(ctx context.Context) error {
	_, err := h.Writer.CreateExpense(ctx, expense.CreateInput{
		Description:  "Team dinner",
		Currency:     "USD",
		PaidBy:       personID("alice"),
		PayerName:    strRef("alice"),
		Date:         "2025-03-01",
		Subtotal:     amount("107"),
		Tax:          amount("8"),
		Tip:          amount("15"),
		SplitMethod:  split.Equal,
		Participants: people("alice", "bob", "carol", "dave", "erin"),
	})
	return err
}

func (h *Handler) loadPizzaNightScenario(ctx context.Context) error {
	_, err := h.Writer.CreateExpense(ctx, expense.CreateInput{
		Description:  "Pizza night",
		Currency:     "USD",
		PaidBy:       personID("alice"),
		PayerName:    strRef("alice"),
		Date:         "2025-03-07",
		Subtotal:     amount("60"),
		Tax:          amount("6"),
		Tip:          amount("10"),
		SplitMethod:  split.Itemized,
		Participants: people("alice", "bob", "carol"),
		Items: []expense.Item{
			{Name: "Pizza", Amount: amount("40"), SplitAcross: []string{personID("alice"), personID("bob")}},
			{Name: "Drinks", Amount: amount("20"), SplitAcross: []string{personID("alice"), personID("bob"), personID("carol")}},
		},
	})
	return err
}

func (h *Handler) loadWeekendTripScenario(ctx context.Context) error {
	group, groupName := strRef("group-trip"), strRef("Weekend trip")

	// Cabin: bob stayed one night less, so he pays a smaller share.
	cabin, err := h.Writer.CreateExpense(ctx, expense.CreateInput{
		GroupID:     group,
		GroupName:   groupName,
		Description: "Cabin rental",
		Currency:    "EUR",
		PaidBy:      personID("alice"),
		PayerName:   strRef("alice"),
		Date:        "2025-06-13",
		Subtotal:    amount("450"),
		SplitMethod: split.Percentage,
		Participants: []split.Participant{
			{ID: personID("alice"), Name: "alice", Percentage: amount("40")},
			{ID: personID("bob"), Name: "bob", Percentage: amount("20")},
			{ID: personID("carol"), Name: "carol", Percentage: amount("40")},
		},
	})
	if err != nil {
		return fmt.Errorf("cabin: %w", err)
	}

	// The cleaning fee showed up after checkout.
	_, err = h.Writer.ReviseExpense(ctx, cabin.Summary.ID, expense.ReviseInput{
		Subtotal:    amount("450"),
		Tax:         amount("30"),
		SplitMethod: split.Percentage,
		Participants: []split.Participant{
			{ID: personID("alice"), Name: "alice", Percentage: amount("40")},
			{ID: personID("bob"), Name: "bob", Percentage: amount("20")},
			{ID: personID("carol"), Name: "carol", Percentage: amount("40")},
		},
		CreatedBy: personID("alice"),
	})
	if err != nil {
		return fmt.Errorf("cabin revision: %w", err)
	}

	fuel, err := h.Writer.CreateExpense(ctx, expense.CreateInput{
		GroupID:      group,
		GroupName:    groupName,
		Description:  "Fuel",
		Currency:     "EUR",
		PaidBy:       personID("bob"),
		PayerName:    strRef("bob"),
		Date:         "2025-06-15",
		Subtotal:     amount("90"),
		SplitMethod:  split.Equal,
		Participants: people("alice", "bob", "carol"),
	})
	if err != nil {
		return fmt.Errorf("fuel: %w", err)
	}
	if _, err := h.Writer.SettleExpense(ctx, fuel.Summary.ID, personID("bob")); err != nil {
		return fmt.Errorf("fuel settlement: %w", err)
	}

	_, err = h.Writer.CreateExpense(ctx, expense.CreateInput{
		GroupID:     group,
		GroupName:   groupName,
		Description: "Groceries",
		Currency:    "EUR",
		PaidBy:      personID("carol"),
		PayerName:   strRef("carol"),
		Date:        "2025-06-14",
		Subtotal:    amount("75.50"),
		SplitMethod: split.Custom,
		Participants: []split.Participant{
			{ID: personID("alice"), Name: "alice", Amount: amount("30")},
			{ID: personID("bob"), Name: "bob", Amount: amount("20.50")},
			{ID: personID("carol"), Name: "carol", Amount: amount("25")},
		},
	})
	if err != nil {
		return fmt.Errorf("groceries: %w", err)
	}
	return nil
}

func (h *Handler) loadDrinksScenario(ctx context.Context) error {
	_, err := h.Writer.CreateExpense(ctx, expense.CreateInput{
		Description:  "Drinks",
		Currency:     "USD",
		PaidBy:       personID("dave"),
		PayerName:    strRef("dave"),
		Date:         "2025-03-08",
		Subtotal:     amount("20"),
		SplitMethod:  split.Equal,
		Participants: people("alice", "bob", "dave"),
	})
	return err
}
