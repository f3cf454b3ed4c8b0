package expense

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/expense-ledger/split"
)

// =============================================================================
// CONSTRUCTION
// =============================================================================

// NewTransaction builds and validates one version of an expense. Splits are
// computed by the calculator unless the caller supplied them.
func NewTransaction(expenseID string, version int, d Detail, createdBy string, now time.Time) (Transaction, error) {
	splits, err := buildSplits(d)
	if err != nil {
		return Transaction{}, err
	}
	tx := Transaction{
		ID:            TransactionID(version),
		ExpenseID:     expenseID,
		Version:       version,
		Subtotal:      d.Subtotal,
		Tax:           d.Tax,
		Tip:           d.Tip,
		SplitMethod:   d.Method,
		Splits:        splits,
		ItemizedItems: d.Items,
		CreatedBy:     createdBy,
		CreatedAt:     now.UTC(),
	}
	if err := tx.Validate(d.Currency); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// NewSummary builds the summary for an expense created with tx.
func NewSummary(id string, in CreateInput, tx Transaction, now time.Time) (Summary, error) {
	status := in.Status
	if status == "" {
		status = StatusPending
	}
	date := in.Date
	if date == "" {
		date = now.UTC().Format(DateLayout)
	}
	s := Summary{
		ID:               id,
		GroupID:          in.GroupID,
		GroupName:        in.GroupName,
		Description:      in.Description,
		TotalAmount:      tx.Total(),
		Currency:         currencyCode(in.Currency),
		PaidBy:           in.PaidBy,
		PayerName:        in.PayerName,
		Status:           status,
		ParticipantCount: len(tx.Splits),
		ParticipantIDs:   unionParticipants(nil, tx.Splits),
		Date:             date,
		CreatedAt:        now.UTC(),
	}
	if err := s.Validate(); err != nil {
		return Summary{}, err
	}
	return s, nil
}

// currencyCode normalizes a currency code; empty means DefaultCurrency, the
// same default the decoder applies.
func currencyCode(code string) string {
	c := split.LookupCurrency(code).Code
	if c == "" {
		return DefaultCurrency
	}
	return c
}

// TransactionID is the document identity of a version.
func TransactionID(version int) string {
	return fmt.Sprintf("v%d", version)
}

func buildSplits(d Detail) ([]split.Split, error) {
	if len(d.Splits) > 0 {
		out := make([]split.Split, len(d.Splits))
		for i, s := range d.Splits {
			if s.Method == "" {
				s.Method = d.Method
			}
			out[i] = s
		}
		return out, nil
	}

	items := make([]split.Item, len(d.Items))
	for i, it := range d.Items {
		items[i] = split.Item{Name: it.Name, Amount: it.Amount, SplitAcross: it.SplitAcross}
	}
	return split.Calculate(split.Input{
		Subtotal:     d.Subtotal,
		Tax:          d.Tax,
		Tip:          d.Tip,
		Currency:     d.Currency,
		Method:       d.Method,
		Participants: d.Participants,
		Items:        items,
	})
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the transaction invariants for the given currency.
//
// INVARIANTS:
//   - subtotal, tax, tip and every amount owed are non-negative
//   - splits are non-empty with unique participants
//   - splits sum to subtotal+tax+tip within one minor unit
//   - itemized: every splitAcross participant appears in splits
func (t Transaction) Validate(currency string) error {
	if t.ExpenseID == "" {
		return invalidField("expenseId", "required")
	}
	if t.Version < 1 {
		return invalidField("version", "must start at 1, got %d", t.Version)
	}
	if _, err := split.ParseMethod(string(t.SplitMethod)); err != nil {
		return invalidField("splitMethod", "unknown method %q", t.SplitMethod)
	}
	amounts := []struct {
		field string
		value decimal.Decimal
	}{{"subtotal", t.Subtotal}, {"tax", t.Tax}, {"tip", t.Tip}}
	for _, a := range amounts {
		if a.value.IsNegative() {
			return invalidField(a.field, "must not be negative")
		}
	}
	if len(t.Splits) == 0 {
		return split.ErrEmptyParticipants
	}

	seen := make(map[string]bool, len(t.Splits))
	for _, s := range t.Splits {
		if s.ParticipantID == "" {
			return invalidField("splits", "participant without id")
		}
		if seen[s.ParticipantID] {
			return invalidField("splits", "participant %q appears twice", s.ParticipantID)
		}
		if s.AmountOwed.IsNegative() {
			return invalidField("splits", "negative amount for %q", s.ParticipantID)
		}
		seen[s.ParticipantID] = true
	}

	cur := split.LookupCurrency(currency)
	sum, total := split.Sum(t.Splits), t.Total()
	if sum.Sub(total).Abs().GreaterThan(cur.Unit()) {
		return &split.InvalidSplitError{
			Method: t.SplitMethod,
			Reason: fmt.Sprintf("splits sum to %s, total is %s", sum, total),
		}
	}

	if t.SplitMethod == split.Itemized {
		for _, item := range t.ItemizedItems {
			for _, id := range item.SplitAcross {
				if !seen[id] {
					return invalidField("itemizedItems", "item %q names %q who has no split", item.Name, id)
				}
			}
		}
	} else if len(t.ItemizedItems) > 0 {
		return invalidField("itemizedItems", "only allowed for itemized splits")
	}
	return nil
}

func (s Summary) Validate() error {
	if s.ID == "" {
		return invalidField("id", "required")
	}
	if s.PaidBy == "" {
		return invalidField("paidBy", "required")
	}
	if s.TotalAmount.IsNegative() {
		return invalidField("totalAmount", "must not be negative")
	}
	if !s.Status.Valid() {
		return invalidField("status", "unknown status %q", s.Status)
	}
	if _, err := time.Parse(DateLayout, s.Date); err != nil {
		return invalidField("date", "want YYYY-MM-DD, got %q", s.Date)
	}
	if s.ParticipantCount < 0 {
		return invalidField("participantCount", "must not be negative")
	}
	return nil
}

// =============================================================================
// STATUS TRANSITIONS
// =============================================================================

// Transition checks a status change. It reports whether anything changes:
// moving to the current status is a no-op.
func Transition(from, to Status) (bool, error) {
	if !to.Valid() {
		return false, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if from == to {
		return false, nil
	}
	if from == StatusPending && to == StatusSettled {
		return true, nil
	}
	return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// unionParticipants appends the split participants missing from ids,
// preserving first-seen order.
func unionParticipants(ids []string, splits []split.Split) []string {
	seen := make(map[string]bool, len(ids)+len(splits))
	out := make([]string, 0, len(ids)+len(splits))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, s := range splits {
		if !seen[s.ParticipantID] {
			seen[s.ParticipantID] = true
			out = append(out, s.ParticipantID)
		}
	}
	return out
}
