/*
types.go - Expense ledger entities

PURPOSE:
  An expense is stored as two tiers:

    summaries/{id}                    Summary      (mutable: status only)
    summaries/{id}/transactions/v{n}  Transaction  (immutable, one per version)

  The Summary is the small queryable record lists are built from. Each
  Transaction carries the full financial detail of one version. A correction
  never edits a Transaction: it appends version n+1.

  A View joins a Summary with its highest-version Transaction at read time.
  It is never persisted.

SEE ALSO:
  - model.go: construction and validation
  - codec.go: document encoding and the decode boundary
  - writer.go / reader.go: persistence protocol
*/
package expense

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/expense-ledger/split"
)

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusPending Status = "pending"
	StatusSettled Status = "settled"
)

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusSettled
}

// =============================================================================
// RECORDS
// =============================================================================

// DateLayout is the persisted calendar date format.
const DateLayout = "2006-01-02"

// Summary is the queryable projection of an expense.
//
// TotalAmount and ParticipantCount are fixed by the transaction the expense
// was created with. ParticipantIDs is a scalar index of everyone who has
// appeared in any version's splits; it backs the membership query.
type Summary struct {
	ID               string          `json:"id"`
	GroupID          *string         `json:"groupId"`
	GroupName        *string         `json:"groupName"`
	Description      string          `json:"description"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	Currency         string          `json:"currency"`
	PaidBy           string          `json:"paidBy"`
	PayerName        *string         `json:"payerName"`
	Status           Status          `json:"status"`
	ParticipantCount int             `json:"participantCount"`
	ParticipantIDs   []string        `json:"participantIds"`
	Date             string          `json:"date"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// Item is one line of an itemized bill.
type Item struct {
	Name        string          `json:"name"`
	Amount      decimal.Decimal `json:"amount"`
	SplitAcross []string        `json:"splitAcross"`
}

// Transaction is one immutable version of an expense's financial detail.
type Transaction struct {
	ID            string          `json:"id"`
	ExpenseID     string          `json:"expenseId"`
	Version       int             `json:"version"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	Tip           decimal.Decimal `json:"tip"`
	SplitMethod   split.Method    `json:"splitMethod"`
	Splits        []split.Split   `json:"splits"`
	ItemizedItems []Item          `json:"itemizedItems,omitempty"`
	CreatedBy     string          `json:"createdBy"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Total returns subtotal + tax + tip.
func (t Transaction) Total() decimal.Decimal {
	return split.Total(t.Subtotal, t.Tax, t.Tip)
}

// SplitFor returns the participant's split, if any.
func (t Transaction) SplitFor(participantID string) (split.Split, bool) {
	for _, s := range t.Splits {
		if s.ParticipantID == participantID {
			return s, true
		}
	}
	return split.Split{}, false
}

// View is a summary joined with its latest transaction. Latest is nil for an
// incomplete expense (summary written, transaction not).
type View struct {
	Summary Summary      `json:"summary"`
	Latest  *Transaction `json:"latestTransaction"`
}

// Complete reports whether the expense has at least one transaction.
func (v View) Complete() bool {
	return v.Latest != nil
}

// PerPerson is the display amount per participant: the total divided by the
// participant count, rounded to the currency's minor unit.
func (v View) PerPerson() decimal.Decimal {
	n := v.Summary.ParticipantCount
	if v.Latest != nil {
		n = len(v.Latest.Splits)
	}
	if n <= 0 {
		return decimal.Zero
	}
	cur := split.LookupCurrency(v.Summary.Currency)
	return v.Summary.TotalAmount.DivRound(decimal.NewFromInt(int64(n)), cur.Fraction)
}

// =============================================================================
// INPUTS
// =============================================================================

// CreateInput is everything needed to record a new expense. When Splits is
// empty the split calculator runs over Participants (and Items for itemized).
type CreateInput struct {
	GroupID      *string
	GroupName    *string
	Description  string
	Currency     string
	PaidBy       string
	PayerName    *string
	Status       Status // defaults to pending
	Date         string // YYYY-MM-DD, defaults to today
	Subtotal     decimal.Decimal
	Tax          decimal.Decimal
	Tip          decimal.Decimal
	SplitMethod  split.Method
	Participants []split.Participant
	Items        []Item
	Splits       []split.Split
	CreatedBy    string
}

// ReviseInput is the financial detail of a new version.
type ReviseInput struct {
	Subtotal     decimal.Decimal
	Tax          decimal.Decimal
	Tip          decimal.Decimal
	SplitMethod  split.Method
	Participants []split.Participant
	Items        []Item
	Splits       []split.Split
	Status       Status // optional status change
	CreatedBy    string
}

func (in CreateInput) Detail() Detail {
	return Detail{
		Subtotal: in.Subtotal, Tax: in.Tax, Tip: in.Tip,
		Currency: in.Currency, Method: in.SplitMethod,
		Participants: in.Participants, Items: in.Items, Splits: in.Splits,
	}
}

func (in ReviseInput) Detail(currency string) Detail {
	return Detail{
		Subtotal: in.Subtotal, Tax: in.Tax, Tip: in.Tip,
		Currency: currency, Method: in.SplitMethod,
		Participants: in.Participants, Items: in.Items, Splits: in.Splits,
	}
}

// Detail is the financial part shared by creation and revision.
type Detail struct {
	Subtotal     decimal.Decimal
	Tax          decimal.Decimal
	Tip          decimal.Decimal
	Currency     string
	Method       split.Method
	Participants []split.Participant
	Items        []Item
	Splits       []split.Split
}
