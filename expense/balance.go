package expense

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// BALANCE PROJECTION
// =============================================================================

// Balances maps a counterparty to the net amount between them and the user:
// positive means the counterparty owes the user, negative means the user
// owes the counterparty.
type Balances map[string]decimal.Decimal

// Project folds the latest version of each view into per-counterparty
// balances for userID. Views without a transaction are skipped.
//
//   - user paid:        every other participant's share is owed to the user
//   - user participated: the user's own share is owed to the payer
func Project(userID string, views []View) Balances {
	b := make(Balances)
	for _, v := range views {
		if v.Latest == nil {
			continue
		}
		payer := v.Summary.PaidBy
		if payer == userID {
			for _, s := range v.Latest.Splits {
				if s.ParticipantID == userID {
					continue
				}
				b[s.ParticipantID] = b[s.ParticipantID].Add(s.AmountOwed)
			}
			continue
		}
		if own, ok := v.Latest.SplitFor(userID); ok {
			b[payer] = b[payer].Sub(own.AmountOwed)
		}
	}
	return b
}

// Totals splits the balances into what others owe the user and what the
// user owes others (both non-negative).
func (b Balances) Totals() (owedToUser, userOwes decimal.Decimal) {
	owedToUser, userOwes = decimal.Zero, decimal.Zero
	for _, amount := range b {
		if amount.IsPositive() {
			owedToUser = owedToUser.Add(amount)
		} else {
			userOwes = userOwes.Sub(amount)
		}
	}
	return owedToUser, userOwes
}

// Net is the sum of all balances.
func (b Balances) Net() decimal.Decimal {
	net := decimal.Zero
	for _, amount := range b {
		net = net.Add(amount)
	}
	return net
}

// Counterparties returns the keys in sorted order.
func (b Balances) Counterparties() []string {
	out := make([]string, 0, len(b))
	for id := range b {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Outstanding keeps the views that are still pending.
func Outstanding(views []View) []View {
	var out []View
	for _, v := range views {
		if v.Summary.Status == StatusPending {
			out = append(out, v)
		}
	}
	return out
}

// ByCurrency groups views by currency. Amounts in different currencies are
// never added together.
func ByCurrency(views []View) map[string][]View {
	out := make(map[string][]View)
	for _, v := range views {
		out[v.Summary.Currency] = append(out[v.Summary.Currency], v)
	}
	return out
}

// ProjectByCurrency runs Project once per currency.
func ProjectByCurrency(userID string, views []View) map[string]Balances {
	out := make(map[string]Balances)
	for currency, group := range ByCurrency(views) {
		out[currency] = Project(userID, group)
	}
	return out
}
