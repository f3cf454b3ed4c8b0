/*
Package split turns a split method and its inputs into per-participant owed amounts.

PURPOSE:
  Pure computation, no I/O. Given subtotal, tax, tip and a method, produce an
  ordered list of Split records whose amounts reconcile with the total.

METHODS:
  equal:      total / N, leftover minor units to the first participants
  percentage: each participant supplies a percentage, must sum to 100 (+/- 0.01)
  custom:     each participant supplies an amount, must sum to total (+/- 1 minor unit)
  itemized:   each item is divided equally among its participants, then tax and
              tip are distributed proportionally to each participant's item subtotal

ROUNDING:
  Amounts are computed in minor units of the expense currency. A division
  that does not come out even hands its leftover units one at a time to the
  first participants in input order, so results are deterministic and sum
  exactly to the total. Custom amounts are returned as supplied.

EXAMPLE:
  splits, err := split.Calculate(split.Input{
      Subtotal: decimal.NewFromInt(107),
      Tax:      decimal.NewFromInt(8),
      Tip:      decimal.NewFromInt(15),
      Currency: "USD",
      Method:   split.Equal,
      Participants: []split.Participant{{ID: "a"}, {ID: "b"}},
  })
*/
package split

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TYPES
// =============================================================================

type Method string

const (
	Equal      Method = "equal"
	Percentage Method = "percentage"
	Custom     Method = "custom"
	Itemized   Method = "itemized"
)

// ParseMethod validates a method name.
func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case Equal, Percentage, Custom, Itemized:
		return m, nil
	}
	return "", &InvalidSplitError{Reason: fmt.Sprintf("unknown split method %q", s)}
}

// Split is what one participant owes for one transaction.
type Split struct {
	ParticipantID   string          `json:"participantId"`
	ParticipantName string          `json:"participantName"`
	AmountOwed      decimal.Decimal `json:"amountOwed"`
	Method          Method          `json:"splitMethod"`
}

// Item is one line of an itemized bill.
type Item struct {
	Name        string
	Amount      decimal.Decimal
	SplitAcross []string
}

// Participant is one person taking part in a split. Percentage is read
// for percentage splits, Amount for custom splits.
type Participant struct {
	ID         string
	Name       string
	Percentage decimal.Decimal
	Amount     decimal.Decimal
}

// Input holds everything the calculator needs.
type Input struct {
	Subtotal     decimal.Decimal
	Tax          decimal.Decimal
	Tip          decimal.Decimal
	Currency     string
	Method       Method
	Participants []Participant
	Items        []Item
}

// Total returns subtotal + tax + tip.
func Total(subtotal, tax, tip decimal.Decimal) decimal.Decimal {
	return subtotal.Add(tax).Add(tip)
}

// Sum adds up the owed amounts.
func Sum(splits []Split) decimal.Decimal {
	total := decimal.Zero
	for _, s := range splits {
		total = total.Add(s.AmountOwed)
	}
	return total
}

var (
	hundred           = decimal.NewFromInt(100)
	percentTolerance  = decimal.New(1, -2)
	percentWeightBase = int32(4)
)

// =============================================================================
// CALCULATOR
// =============================================================================

// Calculate computes splits for the input.
func Calculate(in Input) ([]Split, error) {
	if len(in.Participants) == 0 {
		return nil, ErrEmptyParticipants
	}
	if err := checkInput(in); err != nil {
		return nil, err
	}

	cur := LookupCurrency(in.Currency)
	total := cur.ToMinor(Total(in.Subtotal, in.Tax, in.Tip))

	var (
		shares []int64
		err    error
	)
	switch in.Method {
	case Equal:
		shares, err = cur.spread(total, len(in.Participants))
	case Percentage:
		shares, err = percentageShares(cur, total, in.Participants)
	case Custom:
		return customSplits(cur, in)
	case Itemized:
		shares, err = itemizedShares(cur, total, in)
	default:
		return nil, &InvalidSplitError{Reason: fmt.Sprintf("unknown split method %q", in.Method)}
	}
	if err != nil {
		return nil, err
	}

	splits := make([]Split, len(in.Participants))
	for i, p := range in.Participants {
		splits[i] = Split{
			ParticipantID:   p.ID,
			ParticipantName: p.Name,
			AmountOwed:      cur.FromMinor(shares[i]),
			Method:          in.Method,
		}
	}
	return splits, nil
}

func checkInput(in Input) error {
	if in.Subtotal.IsNegative() || in.Tax.IsNegative() || in.Tip.IsNegative() {
		return invalid(in.Method, "subtotal, tax and tip must not be negative")
	}
	seen := make(map[string]bool, len(in.Participants))
	for _, p := range in.Participants {
		if p.ID == "" {
			return invalid(in.Method, "participant without id")
		}
		if seen[p.ID] {
			return invalid(in.Method, "participant %q listed twice", p.ID)
		}
		seen[p.ID] = true
	}
	if in.Method != Itemized && len(in.Items) > 0 {
		return invalid(in.Method, "items are only allowed for itemized splits")
	}
	return nil
}

func percentageShares(cur Currency, total int64, participants []Participant) ([]int64, error) {
	sum := decimal.Zero
	weights := make([]int64, len(participants))
	for i, p := range participants {
		if p.Percentage.IsNegative() {
			return nil, invalid(Percentage, "negative percentage for %q", p.ID)
		}
		sum = sum.Add(p.Percentage)
		weights[i] = p.Percentage.Shift(percentWeightBase).Round(0).IntPart()
	}
	if sum.Sub(hundred).Abs().GreaterThan(percentTolerance) {
		return nil, invalid(Percentage, "percentages sum to %s, want 100", sum)
	}
	return cur.allocate(total, weights)
}

func customSplits(cur Currency, in Input) ([]Split, error) {
	sum := decimal.Zero
	splits := make([]Split, len(in.Participants))
	for i, p := range in.Participants {
		if p.Amount.IsNegative() {
			return nil, invalid(Custom, "negative amount for %q", p.ID)
		}
		if !p.Amount.Equal(p.Amount.Truncate(cur.Fraction)) {
			return nil, invalid(Custom, "amount %s for %q is finer than one %s minor unit", p.Amount, p.ID, cur.Code)
		}
		sum = sum.Add(p.Amount)
		splits[i] = Split{
			ParticipantID:   p.ID,
			ParticipantName: p.Name,
			AmountOwed:      p.Amount,
			Method:          Custom,
		}
	}
	total := Total(in.Subtotal, in.Tax, in.Tip)
	if sum.Sub(total).Abs().GreaterThan(cur.Unit()) {
		return nil, invalid(Custom, "amounts sum to %s, want %s", sum, total)
	}
	return splits, nil
}

func itemizedShares(cur Currency, total int64, in Input) ([]int64, error) {
	if len(in.Items) == 0 {
		return nil, invalid(Itemized, "no items")
	}
	index := make(map[string]int, len(in.Participants))
	for i, p := range in.Participants {
		index[p.ID] = i
	}

	subtotals := make([]int64, len(in.Participants))
	var itemsSum int64
	for _, item := range in.Items {
		if item.Amount.IsNegative() {
			return nil, invalid(Itemized, "item %q has a negative amount", item.Name)
		}
		if len(item.SplitAcross) == 0 {
			return nil, invalid(Itemized, "item %q is not split across anyone", item.Name)
		}
		seen := make(map[string]bool, len(item.SplitAcross))
		for _, id := range item.SplitAcross {
			if _, ok := index[id]; !ok {
				return nil, invalid(Itemized, "item %q names unknown participant %q", item.Name, id)
			}
			if seen[id] {
				return nil, invalid(Itemized, "item %q names %q twice", item.Name, id)
			}
			seen[id] = true
		}

		amount := cur.ToMinor(item.Amount)
		itemsSum += amount
		parts, err := cur.spread(amount, len(item.SplitAcross))
		if err != nil {
			return nil, err
		}
		for i, id := range item.SplitAcross {
			subtotals[index[id]] += parts[i]
		}
	}

	if diff := itemsSum - cur.ToMinor(in.Subtotal); diff > 1 || diff < -1 {
		return nil, invalid(Itemized, "items sum to %s, subtotal is %s", cur.FromMinor(itemsSum), in.Subtotal)
	}

	extras := total - itemsSum
	shares := make([]int64, len(subtotals))
	copy(shares, subtotals)
	if extras < 0 {
		// Items overshoot the subtotal by at most one unit: take it back
		// from the largest item share.
		shares[largest(shares)] += extras
		return shares, nil
	}

	distributed, err := cur.allocate(extras, subtotals)
	if err != nil {
		return nil, err
	}
	for i := range shares {
		shares[i] += distributed[i]
	}
	return shares, nil
}

// largest returns the index of the biggest share, first one on ties.
func largest(shares []int64) int {
	best := 0
	for i, s := range shares {
		if s > shares[best] {
			best = i
		}
	}
	return best
}
