package split

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultFraction is used for currencies go-money does not know.
const DefaultFraction = 2

// Currency carries the number of minor-unit digits of a currency.
type Currency struct {
	Code     string
	Fraction int32
}

// LookupCurrency resolves a currency code. Unknown or empty codes fall back
// to two fraction digits.
func LookupCurrency(code string) Currency {
	code = strings.ToUpper(strings.TrimSpace(code))
	if c := money.GetCurrency(code); c != nil {
		return Currency{Code: c.Code, Fraction: int32(c.Fraction)}
	}
	return Currency{Code: code, Fraction: DefaultFraction}
}

// Unit is one minor unit (0.01 for USD, 1 for JPY).
func (c Currency) Unit() decimal.Decimal {
	return decimal.New(1, -c.Fraction)
}

// ToMinor converts a major-unit amount into minor units, rounding half away from zero.
func (c Currency) ToMinor(d decimal.Decimal) int64 {
	return d.Shift(c.Fraction).Round(0).IntPart()
}

// FromMinor converts minor units back into a major-unit amount.
func (c Currency) FromMinor(v int64) decimal.Decimal {
	return decimal.New(v, -c.Fraction)
}

// Format renders an amount with the currency's symbol and separators.
func (c Currency) Format(d decimal.Decimal) string {
	if money.GetCurrency(c.Code) == nil {
		return d.StringFixed(c.Fraction) + " " + c.Code
	}
	return money.New(c.ToMinor(d), c.Code).Display()
}

// spread divides total minor units into n shares. Leftover units go one each
// to the first shares.
func (c Currency) spread(total int64, n int) ([]int64, error) {
	parts, err := money.New(total, c.Code).Split(n)
	if err != nil {
		return nil, err
	}
	return amounts(parts), nil
}

// allocate divides total minor units proportionally to weights. Leftover
// units go one each to the first shares with a non-zero weight. All-zero
// weights divide equally.
func (c Currency) allocate(total int64, weights []int64) ([]int64, error) {
	var (
		ratios []int
		owners []int
	)
	for i, w := range weights {
		if w > 0 {
			ratios = append(ratios, int(w))
			owners = append(owners, i)
		}
	}
	if len(ratios) == 0 {
		return c.spread(total, len(weights))
	}
	parts, err := money.New(total, c.Code).Allocate(ratios...)
	if err != nil {
		return nil, err
	}
	out := make([]int64, len(weights))
	for j, p := range parts {
		out[owners[j]] = p.Amount()
	}
	return out, nil
}

func amounts(parts []*money.Money) []int64 {
	out := make([]int64, len(parts))
	for i, p := range parts {
		out[i] = p.Amount()
	}
	return out
}
