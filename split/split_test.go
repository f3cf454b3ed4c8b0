package split_test

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/expense-ledger/split"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func people(ids ...string) []split.Participant {
	out := make([]split.Participant, len(ids))
	for i, id := range ids {
		out[i] = split.Participant{ID: id, Name: "name-" + id}
	}
	return out
}

func owed(splits []split.Split) []string {
	out := make([]string, len(splits))
	for i, s := range splits {
		out[i] = s.AmountOwed.StringFixed(2)
	}
	return out
}

// =============================================================================
// EQUAL
// =============================================================================

func TestEqual_FiveWays(t *testing.T) {
	// GIVEN: subtotal=107, tax=8, tip=15 (total 130) across 5 people
	// WHEN: split equally
	// THEN: each owes 26.00 and the sum is 130.00

	splits, err := split.Calculate(split.Input{
		Subtotal:     d("107"),
		Tax:          d("8"),
		Tip:          d("15"),
		Currency:     "USD",
		Method:       split.Equal,
		Participants: people("a", "b", "c", "d", "e"),
	})
	require.NoError(t, err)
	require.Len(t, splits, 5)

	for _, s := range splits {
		assert.True(t, s.AmountOwed.Equal(d("26")), "got %s", s.AmountOwed)
		assert.Equal(t, split.Equal, s.Method)
	}
	assert.True(t, split.Sum(splits).Equal(d("130")))
}

func TestEqual_RemainderGoesToFirstParticipants(t *testing.T) {
	splits, err := split.Calculate(split.Input{
		Subtotal:     d("20"),
		Method:       split.Equal,
		Participants: people("a", "b", "c"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"6.67", "6.67", "6.66"}, owed(splits))
}

func TestEqual_KeepsParticipantOrderAndNames(t *testing.T) {
	splits, err := split.Calculate(split.Input{
		Subtotal:     d("9"),
		Method:       split.Equal,
		Participants: people("z", "a", "m"),
	})
	require.NoError(t, err)
	assert.Equal(t, "z", splits[0].ParticipantID)
	assert.Equal(t, "name-z", splits[0].ParticipantName)
	assert.Equal(t, "a", splits[1].ParticipantID)
	assert.Equal(t, "m", splits[2].ParticipantID)
}

func TestEqual_ZeroCurrencyFraction(t *testing.T) {
	// JPY has no minor unit, so 100 / 3 is 34 / 33 / 33.
	splits, err := split.Calculate(split.Input{
		Subtotal:     d("100"),
		Currency:     "JPY",
		Method:       split.Equal,
		Participants: people("a", "b", "c"),
	})
	require.NoError(t, err)
	assert.True(t, splits[0].AmountOwed.Equal(d("34")))
	assert.True(t, splits[1].AmountOwed.Equal(d("33")))
	assert.True(t, splits[2].AmountOwed.Equal(d("33")))
}

func TestEqual_SumsExactlyForManyShapes(t *testing.T) {
	totals := []string{"0", "0.01", "0.05", "1", "10", "99.99", "100", "1234.57"}
	for _, total := range totals {
		for n := 1; n <= 9; n++ {
			t.Run(fmt.Sprintf("%s/%d", total, n), func(t *testing.T) {
				ids := make([]string, n)
				for i := range ids {
					ids[i] = fmt.Sprintf("p%d", i)
				}
				splits, err := split.Calculate(split.Input{
					Subtotal:     d(total),
					Method:       split.Equal,
					Participants: people(ids...),
				})
				require.NoError(t, err)
				assert.True(t, split.Sum(splits).Equal(d(total)), "sum %s", split.Sum(splits))

				// Shares never differ by more than one cent.
				hi, lo := splits[0].AmountOwed, splits[0].AmountOwed
				for _, s := range splits {
					hi = decimal.Max(hi, s.AmountOwed)
					lo = decimal.Min(lo, s.AmountOwed)
				}
				assert.True(t, hi.Sub(lo).LessThanOrEqual(d("0.01")))
			})
		}
	}
}

// =============================================================================
// PERCENTAGE
// =============================================================================

func TestPercentage_Proportional(t *testing.T) {
	splits, err := split.Calculate(split.Input{
		Subtotal: d("80"),
		Tax:      d("10"),
		Tip:      d("10"),
		Method:   split.Percentage,
		Participants: []split.Participant{
			{ID: "a", Percentage: d("50")},
			{ID: "b", Percentage: d("30")},
			{ID: "c", Percentage: d("20")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"50.00", "30.00", "20.00"}, owed(splits))
}

func TestPercentage_ThirdsReconcile(t *testing.T) {
	splits, err := split.Calculate(split.Input{
		Subtotal: d("100"),
		Method:   split.Percentage,
		Participants: []split.Participant{
			{ID: "a", Percentage: d("33.33")},
			{ID: "b", Percentage: d("33.33")},
			{ID: "c", Percentage: d("33.34")},
		},
	})
	require.NoError(t, err)
	assert.True(t, split.Sum(splits).Equal(d("100")))
}

func TestPercentage_ZeroShareGetsNothing(t *testing.T) {
	splits, err := split.Calculate(split.Input{
		Subtotal: d("10"),
		Method:   split.Percentage,
		Participants: []split.Participant{
			{ID: "a", Percentage: d("0")},
			{ID: "b", Percentage: d("66.67")},
			{ID: "c", Percentage: d("33.33")},
		},
	})
	require.NoError(t, err)
	assert.True(t, splits[0].AmountOwed.IsZero())
	assert.True(t, split.Sum(splits).Equal(d("10")))
}

func TestPercentage_MustSumToHundred(t *testing.T) {
	_, err := split.Calculate(split.Input{
		Subtotal: d("100"),
		Method:   split.Percentage,
		Participants: []split.Participant{
			{ID: "a", Percentage: d("50")},
			{ID: "b", Percentage: d("49")},
		},
	})
	assert.ErrorIs(t, err, split.ErrInvalidSplit)

	var splitErr *split.InvalidSplitError
	require.ErrorAs(t, err, &splitErr)
	assert.Equal(t, split.Percentage, splitErr.Method)
}

func TestPercentage_ToleratesOneHundredth(t *testing.T) {
	_, err := split.Calculate(split.Input{
		Subtotal: d("100"),
		Method:   split.Percentage,
		Participants: []split.Participant{
			{ID: "a", Percentage: d("33.33")},
			{ID: "b", Percentage: d("33.33")},
			{ID: "c", Percentage: d("33.33")},
		},
	})
	assert.NoError(t, err)
}

// =============================================================================
// CUSTOM
// =============================================================================

func TestCustom_ReturnsAmountsAsGiven(t *testing.T) {
	splits, err := split.Calculate(split.Input{
		Subtotal: d("50"),
		Method:   split.Custom,
		Participants: []split.Participant{
			{ID: "a", Amount: d("12.34")},
			{ID: "b", Amount: d("37.66")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"12.34", "37.66"}, owed(splits))
	assert.Equal(t, split.Custom, splits[1].Method)
}

func TestCustom_Tolerance(t *testing.T) {
	// GIVEN: custom amounts off by one and two cents
	// THEN: one cent is within tolerance, two cents is rejected
	tests := []struct {
		name    string
		second  string
		wantErr bool
	}{
		{"exact", "50.00", false},
		{"one cent over", "50.01", false},
		{"one cent under", "49.99", false},
		{"two cents over", "50.02", true},
		{"two cents under", "49.98", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := split.Calculate(split.Input{
				Subtotal: d("100"),
				Method:   split.Custom,
				Participants: []split.Participant{
					{ID: "a", Amount: d("50")},
					{ID: "b", Amount: d(tt.second)},
				},
			})
			if tt.wantErr {
				assert.ErrorIs(t, err, split.ErrInvalidSplit)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCustom_RejectsSubUnitAmounts(t *testing.T) {
	// GIVEN: custom amounts that sum to the total but carry fractions of a cent (or a yen)
	// THEN: they are rejected instead of being stored unrounded
	tests := []struct {
		name     string
		currency string
		a, b     string
	}{
		{"half cents", "USD", "10.005", "9.995"},
		{"yen decimals", "JPY", "10.5", "9.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := split.Calculate(split.Input{
				Subtotal: d("20"),
				Currency: tt.currency,
				Method:   split.Custom,
				Participants: []split.Participant{
					{ID: "a", Amount: d(tt.a)},
					{ID: "b", Amount: d(tt.b)},
				},
			})
			assert.ErrorIs(t, err, split.ErrInvalidSplit)
		})
	}

	// Trailing zeros are still whole cents.
	_, err := split.Calculate(split.Input{
		Subtotal: d("20"),
		Method:   split.Custom,
		Participants: []split.Participant{
			{ID: "a", Amount: d("10.500")},
			{ID: "b", Amount: d("9.50")},
		},
	})
	assert.NoError(t, err)
}

func TestCustom_RejectsNegativeAmount(t *testing.T) {
	_, err := split.Calculate(split.Input{
		Subtotal: d("10"),
		Method:   split.Custom,
		Participants: []split.Participant{
			{ID: "a", Amount: d("20")},
			{ID: "b", Amount: d("-10")},
		},
	})
	assert.ErrorIs(t, err, split.ErrInvalidSplit)
}

// =============================================================================
// ITEMIZED
// =============================================================================

func TestItemized_PizzaAndDrinks(t *testing.T) {
	// GIVEN: Pizza 40 across A,B and Drinks 20 across A,B,C, tax 6, tip 10
	// WHEN: split itemized
	// THEN: item subtotals are 26.67 / 26.67 / 6.66, the 16 of extras is
	//       shared proportionally and the total reconciles to 76

	splits, err := split.Calculate(split.Input{
		Subtotal:     d("60"),
		Tax:          d("6"),
		Tip:          d("10"),
		Currency:     "USD",
		Method:       split.Itemized,
		Participants: people("A", "B", "C"),
		Items: []split.Item{
			{Name: "Pizza", Amount: d("40"), SplitAcross: []string{"A", "B"}},
			{Name: "Drinks", Amount: d("20"), SplitAcross: []string{"A", "B", "C"}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"33.79", "33.78", "8.43"}, owed(splits))
	assert.True(t, split.Sum(splits).Equal(d("76")))
}

func TestItemized_ParticipantWithoutItemsOwesNothing(t *testing.T) {
	splits, err := split.Calculate(split.Input{
		Subtotal:     d("30"),
		Tax:          d("3.33"),
		Method:       split.Itemized,
		Participants: people("idle", "a", "b"),
		Items: []split.Item{
			{Name: "Salad", Amount: d("10"), SplitAcross: []string{"a"}},
			{Name: "Steak", Amount: d("20"), SplitAcross: []string{"b"}},
		},
	})
	require.NoError(t, err)
	assert.True(t, splits[0].AmountOwed.IsZero(), "got %s", splits[0].AmountOwed)
	assert.True(t, split.Sum(splits).Equal(d("33.33")))
}

func TestItemized_RejectsUnknownParticipant(t *testing.T) {
	_, err := split.Calculate(split.Input{
		Subtotal:     d("10"),
		Method:       split.Itemized,
		Participants: people("a"),
		Items: []split.Item{
			{Name: "Fries", Amount: d("10"), SplitAcross: []string{"ghost"}},
		},
	})
	assert.ErrorIs(t, err, split.ErrInvalidSplit)
}

func TestItemized_RejectsEmptySplitAcross(t *testing.T) {
	_, err := split.Calculate(split.Input{
		Subtotal:     d("10"),
		Method:       split.Itemized,
		Participants: people("a"),
		Items:        []split.Item{{Name: "Fries", Amount: d("10")}},
	})
	assert.ErrorIs(t, err, split.ErrInvalidSplit)
}

func TestItemized_ItemsMustMatchSubtotal(t *testing.T) {
	_, err := split.Calculate(split.Input{
		Subtotal:     d("50"),
		Method:       split.Itemized,
		Participants: people("a", "b"),
		Items: []split.Item{
			{Name: "Fries", Amount: d("10"), SplitAcross: []string{"a", "b"}},
		},
	})
	assert.ErrorIs(t, err, split.ErrInvalidSplit)
}

func TestItemized_OneCentOvershootIsAbsorbed(t *testing.T) {
	splits, err := split.Calculate(split.Input{
		Subtotal:     d("10.00"),
		Method:       split.Itemized,
		Participants: people("a", "b"),
		Items: []split.Item{
			{Name: "Soup", Amount: d("6.01"), SplitAcross: []string{"a"}},
			{Name: "Bread", Amount: d("4.00"), SplitAcross: []string{"b"}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"6.00", "4.00"}, owed(splits))
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestCalculate_RejectsEmptyParticipants(t *testing.T) {
	_, err := split.Calculate(split.Input{Subtotal: d("10"), Method: split.Equal})
	assert.ErrorIs(t, err, split.ErrEmptyParticipants)
}

func TestCalculate_RejectsBadInputs(t *testing.T) {
	tests := []struct {
		name string
		in   split.Input
	}{
		{"negative tax", split.Input{Subtotal: d("10"), Tax: d("-1"), Method: split.Equal, Participants: people("a")}},
		{"duplicate participant", split.Input{Subtotal: d("10"), Method: split.Equal, Participants: people("a", "a")}},
		{"blank participant", split.Input{Subtotal: d("10"), Method: split.Equal, Participants: people("")}},
		{"unknown method", split.Input{Subtotal: d("10"), Method: "random", Participants: people("a")}},
		{"items on equal split", split.Input{
			Subtotal: d("10"), Method: split.Equal, Participants: people("a"),
			Items: []split.Item{{Name: "x", Amount: d("10"), SplitAcross: []string{"a"}}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := split.Calculate(tt.in)
			assert.ErrorIs(t, err, split.ErrInvalidSplit)
		})
	}
}

func TestParseMethod(t *testing.T) {
	m, err := split.ParseMethod("itemized")
	require.NoError(t, err)
	assert.Equal(t, split.Itemized, m)

	_, err = split.ParseMethod("shares")
	assert.ErrorIs(t, err, split.ErrInvalidSplit)
}

func TestCurrency_Format(t *testing.T) {
	usd := split.LookupCurrency("usd")
	assert.Equal(t, "USD", usd.Code)
	assert.Equal(t, int32(2), usd.Fraction)
	assert.Equal(t, "$12.50", usd.Format(d("12.5")))

	unknown := split.LookupCurrency("XYZ")
	assert.Equal(t, int32(split.DefaultFraction), unknown.Fraction)
	assert.Equal(t, "12.50 XYZ", unknown.Format(d("12.5")))
}
