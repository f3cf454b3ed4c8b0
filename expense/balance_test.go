package expense_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/expense-ledger/expense"
	"github.com/warp/expense-ledger/split"
)

func viewOf(paidBy, currency string, status expense.Status, owed map[string]string, order ...string) expense.View {
	tx := &expense.Transaction{Version: 1, SplitMethod: split.Custom}
	for _, id := range order {
		tx.Splits = append(tx.Splits, split.Split{ParticipantID: id, AmountOwed: d(owed[id]), Method: split.Custom})
	}
	return expense.View{
		Summary: expense.Summary{PaidBy: paidBy, Currency: currency, Status: status},
		Latest:  tx,
	}
}

func TestProject_PayerAndParticipant(t *testing.T) {
	// GIVEN: u paid dinner (u 10, a 10, b 10) and a paid taxi (a 6, u 4)
	// WHEN: Projecting for u
	// THEN: a owes u 10-4=6, b owes u 10

	views := []expense.View{
		viewOf("u", "USD", expense.StatusPending, map[string]string{"u": "10", "a": "10", "b": "10"}, "u", "a", "b"),
		viewOf("a", "USD", expense.StatusPending, map[string]string{"a": "6", "u": "4"}, "a", "u"),
	}

	b := expense.Project("u", views)
	require.Len(t, b, 2)
	assert.True(t, b["a"].Equal(d("6")), "got %s", b["a"])
	assert.True(t, b["b"].Equal(d("10")), "got %s", b["b"])
	assert.Equal(t, []string{"a", "b"}, b.Counterparties())

	owedToUser, userOwes := b.Totals()
	assert.True(t, owedToUser.Equal(d("16")))
	assert.True(t, userOwes.IsZero())
	assert.True(t, b.Net().Equal(d("16")))
}

func TestProject_UserOwes(t *testing.T) {
	views := []expense.View{
		viewOf("a", "USD", expense.StatusPending, map[string]string{"a": "5", "u": "5"}, "a", "u"),
		viewOf("a", "USD", expense.StatusPending, map[string]string{"a": "1", "u": "2.5"}, "a", "u"),
		viewOf("c", "USD", expense.StatusPending, map[string]string{"c": "3", "d": "3"}, "c", "d"),
	}

	b := expense.Project("u", views)
	assert.True(t, b["a"].Equal(d("-7.5")))
	_, present := b["c"]
	assert.False(t, present, "u is not on c's expense")

	owedToUser, userOwes := b.Totals()
	assert.True(t, owedToUser.IsZero())
	assert.True(t, userOwes.Equal(d("7.5")))
}

func TestProject_SkipsIncompleteViews(t *testing.T) {
	views := []expense.View{{Summary: expense.Summary{PaidBy: "u"}}}
	assert.Empty(t, expense.Project("u", views))
}

func TestOutstandingAndByCurrency(t *testing.T) {
	views := []expense.View{
		viewOf("u", "USD", expense.StatusPending, map[string]string{"a": "10"}, "a"),
		viewOf("u", "USD", expense.StatusSettled, map[string]string{"a": "99"}, "a"),
		viewOf("u", "EUR", expense.StatusPending, map[string]string{"a": "7"}, "a"),
	}

	open := expense.Outstanding(views)
	assert.Len(t, open, 2)

	groups := expense.ByCurrency(open)
	assert.Len(t, groups["USD"], 1)
	assert.Len(t, groups["EUR"], 1)

	perCurrency := expense.ProjectByCurrency("u", open)
	assert.True(t, perCurrency["USD"]["a"].Equal(d("10")))
	assert.True(t, perCurrency["EUR"]["a"].Equal(d("7")))
}

func TestView_PerPerson(t *testing.T) {
	v := viewOf("u", "USD", expense.StatusPending, map[string]string{"u": "6.67", "a": "6.67", "b": "6.66"}, "u", "a", "b")
	v.Summary.TotalAmount = d("20")
	assert.True(t, v.PerPerson().Equal(d("6.67")))

	empty := expense.View{}
	assert.True(t, empty.PerPerson().IsZero())
}
