package expense_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/warp/expense-ledger/expense"
)

func summaryAt(id string, minutes int, status expense.Status) expense.Summary {
	return expense.Summary{
		ID:        id,
		Status:    status,
		CreatedAt: baseTime.Add(time.Duration(minutes) * time.Minute),
	}
}

func TestMergeSummaries_DedupesByID(t *testing.T) {
	paid := []expense.Summary{summaryAt("a", 1, expense.StatusPending), summaryAt("b", 2, expense.StatusPending)}
	participating := []expense.Summary{summaryAt("b", 2, expense.StatusPending), summaryAt("c", 3, expense.StatusPending)}

	merged := expense.MergeSummaries(paid, participating)
	assert.Equal(t, []string{"c", "b", "a"}, ids(merged))
}

func TestMergeSummaries_OrderOfArrivalIrrelevant(t *testing.T) {
	x := []expense.Summary{summaryAt("a", 1, expense.StatusPending), summaryAt("b", 5, expense.StatusSettled)}
	y := []expense.Summary{summaryAt("b", 5, expense.StatusPending), summaryAt("c", 5, expense.StatusPending)}

	xy := expense.MergeSummaries(x, y)
	yx := expense.MergeSummaries(y, x)
	assert.Equal(t, xy, yx)

	// Merging a result with itself changes nothing.
	assert.Equal(t, xy, expense.MergeSummaries(xy, xy))
	assert.Equal(t, xy, expense.MergeSummaries(x, y, x, y))
}

func TestMergeSummaries_ParticipantIndexUnion(t *testing.T) {
	// GIVEN: Two pending copies of one expense, read before and after a revision added carol
	// WHEN: Merging them in either order
	// THEN: Both orders agree and keep the grown participant index

	before := summaryAt("a", 1, expense.StatusPending)
	before.ParticipantIDs = []string{"alice", "bob"}
	after := summaryAt("a", 1, expense.StatusPending)
	after.ParticipantIDs = []string{"alice", "bob", "carol"}

	xy := expense.MergeSummaries([]expense.Summary{before}, []expense.Summary{after})
	yx := expense.MergeSummaries([]expense.Summary{after}, []expense.Summary{before})
	assert.Equal(t, xy, yx)
	assert.Equal(t, []string{"alice", "bob", "carol"}, xy[0].ParticipantIDs)
	assert.Equal(t, xy, expense.MergeSummaries(xy, xy))

	// A settled copy read before the revision still takes the grown index.
	settled := before
	settled.Status = expense.StatusSettled
	xy = expense.MergeSummaries([]expense.Summary{settled}, []expense.Summary{after})
	yx = expense.MergeSummaries([]expense.Summary{after}, []expense.Summary{settled})
	assert.Equal(t, xy, yx)
	assert.Equal(t, expense.StatusSettled, xy[0].Status)
	assert.Equal(t, []string{"alice", "bob", "carol"}, xy[0].ParticipantIDs)
}

func TestMergeSummaries_SettledCopyWins(t *testing.T) {
	before := []expense.Summary{summaryAt("a", 1, expense.StatusPending)}
	after := []expense.Summary{summaryAt("a", 1, expense.StatusSettled)}

	assert.Equal(t, expense.StatusSettled, expense.MergeSummaries(before, after)[0].Status)
	assert.Equal(t, expense.StatusSettled, expense.MergeSummaries(after, before)[0].Status)
}

func TestMergeSummaries_TiesBrokenByID(t *testing.T) {
	merged := expense.MergeSummaries([]expense.Summary{
		summaryAt("m", 1, expense.StatusPending),
		summaryAt("b", 1, expense.StatusPending),
		summaryAt("z", 2, expense.StatusPending),
	})
	assert.Equal(t, []string{"z", "b", "m"}, ids(merged))
}

func TestMergeSummaries_Empty(t *testing.T) {
	assert.Empty(t, expense.MergeSummaries())
	assert.Empty(t, expense.MergeSummaries(nil, nil))
}
