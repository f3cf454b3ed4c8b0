package expense

import (
	"sort"
	"strings"
)

// =============================================================================
// MERGE - logical OR over independent query results
// =============================================================================

// MergeSummaries unions result sets by expense id.
//
// The result does not depend on the order of the sets or on repeats, so
// concurrent queries can be merged in whatever order they finish. When two
// copies of one expense disagree (one read before a settle or a revision,
// one after), the settled copy wins and the participant index is the union
// of both: settled is terminal and the index only grows.
//
// Output is ordered by createdAt descending, then id ascending.
func MergeSummaries(sets ...[]Summary) []Summary {
	byID := make(map[string]Summary)
	for _, set := range sets {
		for _, s := range set {
			if existing, seen := byID[s.ID]; seen {
				s = mergeCopies(existing, s)
			}
			byID[s.ID] = s
		}
	}

	out := make([]Summary, 0, len(byID))
	for _, s := range byID {
		out = append(out, s)
	}
	SortSummaries(out)
	return out
}

// mergeCopies combines two reads of one expense. The later state is picked
// by status, then by the longer participant index, then by the index text,
// so the pick does not depend on argument order.
func mergeCopies(a, b Summary) Summary {
	if later(b, a) {
		a, b = b, a
	}
	a.ParticipantIDs = unionIDs(a.ParticipantIDs, b.ParticipantIDs)
	return a
}

func later(x, y Summary) bool {
	if x.Status != y.Status {
		return x.Status == StatusSettled
	}
	if len(x.ParticipantIDs) != len(y.ParticipantIDs) {
		return len(x.ParticipantIDs) > len(y.ParticipantIDs)
	}
	return strings.Join(x.ParticipantIDs, "\x00") < strings.Join(y.ParticipantIDs, "\x00")
}

// unionIDs keeps the order of base and appends ids only found in other,
// sorted.
func unionIDs(base, other []string) []string {
	seen := make(map[string]bool, len(base))
	for _, id := range base {
		seen[id] = true
	}
	var extra []string
	for _, id := range other {
		if !seen[id] {
			seen[id] = true
			extra = append(extra, id)
		}
	}
	if len(extra) == 0 {
		return base
	}
	sort.Strings(extra)
	out := make([]string, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

// SortSummaries orders newest first, ties broken by id.
func SortSummaries(summaries []Summary) {
	sort.Slice(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
