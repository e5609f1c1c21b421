// Package tally implements the tabulation engines. All engines are pure:
// they take declared answers and ballot payloads and return a reproducible
// result, so a tally can be recomputed from stored ballots at any time.
package tally

import "sort"

type AnswerCount struct {
	AnswerID string
	Count    int
}

// Result is the engine-independent tally shape rendered by the results
// endpoint. Rounds is populated by STV only.
type Result struct {
	TotalBallots  int
	Counts        []AnswerCount
	Winners       []string
	Tied          []string
	TieUnresolved bool

	Quota     float64
	Rounds    []Round
	Exhausted float64
}

// sortedCounts renders a count map in descending count order with the answer
// id as the stable tie key.
func sortedCounts(counts map[string]int) []AnswerCount {
	items := make([]AnswerCount, 0, len(counts))
	for answerID, count := range counts {
		items = append(items, AnswerCount{AnswerID: answerID, Count: count})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count == items[j].Count {
			return items[i].AnswerID < items[j].AnswerID
		}
		return items[i].Count > items[j].Count
	})
	return items
}

// topWithTies selects up to seats winners from descending counts. Candidates
// tied across the seat boundary are reported, not broken.
func topWithTies(items []AnswerCount, seats int) (winners []string, tied []string) {
	if seats <= 0 || len(items) == 0 {
		return nil, nil
	}
	if len(items) <= seats {
		for _, item := range items {
			winners = append(winners, item.AnswerID)
		}
		return winners, nil
	}
	boundary := items[seats-1].Count
	if items[seats].Count == boundary {
		// The boundary count is contested: everyone above it wins outright,
		// everyone at it is reported tied.
		for _, item := range items {
			switch {
			case item.Count > boundary:
				winners = append(winners, item.AnswerID)
			case item.Count == boundary:
				tied = append(tied, item.AnswerID)
			}
		}
		return winners, tied
	}
	for _, item := range items[:seats] {
		winners = append(winners, item.AnswerID)
	}
	return winners, nil
}
