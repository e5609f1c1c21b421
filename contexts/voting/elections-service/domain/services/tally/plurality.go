package tally

// Plurality tallies single-choice ballots: one count per declared answer,
// the highest count wins, ties are reported rather than broken.
func Plurality(answerIDs []string, choices []string) Result {
	counts := make(map[string]int, len(answerIDs))
	for _, answerID := range answerIDs {
		counts[answerID] = 0
	}
	total := 0
	for _, choice := range choices {
		if _, ok := counts[choice]; !ok {
			continue
		}
		counts[choice]++
		total++
	}

	items := sortedCounts(counts)
	winners, tied := topWithTies(items, 1)
	return Result{
		TotalBallots: total,
		Counts:       items,
		Winners:      winners,
		Tied:         tied,
	}
}

// Approval tallies multi-choice ballots: each selection counts once toward
// its answer, the top maxSelections answers win subject to boundary ties.
func Approval(answerIDs []string, selections [][]string, maxSelections int) Result {
	counts := make(map[string]int, len(answerIDs))
	for _, answerID := range answerIDs {
		counts[answerID] = 0
	}
	for _, ballot := range selections {
		for _, choice := range ballot {
			if _, ok := counts[choice]; !ok {
				continue
			}
			counts[choice]++
		}
	}

	items := sortedCounts(counts)
	winners, tied := topWithTies(items, maxSelections)
	return Result{
		TotalBallots: len(selections),
		Counts:       items,
		Winners:      winners,
		Tied:         tied,
	}
}

// SimpleRanked is the non-STV ranked method: only first preferences count,
// the top seats answers win subject to boundary ties.
func SimpleRanked(answerIDs []string, rankings [][]string, seats int) Result {
	counts := make(map[string]int, len(answerIDs))
	for _, answerID := range answerIDs {
		counts[answerID] = 0
	}
	for _, ranking := range rankings {
		if len(ranking) == 0 {
			continue
		}
		if _, ok := counts[ranking[0]]; !ok {
			continue
		}
		counts[ranking[0]]++
	}

	items := sortedCounts(counts)
	winners, tied := topWithTies(items, seats)
	return Result{
		TotalBallots: len(rankings),
		Counts:       items,
		Winners:      winners,
		Tied:         tied,
	}
}
