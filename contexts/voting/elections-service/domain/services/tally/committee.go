package tally

import "sort"

// CandidateStanding is the auxiliary committee report row: how often the
// candidate was ranked first and the mean position across ballots that
// ranked them at all.
type CandidateStanding struct {
	AnswerID   string
	FirstPlace int
	MeanRank   float64
	RankedBy   int
}

// CommitteeStandings summarises nomination-committee rankings alongside the
// STV count. Positions are 1-based; candidates never ranked report a zero
// mean.
func CommitteeStandings(answerIDs []string, rankings [][]string) []CandidateStanding {
	declared := make(map[string]bool, len(answerIDs))
	for _, answerID := range answerIDs {
		declared[answerID] = true
	}

	firstPlace := make(map[string]int, len(answerIDs))
	rankSum := make(map[string]int, len(answerIDs))
	rankedBy := make(map[string]int, len(answerIDs))
	for _, ranking := range rankings {
		position := 0
		for _, candidate := range ranking {
			if !declared[candidate] {
				continue
			}
			position++
			if position == 1 {
				firstPlace[candidate]++
			}
			rankSum[candidate] += position
			rankedBy[candidate]++
		}
	}

	standings := make([]CandidateStanding, 0, len(answerIDs))
	for _, answerID := range answerIDs {
		standing := CandidateStanding{
			AnswerID:   answerID,
			FirstPlace: firstPlace[answerID],
			RankedBy:   rankedBy[answerID],
		}
		if standing.RankedBy > 0 {
			standing.MeanRank = float64(rankSum[answerID]) / float64(standing.RankedBy)
		}
		standings = append(standings, standing)
	}
	sort.Slice(standings, func(i, j int) bool {
		if standings[i].FirstPlace == standings[j].FirstPlace {
			return standings[i].AnswerID < standings[j].AnswerID
		}
		return standings[i].FirstPlace > standings[j].FirstPlace
	})
	return standings
}
