package tally

import (
	"math"
	"sort"
)

// QuotaFunc computes the election quota from valid ballots and seats.
type QuotaFunc func(votes, seats int) float64

// DroopQuota is floor(V/(S+1)) + 1.
func DroopQuota(votes, seats int) float64 {
	return float64(votes/(seats+1) + 1)
}

// HareQuota is ceil(V/S).
func HareQuota(votes, seats int) float64 {
	return math.Ceil(float64(votes) / float64(seats))
}

const (
	RoundElected          = "elected"
	RoundElectedByDefault = "elected_by_default"
	RoundEliminated       = "eliminated"
	RoundTieUnresolved    = "tie_unresolved"
)

// Round is one STV count. Totals is the standing at count time: current
// weight for continuing candidates, the retained quota for already-elected
// ones, nothing for eliminated ones. Exhausted is the cumulative weight that
// had no continuing preference when the round was counted.
type Round struct {
	Number    int
	Totals    map[string]float64
	Action    string
	Subject   string
	Transfer  float64
	Exhausted float64
}

type stvBallot struct {
	prefs  []string
	next   int
	weight float64
}

const (
	candActive = iota
	candElected
	candEliminated
)

// STV runs a single transferable vote count with Gregory fractional surplus
// transfers. Surplus factor is (total-quota)/total applied to every ballot in
// the winner's pile; eliminations transfer at current weight. Ties fall back
// to the preceding round's standings and halt the count when that fails.
func STV(answerIDs []string, rankings [][]string, seats int, quotaOf QuotaFunc) Result {
	status := make(map[string]int, len(answerIDs))
	for _, answerID := range answerIDs {
		status[answerID] = candActive
	}

	piles := make(map[string][]*stvBallot, len(answerIDs))
	retained := make(map[string]float64)
	exhausted := 0.0

	assign := func(b *stvBallot) {
		for b.next < len(b.prefs) {
			candidate := b.prefs[b.next]
			if state, ok := status[candidate]; ok && state == candActive {
				piles[candidate] = append(piles[candidate], b)
				return
			}
			b.next++
		}
		exhausted += b.weight
	}

	votes := 0
	for _, ranking := range rankings {
		prefs := make([]string, 0, len(ranking))
		for _, candidate := range ranking {
			if _, ok := status[candidate]; ok {
				prefs = append(prefs, candidate)
			}
		}
		if len(prefs) == 0 {
			continue
		}
		votes++
		assign(&stvBallot{prefs: prefs, weight: 1.0})
	}

	result := Result{TotalBallots: votes}
	if votes == 0 || seats < 1 {
		return result
	}
	result.Quota = quotaOf(votes, seats)

	var prevTotals map[string]float64
	electedCount := 0
	for round := 1; electedCount < seats; round++ {
		var active []string
		for candidate, state := range status {
			if state == candActive {
				active = append(active, candidate)
			}
		}
		if len(active) == 0 {
			break
		}
		sort.Strings(active)

		totals := make(map[string]float64, len(active)+len(retained))
		for candidate, quota := range retained {
			totals[candidate] = quota
		}
		for _, candidate := range active {
			sum := 0.0
			for _, b := range piles[candidate] {
				sum += b.weight
			}
			totals[candidate] = sum
		}

		report := Round{Number: round, Totals: totals, Exhausted: exhausted}

		// When the continuing candidates can only just fill the remaining
		// seats, they are all elected at their current standing.
		if electedCount+len(active) <= seats {
			sort.Slice(active, func(i, j int) bool {
				if totals[active[i]] == totals[active[j]] {
					return active[i] < active[j]
				}
				return totals[active[i]] > totals[active[j]]
			})
			for _, candidate := range active {
				status[candidate] = candElected
				retained[candidate] = totals[candidate]
				result.Winners = append(result.Winners, candidate)
				electedCount++
			}
			report.Action = RoundElectedByDefault
			result.Rounds = append(result.Rounds, report)
			break
		}

		maxTotal, minTotal := math.Inf(-1), math.Inf(1)
		for _, candidate := range active {
			if totals[candidate] > maxTotal {
				maxTotal = totals[candidate]
			}
			if totals[candidate] < minTotal {
				minTotal = totals[candidate]
			}
		}

		if maxTotal >= result.Quota {
			winner, ok := breakTie(active, totals, maxTotal, prevTotals, true)
			if !ok {
				report.Action = RoundTieUnresolved
				result.TieUnresolved = true
				result.Tied = atTotal(active, totals, maxTotal)
				result.Rounds = append(result.Rounds, report)
				break
			}
			status[winner] = candElected
			retained[winner] = result.Quota
			result.Winners = append(result.Winners, winner)
			electedCount++

			surplus := totals[winner] - result.Quota
			factor := surplus / totals[winner]
			for _, b := range piles[winner] {
				b.weight *= factor
				b.next++
				if b.weight > 0 {
					assign(b)
				}
			}
			piles[winner] = nil

			report.Action = RoundElected
			report.Subject = winner
			report.Transfer = surplus
			result.Rounds = append(result.Rounds, report)
		} else {
			loser, ok := breakTie(active, totals, minTotal, prevTotals, false)
			if !ok {
				report.Action = RoundTieUnresolved
				result.TieUnresolved = true
				result.Tied = atTotal(active, totals, minTotal)
				result.Rounds = append(result.Rounds, report)
				break
			}
			status[loser] = candEliminated
			transferred := totals[loser]
			for _, b := range piles[loser] {
				b.next++
				assign(b)
			}
			piles[loser] = nil

			report.Action = RoundEliminated
			report.Subject = loser
			report.Transfer = transferred
			result.Rounds = append(result.Rounds, report)
		}

		prevTotals = totals
	}

	result.Exhausted = exhausted
	sort.Strings(result.Winners)
	return result
}

func atTotal(candidates []string, totals map[string]float64, target float64) []string {
	var tied []string
	for _, candidate := range candidates {
		if totals[candidate] == target {
			tied = append(tied, candidate)
		}
	}
	sort.Strings(tied)
	return tied
}

// breakTie picks the candidate at the target total, falling back to the
// preceding round's standings when several share it. highest selects the
// better prior standing for elections, the worse one for eliminations.
func breakTie(candidates []string, totals map[string]float64, target float64, prev map[string]float64, highest bool) (string, bool) {
	tied := atTotal(candidates, totals, target)
	if len(tied) == 1 {
		return tied[0], true
	}
	if prev == nil {
		return "", false
	}
	best := tied[0]
	unique := true
	for _, candidate := range tied[1:] {
		switch {
		case prev[candidate] == prev[best]:
			unique = false
		case highest && prev[candidate] > prev[best]:
			best, unique = candidate, true
		case !highest && prev[candidate] < prev[best]:
			best, unique = candidate, true
		}
	}
	if !unique {
		return "", false
	}
	return best, true
}
