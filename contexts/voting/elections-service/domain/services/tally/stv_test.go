package tally

import (
	"math"
	"testing"
)

func TestQuotas(t *testing.T) {
	if got := DroopQuota(100, 3); got != 26 {
		t.Fatalf("DroopQuota(100, 3) = %v, want 26", got)
	}
	if got := DroopQuota(9, 2); got != 4 {
		t.Fatalf("DroopQuota(9, 2) = %v, want 4", got)
	}
	if got := HareQuota(100, 3); got != 34 {
		t.Fatalf("HareQuota(100, 3) = %v, want 34", got)
	}
	if got := HareQuota(9, 3); got != 3 {
		t.Fatalf("HareQuota(9, 3) = %v, want 3", got)
	}
}

// checkConservation verifies that every round accounts for the full ballot
// weight: continuing totals plus retained quotas plus exhausted weight.
func checkConservation(t *testing.T, result Result) {
	t.Helper()
	for _, round := range result.Rounds {
		sum := round.Exhausted
		for _, total := range round.Totals {
			sum += total
		}
		if math.Abs(sum-float64(result.TotalBallots)) > 1e-9 {
			t.Fatalf("round %d loses weight: sum %v, ballots %d", round.Number, sum, result.TotalBallots)
		}
	}
}

func TestSTVElectsAcrossEliminations(t *testing.T) {
	answerIDs := []string{"A", "B", "C", "D"}
	rankings := [][]string{
		{"A"}, {"A"}, {"A"}, {"A"},
		{"B"}, {"B"},
		{"C", "B"}, {"C", "B"},
		{"D", "B"},
	}

	result := STV(answerIDs, rankings, 2, DroopQuota)
	if result.TotalBallots != 9 || result.Quota != 4 {
		t.Fatalf("ballots=%d quota=%v, want 9 and 4", result.TotalBallots, result.Quota)
	}
	if result.TieUnresolved {
		t.Fatalf("count must complete: %+v", result)
	}
	if len(result.Winners) != 2 || result.Winners[0] != "A" || result.Winners[1] != "B" {
		t.Fatalf("winners = %v, want [A B]", result.Winners)
	}
	checkConservation(t, result)

	first := result.Rounds[0]
	if first.Action != RoundElected || first.Subject != "A" || first.Transfer != 0 {
		t.Fatalf("round 1 must elect A with zero surplus: %+v", first)
	}
	second := result.Rounds[1]
	if second.Action != RoundEliminated || second.Subject != "D" {
		t.Fatalf("round 2 must eliminate D: %+v", second)
	}
	if second.Totals["A"] != 4 {
		t.Fatalf("elected candidate must stay at quota in later rounds, got %v", second.Totals["A"])
	}
}

func TestSTVGregorySurplusTransfer(t *testing.T) {
	// A polls 6 first preferences against a quota of 4; the surplus of 2
	// moves at factor 2/6 to each ballot's next preference.
	answerIDs := []string{"A", "B", "C"}
	rankings := [][]string{
		{"A", "B"}, {"A", "B"}, {"A", "B"}, {"A", "B"}, {"A", "C"}, {"A", "C"},
		{"B"},
		{"C"}, {"C"},
	}

	result := STV(answerIDs, rankings, 2, DroopQuota)
	if result.Quota != 4 {
		t.Fatalf("quota = %v, want 4", result.Quota)
	}
	first := result.Rounds[0]
	if first.Action != RoundElected || first.Subject != "A" || first.Transfer != 2 {
		t.Fatalf("round 1 must elect A with surplus 2: %+v", first)
	}

	second := result.Rounds[1]
	wantB := 1.0 + 4.0*(2.0/6.0)
	wantC := 2.0 + 2.0*(2.0/6.0)
	if math.Abs(second.Totals["B"]-wantB) > 1e-9 || math.Abs(second.Totals["C"]-wantC) > 1e-9 {
		t.Fatalf("surplus transfer wrong: B=%v C=%v, want %v and %v", second.Totals["B"], second.Totals["C"], wantB, wantC)
	}
	checkConservation(t, result)
}

func TestSTVTieFallsBackToPriorRound(t *testing.T) {
	// Round 2 ties A, B, C at 3. The preceding round had B lowest, so B is
	// the one eliminated.
	answerIDs := []string{"A", "B", "C", "D"}
	rankings := [][]string{
		{"A"}, {"A"}, {"A"},
		{"B", "A"}, {"B", "A"},
		{"C"}, {"C"}, {"C"},
		{"D", "B"},
	}

	result := STV(answerIDs, rankings, 1, DroopQuota)
	if result.TieUnresolved {
		t.Fatalf("prior-round standings must resolve the tie: %+v", result)
	}
	second := result.Rounds[1]
	if second.Action != RoundEliminated || second.Subject != "B" {
		t.Fatalf("round 2 must eliminate B via prior standings: %+v", second)
	}
	if len(result.Winners) != 1 || result.Winners[0] != "A" {
		t.Fatalf("winners = %v, want [A]", result.Winners)
	}
	checkConservation(t, result)
}

func TestSTVUnresolvableTieHaltsTheCount(t *testing.T) {
	answerIDs := []string{"A", "B"}
	rankings := [][]string{{"A"}, {"B"}}

	result := STV(answerIDs, rankings, 1, DroopQuota)
	if !result.TieUnresolved {
		t.Fatalf("first-round dead heat must halt: %+v", result)
	}
	if len(result.Tied) != 2 || result.Tied[0] != "A" || result.Tied[1] != "B" {
		t.Fatalf("tied = %v, want [A B]", result.Tied)
	}
	if len(result.Winners) != 0 {
		t.Fatalf("no winners may be reported on a halt, got %v", result.Winners)
	}
	last := result.Rounds[len(result.Rounds)-1]
	if last.Action != RoundTieUnresolved {
		t.Fatalf("final round action = %q", last.Action)
	}
}

func TestSTVElectsRemainingByDefault(t *testing.T) {
	answerIDs := []string{"A", "B"}
	rankings := [][]string{{"A"}, {"A"}, {"B"}}

	result := STV(answerIDs, rankings, 2, DroopQuota)
	if len(result.Winners) != 2 {
		t.Fatalf("both continuing candidates fill the seats: %v", result.Winners)
	}
	if result.Rounds[0].Action != RoundElectedByDefault {
		t.Fatalf("round action = %q, want %q", result.Rounds[0].Action, RoundElectedByDefault)
	}
}

func TestSTVIgnoresUndeclaredCandidatesAndEmptyBallots(t *testing.T) {
	answerIDs := []string{"A", "B"}
	rankings := [][]string{
		{"A"},
		{"Z"},
		{},
		{"Z", "B"},
	}

	result := STV(answerIDs, rankings, 1, DroopQuota)
	if result.TotalBallots != 2 {
		t.Fatalf("only ballots with a declared preference count, got %d", result.TotalBallots)
	}
}
