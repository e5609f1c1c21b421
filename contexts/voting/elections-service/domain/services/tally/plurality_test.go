package tally

import "testing"

func TestPlurality(t *testing.T) {
	result := Plurality([]string{"yes", "no", "abstain"}, []string{
		"yes", "yes", "no", "yes", "bogus",
	})
	if result.TotalBallots != 4 {
		t.Fatalf("undeclared choices must not count, got %d ballots", result.TotalBallots)
	}
	if len(result.Winners) != 1 || result.Winners[0] != "yes" {
		t.Fatalf("winners = %v, want [yes]", result.Winners)
	}
	if result.Counts[0].AnswerID != "yes" || result.Counts[0].Count != 3 {
		t.Fatalf("counts not sorted descending: %+v", result.Counts)
	}
	last := result.Counts[len(result.Counts)-1]
	if last.AnswerID != "abstain" || last.Count != 0 {
		t.Fatalf("zero-vote answers must still appear: %+v", result.Counts)
	}
}

func TestPluralityReportsDeadHeat(t *testing.T) {
	result := Plurality([]string{"yes", "no"}, []string{"yes", "no"})
	if len(result.Winners) != 0 {
		t.Fatalf("a dead heat has no winner, got %v", result.Winners)
	}
	if len(result.Tied) != 2 {
		t.Fatalf("tied = %v, want both answers", result.Tied)
	}
}

func TestApprovalBoundaryTie(t *testing.T) {
	// a wins outright; b and c contest the second seat at two votes each.
	result := Approval([]string{"a", "b", "c", "d"}, [][]string{
		{"a", "b"},
		{"a", "c"},
		{"a", "b"},
		{"c", "d"},
	}, 2)
	if result.TotalBallots != 4 {
		t.Fatalf("ballots = %d, want 4", result.TotalBallots)
	}
	if len(result.Winners) != 1 || result.Winners[0] != "a" {
		t.Fatalf("winners = %v, want [a]", result.Winners)
	}
	if len(result.Tied) != 2 || result.Tied[0] != "b" || result.Tied[1] != "c" {
		t.Fatalf("tied = %v, want [b c]", result.Tied)
	}
}

func TestSimpleRankedCountsFirstPreferencesOnly(t *testing.T) {
	result := SimpleRanked([]string{"a", "b", "c"}, [][]string{
		{"a", "b", "c"},
		{"a", "c"},
		{"b", "a"},
		{"c"},
	}, 1)
	if len(result.Winners) != 1 || result.Winners[0] != "a" {
		t.Fatalf("winners = %v, want [a]", result.Winners)
	}
	// Later preferences never move the count in the simple method.
	if result.Counts[0].Count != 2 {
		t.Fatalf("first-preference count = %d, want 2", result.Counts[0].Count)
	}
}

func TestCommitteeStandings(t *testing.T) {
	standings := CommitteeStandings([]string{"a", "b", "c"}, [][]string{
		{"a", "b", "c"},
		{"a", "c", "b"},
		{"b", "a"},
	})
	if standings[0].AnswerID != "a" || standings[0].FirstPlace != 2 {
		t.Fatalf("a must lead on first places: %+v", standings[0])
	}
	var c CandidateStanding
	for _, standing := range standings {
		if standing.AnswerID == "c" {
			c = standing
		}
	}
	if c.RankedBy != 2 {
		t.Fatalf("c ranked by %d ballots, want 2", c.RankedBy)
	}
	if want := 2.5; c.MeanRank != want {
		t.Fatalf("c mean rank = %v, want %v", c.MeanRank, want)
	}
}

func TestCommitteeStandingsSkipsUndeclaredNames(t *testing.T) {
	standings := CommitteeStandings([]string{"a", "b"}, [][]string{
		{"zz", "a", "b"},
	})
	// The undeclared first entry is dropped, so a holds position one.
	if standings[0].AnswerID != "a" || standings[0].FirstPlace != 1 {
		t.Fatalf("positions must compress over undeclared names: %+v", standings)
	}
	if standings[0].MeanRank != 1 {
		t.Fatalf("a mean rank = %v, want 1", standings[0].MeanRank)
	}
}
