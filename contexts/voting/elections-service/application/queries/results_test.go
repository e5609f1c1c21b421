package queries

import (
	"context"
	"errors"
	"testing"
	"time"

	"kosning/contexts/voting/elections-service/adapters/memory"
	"kosning/contexts/voting/elections-service/domain/entities"
	domainerrors "kosning/contexts/voting/elections-service/domain/errors"
	"kosning/contexts/voting/elections-service/domain/services"
	"kosning/internal/shared/roles"
)

func voter(uid string) services.Caller {
	return services.Caller{MemberUID: uid, IsMember: true, Roles: []roles.Role{roles.RoleMember}}
}

func managerCaller() services.Caller {
	return services.Caller{MemberUID: "manager-0001", IsMember: true, Roles: []roles.Role{roles.RoleElectionManager}}
}

func seedWithBallots(store *memory.Store, mutate func(*entities.Election), ballots ...entities.Ballot) {
	election := entities.Election{
		ID:         "election-1",
		Title:      "Lagabreytingar",
		Answers:    []entities.Answer{{ID: "yes"}, {ID: "no"}, {ID: "abstain"}},
		VotingType: entities.VotingTypeSingle,
	}
	election.ApplyDefaults()
	election.Status = entities.StatusClosed
	if mutate != nil {
		mutate(&election)
	}
	store.SaveElection(context.Background(), election)
	for _, ballot := range ballots {
		store.InsertBallot(context.Background(), ballot)
	}
}

func TestResultsVisibility(t *testing.T) {
	store := memory.NewStore()
	q := ResultsQueries{Elections: store, Ballots: store}

	seedWithBallots(store, func(e *entities.Election) { e.Status = entities.StatusPublished })
	if _, err := q.Results(context.Background(), voter("member-0001"), "election-1"); !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("open election results are manager-only, got %v", err)
	}
	if _, err := q.Results(context.Background(), managerCaller(), "election-1"); err != nil {
		t.Fatalf("managers read live results: %v", err)
	}

	seedWithBallots(store, func(e *entities.Election) { e.Hidden = true })
	if _, err := q.Results(context.Background(), voter("member-0001"), "election-1"); !errors.Is(err, domainerrors.ErrElectionNotFound) {
		t.Fatalf("hidden election must read as missing, got %v", err)
	}
}

func TestResultsPluralityTally(t *testing.T) {
	store := memory.NewStore()
	q := ResultsQueries{Elections: store, Ballots: store}
	seedWithBallots(store, nil,
		entities.Ballot{ID: "b1", ElectionID: "election-1", MemberUID: "m1", AnswerID: "yes"},
		entities.Ballot{ID: "b2", ElectionID: "election-1", MemberUID: "m2", AnswerID: "yes"},
		entities.Ballot{ID: "b3", ElectionID: "election-1", MemberUID: "m3", AnswerID: "no"},
	)

	results, err := q.Results(context.Background(), voter("member-0001"), "election-1")
	if err != nil {
		t.Fatalf("results failed: %v", err)
	}
	if results.Tally.TotalBallots != 3 {
		t.Fatalf("ballots = %d, want 3", results.Tally.TotalBallots)
	}
	if len(results.Tally.Winners) != 1 || results.Tally.Winners[0] != "yes" {
		t.Fatalf("winners = %v, want [yes]", results.Tally.Winners)
	}
	if results.Standings != nil || results.NamedBallots != nil {
		t.Fatalf("non-committee results carry no standings or named ballots")
	}
}

func TestResultsCommitteeKeepsNames(t *testing.T) {
	store := memory.NewStore()
	q := ResultsQueries{Elections: store, Ballots: store}
	seedWithBallots(store, func(e *entities.Election) {
		e.VotingType = entities.VotingTypeCommittee
		e.Answers = []entities.Answer{{ID: "a"}, {ID: "b"}, {ID: "c"}}
		e.MaxSelections = 3
		e.SeatsToFill = 1
		e.Eligibility = entities.EligibilityCommittee
		e.CommitteeMemberUIDs = []string{"m1", "m2", "m3"}
		e.PreserveVoterIdentity = true
		e.RankedMethod = entities.RankedMethodSTV
		e.QuotaType = entities.QuotaDroop
	},
		entities.Ballot{ID: "b1", ElectionID: "election-1", MemberUID: "m1", RankedAnswers: []string{"a", "b"}},
		entities.Ballot{ID: "b2", ElectionID: "election-1", MemberUID: "m2", RankedAnswers: []string{"a", "c"}},
		entities.Ballot{ID: "b3", ElectionID: "election-1", MemberUID: "m3", RankedAnswers: []string{"b", "a"}},
	)

	results, err := q.Results(context.Background(), voter("m1"), "election-1")
	if err != nil {
		t.Fatalf("results failed: %v", err)
	}
	if len(results.Tally.Winners) != 1 || results.Tally.Winners[0] != "a" {
		t.Fatalf("winners = %v, want [a]", results.Tally.Winners)
	}
	if len(results.Standings) == 0 || results.Standings[0].AnswerID != "a" {
		t.Fatalf("standings must lead with a: %+v", results.Standings)
	}
	if len(results.NamedBallots) != 3 || results.NamedBallots[0].MemberUID == "" {
		t.Fatalf("committee ballots keep their voter: %+v", results.NamedBallots)
	}
}

func TestListElectionsHidesHiddenFromMembers(t *testing.T) {
	store := memory.NewStore()
	q := ElectionQueries{Elections: store, Ballots: store}

	visible := entities.Election{
		ID: "visible", Title: "Visible",
		Answers:    []entities.Answer{{ID: "yes"}, {ID: "no"}},
		VotingType: entities.VotingTypeSingle,
		CreatedAt:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	visible.ApplyDefaults()
	hidden := visible
	hidden.ID = "hidden"
	hidden.Hidden = true
	hidden.CreatedAt = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	store.SaveElection(context.Background(), visible)
	store.SaveElection(context.Background(), hidden)

	forMember, err := q.ListElections(context.Background(), voter("member-0001"), true)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(forMember) != 1 || forMember[0].ID != "visible" {
		t.Fatalf("members see visible elections only: %+v", forMember)
	}

	forManager, err := q.ListElections(context.Background(), managerCaller(), true)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(forManager) != 2 || forManager[0].ID != "hidden" {
		t.Fatalf("managers see hidden elections newest first: %+v", forManager)
	}

	withoutFlag, _ := q.ListElections(context.Background(), managerCaller(), false)
	if len(withoutFlag) != 1 {
		t.Fatalf("hidden elections appear only on request: %+v", withoutFlag)
	}
}

func TestHasVoted(t *testing.T) {
	store := memory.NewStore()
	q := ElectionQueries{Elections: store, Ballots: store}
	seedWithBallots(store, nil,
		entities.Ballot{ID: "b1", ElectionID: "election-1", MemberUID: "m1", AnswerID: "yes"},
	)

	voted, err := q.HasVoted(context.Background(), voter("m1"), "election-1")
	if err != nil || !voted {
		t.Fatalf("m1 has voted: voted=%v err=%v", voted, err)
	}
	voted, err = q.HasVoted(context.Background(), voter("m2"), "election-1")
	if err != nil || voted {
		t.Fatalf("m2 has not voted: voted=%v err=%v", voted, err)
	}
}
