package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"kosning/contexts/voting/elections-service/adapters/memory"
	"kosning/contexts/voting/elections-service/domain/entities"
	domainerrors "kosning/contexts/voting/elections-service/domain/errors"
	"kosning/contexts/voting/elections-service/domain/services"
	"kosning/internal/shared/roles"
)

func newBallotUseCase() (BallotUseCase, *memory.Store) {
	store := memory.NewStore()
	store.SetNow(time.Date(2026, 3, 14, 10, 0, 30, 0, time.UTC))
	uc := BallotUseCase{
		Elections: store,
		Ballots:   store,
		Tokens:    store,
		Audit:     store,
		Clock:     store,
		IDGen:     store,
	}
	return uc, store
}

func member(uid string) services.Caller {
	return services.Caller{MemberUID: uid, IsMember: true, Roles: []roles.Role{roles.RoleMember}}
}

func seedElection(store *memory.Store, mutate func(*entities.Election)) entities.Election {
	election := entities.Election{
		ID:         "election-1",
		Title:      "Aðalfundur 2026",
		Answers:    []entities.Answer{{ID: "yes"}, {ID: "no"}, {ID: "abstain"}},
		VotingType: entities.VotingTypeSingle,
		Status:     entities.StatusPublished,
	}
	election.ApplyDefaults()
	election.Status = entities.StatusPublished
	election.Eligibility = entities.EligibilityMembers
	if mutate != nil {
		mutate(&election)
	}
	store.SaveElection(context.Background(), election)
	return election
}

func TestSubmitBallotRecordsOnePerMember(t *testing.T) {
	uc, store := newBallotUseCase()
	seedElection(store, nil)

	cmd := SubmitBallotCommand{Caller: member("member-0001"), ElectionID: "election-1", AnswerID: "yes"}
	if err := uc.SubmitBallot(context.Background(), cmd); err != nil {
		t.Fatalf("first ballot failed: %v", err)
	}
	if err := uc.SubmitBallot(context.Background(), cmd); !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("second ballot must be refused, got %v", err)
	}

	ballots, _ := store.ListBallots(context.Background(), "election-1")
	if len(ballots) != 1 {
		t.Fatalf("ballot count = %d, want 1", len(ballots))
	}
	if want := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC); !ballots[0].SubmittedAt.Equal(want) {
		t.Fatalf("submitted_at = %v, want minute precision %v", ballots[0].SubmittedAt, want)
	}
}

func TestSubmitBallotAdmission(t *testing.T) {
	uc, store := newBallotUseCase()

	seedElection(store, func(e *entities.Election) { e.Hidden = true })
	err := uc.SubmitBallot(context.Background(), SubmitBallotCommand{
		Caller: member("member-0001"), ElectionID: "election-1", AnswerID: "yes",
	})
	if !errors.Is(err, domainerrors.ErrElectionNotFound) {
		t.Fatalf("hidden election must read as missing, got %v", err)
	}

	seedElection(store, func(e *entities.Election) { e.Status = entities.StatusPaused })
	err = uc.SubmitBallot(context.Background(), SubmitBallotCommand{
		Caller: member("member-0001"), ElectionID: "election-1", AnswerID: "yes",
	})
	if !errors.Is(err, domainerrors.ErrElectionNotOpen) {
		t.Fatalf("paused election must refuse ballots, got %v", err)
	}

	seedElection(store, nil)
	caller := member("visitor-0001")
	caller.IsMember = false
	err = uc.SubmitBallot(context.Background(), SubmitBallotCommand{
		Caller: caller, ElectionID: "election-1", AnswerID: "yes",
	})
	if !errors.Is(err, domainerrors.ErrNotEligible) {
		t.Fatalf("non-member must be refused, got %v", err)
	}
}

func TestSubmitBallotValidatesPayloadPerType(t *testing.T) {
	uc, store := newBallotUseCase()
	seedElection(store, nil)

	err := uc.SubmitBallot(context.Background(), SubmitBallotCommand{
		Caller: member("member-0001"), ElectionID: "election-1", AnswerID: "maybe",
	})
	var ballotErr domainerrors.BallotError
	if !errors.As(err, &ballotErr) || ballotErr.Field != "answer_id" {
		t.Fatalf("undeclared answer must fail on answer_id, got %v", err)
	}

	seedElection(store, func(e *entities.Election) {
		e.VotingType = entities.VotingTypeMulti
		e.Answers = []entities.Answer{{ID: "a"}, {ID: "b"}, {ID: "c"}}
		e.MaxSelections = 2
		e.SeatsToFill = 2
	})
	err = uc.SubmitBallot(context.Background(), SubmitBallotCommand{
		Caller: member("member-0002"), ElectionID: "election-1",
		Selections: []string{"a", "b", "c"},
	})
	if !errors.As(err, &ballotErr) || ballotErr.Field != "selections" {
		t.Fatalf("oversized selection must fail on selections, got %v", err)
	}
	err = uc.SubmitBallot(context.Background(), SubmitBallotCommand{
		Caller: member("member-0002"), ElectionID: "election-1",
		Selections: []string{"a", "a"},
	})
	if !errors.As(err, &ballotErr) || ballotErr.Field != "selections" {
		t.Fatalf("repeated selection must fail, got %v", err)
	}
}

func TestSubmitBallotCommitteeJustifications(t *testing.T) {
	uc, store := newBallotUseCase()
	seedElection(store, func(e *entities.Election) {
		e.VotingType = entities.VotingTypeCommittee
		e.Answers = []entities.Answer{{ID: "a"}, {ID: "b"}, {ID: "c"}}
		e.MaxSelections = 3
		e.SeatsToFill = 1
		e.Eligibility = entities.EligibilityCommittee
		e.CommitteeMemberUIDs = []string{"member-0001"}
		e.PreserveVoterIdentity = true
		e.RequiresJustification = true
		e.JustificationRequiredForTopN = 2
	})

	outsider := SubmitBallotCommand{
		Caller: member("member-0009"), ElectionID: "election-1",
		RankedAnswers: []string{"a", "b"},
	}
	if err := uc.SubmitBallot(context.Background(), outsider); !errors.Is(err, domainerrors.ErrNotEligible) {
		t.Fatalf("non-committee member must be refused, got %v", err)
	}

	missing := SubmitBallotCommand{
		Caller: member("member-0001"), ElectionID: "election-1",
		RankedAnswers:  []string{"a", "b", "c"},
		Justifications: []entities.Justification{{AnswerID: "a", Text: "Reynsla af stjórnarsetu"}},
	}
	var ballotErr domainerrors.BallotError
	if err := uc.SubmitBallot(context.Background(), missing); !errors.As(err, &ballotErr) || ballotErr.Field != "justifications" {
		t.Fatalf("missing top-2 justification must fail, got %v", err)
	}

	complete := missing
	complete.Justifications = append(complete.Justifications, entities.Justification{AnswerID: "b", Text: "Gott tengslanet"})
	if err := uc.SubmitBallot(context.Background(), complete); err != nil {
		t.Fatalf("complete committee ballot failed: %v", err)
	}
}

func TestSubmitTokenBallotSpendsOnce(t *testing.T) {
	uc, store := newBallotUseCase()
	seedElection(store, nil)

	plaintext := "legacy-token-plaintext"
	digest := sha256.Sum256([]byte(plaintext))
	tokenHash := hex.EncodeToString(digest[:])
	store.RegisterToken(context.Background(), tokenHash, "election-1", store.Now())

	cmd := TokenBallotCommand{Token: plaintext, ElectionID: "election-1", AnswerID: "yes"}
	if err := uc.SubmitTokenBallot(context.Background(), cmd); err != nil {
		t.Fatalf("token ballot failed: %v", err)
	}
	if err := uc.SubmitTokenBallot(context.Background(), cmd); !errors.Is(err, domainerrors.ErrTokenUsed) {
		t.Fatalf("spent token must be refused, got %v", err)
	}

	ballots, _ := store.ListBallots(context.Background(), "election-1")
	if len(ballots) != 1 {
		t.Fatalf("ballot count = %d, want 1", len(ballots))
	}
	if ballots[0].MemberUID != entities.LegacyMemberUID {
		t.Fatalf("token ballots carry the anonymous member uid, got %q", ballots[0].MemberUID)
	}
}

func TestSubmitTokenBallotGuards(t *testing.T) {
	uc, store := newBallotUseCase()
	seedElection(store, nil)

	if err := uc.SubmitTokenBallot(context.Background(), TokenBallotCommand{
		Token: "never-issued", ElectionID: "election-1", AnswerID: "yes",
	}); !errors.Is(err, domainerrors.ErrTokenNotFound) {
		t.Fatalf("unknown token must not be found, got %v", err)
	}

	plaintext := "cross-election-token"
	digest := sha256.Sum256([]byte(plaintext))
	store.RegisterToken(context.Background(), hex.EncodeToString(digest[:]), "election-1", store.Now())
	if err := uc.SubmitTokenBallot(context.Background(), TokenBallotCommand{
		Token: plaintext, ElectionID: "election-2", AnswerID: "yes",
	}); !errors.Is(err, domainerrors.ErrTokenNotFound) {
		t.Fatalf("token bound to another election must not be found, got %v", err)
	}
}

func TestSubmitTokenBallotRejectsRichElections(t *testing.T) {
	uc, store := newBallotUseCase()
	seedElection(store, func(e *entities.Election) {
		e.Answers = []entities.Answer{{ID: "alice"}, {ID: "bob"}}
	})

	plaintext := "rich-election-token"
	digest := sha256.Sum256([]byte(plaintext))
	store.RegisterToken(context.Background(), hex.EncodeToString(digest[:]), "election-1", store.Now())

	var ballotErr domainerrors.BallotError
	err := uc.SubmitTokenBallot(context.Background(), TokenBallotCommand{
		Token: plaintext, ElectionID: "election-1", AnswerID: "alice",
	})
	if !errors.As(err, &ballotErr) || ballotErr.Field != "voting_type" {
		t.Fatalf("token voting outside yes/no/abstain must be refused, got %v", err)
	}
}
