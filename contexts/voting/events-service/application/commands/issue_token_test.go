package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"kosning/contexts/voting/events-service/adapters/memory"
	tokenadapter "kosning/contexts/voting/events-service/adapters/token"
	domainerrors "kosning/contexts/voting/events-service/domain/errors"
	"kosning/contexts/voting/events-service/ports"
	"kosning/internal/shared/roles"
)

func newTokenUseCase(t *testing.T) (TokenUseCase, *memory.Store, *memory.Registrar) {
	t.Helper()
	store := memory.NewStore()
	store.SetNow(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))
	registrar := memory.NewRegistrar()
	registrar.SetElection(ports.ElectionSummary{
		ID:          "election-1",
		Status:      "published",
		Eligibility: "members",
		VotingType:  "single-choice",
	})
	uc := TokenUseCase{
		Tokens:    store,
		Registrar: registrar,
		Source:    tokenadapter.RandomSource{},
		Audit:     store,
		Clock:     store,
		IDGen:     store,
		TokenTTL:  2 * time.Hour,
	}
	return uc, store, registrar
}

func memberCommand() IssueTokenCommand {
	return IssueTokenCommand{
		MemberUID:  "member-0001",
		Kennitala:  "120389-4569",
		IsMember:   true,
		Roles:      []roles.Role{roles.RoleMember},
		ElectionID: "election-1",
	}
}

func TestIssueTokenReturnsPlaintextOnceAndRegistersHash(t *testing.T) {
	uc, store, registrar := newTokenUseCase(t)

	result, err := uc.IssueToken(context.Background(), memberCommand())
	if err != nil {
		t.Fatalf("issue token failed: %v", err)
	}
	if result.Token == "" {
		t.Fatalf("expected a plaintext token in the response")
	}
	if want := store.Now().Add(2 * time.Hour); !result.ExpiresAt.Equal(want) {
		t.Fatalf("expires at %v, want %v", result.ExpiresAt, want)
	}

	stored, found, err := store.GetToken(context.Background(), "member-0001", "election-1")
	if err != nil || !found {
		t.Fatalf("stored token missing: found=%v err=%v", found, err)
	}
	if stored.TokenHash == result.Token {
		t.Fatalf("stored hash must not equal the plaintext")
	}
	if stored.Kennitala != "1203894569" {
		t.Fatalf("kennitala not normalised: %q", stored.Kennitala)
	}
	if electionID := registrar.RegisteredHashes()[stored.TokenHash]; electionID != "election-1" {
		t.Fatalf("hash not registered with elections: %v", registrar.RegisteredHashes())
	}
}

func TestIssueTokenConflictsWhileLive(t *testing.T) {
	uc, _, _ := newTokenUseCase(t)

	if _, err := uc.IssueToken(context.Background(), memberCommand()); err != nil {
		t.Fatalf("first issuance failed: %v", err)
	}
	if _, err := uc.IssueToken(context.Background(), memberCommand()); !errors.Is(err, domainerrors.ErrTokenActive) {
		t.Fatalf("second issuance must conflict, got %v", err)
	}
}

func TestIssueTokenReplacesExpiredToken(t *testing.T) {
	uc, store, _ := newTokenUseCase(t)

	first, err := uc.IssueToken(context.Background(), memberCommand())
	if err != nil {
		t.Fatalf("first issuance failed: %v", err)
	}

	store.SetNow(store.Now().Add(3 * time.Hour))
	second, err := uc.IssueToken(context.Background(), memberCommand())
	if err != nil {
		t.Fatalf("reissue after expiry failed: %v", err)
	}
	if first.Token == second.Token {
		t.Fatalf("replacement token must be fresh")
	}
}

func TestIssueTokenRollsBackWhenRegistrationFails(t *testing.T) {
	uc, store, registrar := newTokenUseCase(t)
	registrar.FailNextRegistration(domainerrors.ErrRegistrationFailed)

	if _, err := uc.IssueToken(context.Background(), memberCommand()); !errors.Is(err, domainerrors.ErrRegistrationFailed) {
		t.Fatalf("expected registration failure, got %v", err)
	}
	if _, found, _ := store.GetToken(context.Background(), "member-0001", "election-1"); found {
		t.Fatalf("events row must not survive a failed registration")
	}
}

func TestIssueTokenEligibility(t *testing.T) {
	uc, _, registrar := newTokenUseCase(t)

	cmd := memberCommand()
	cmd.IsMember = false
	if _, err := uc.IssueToken(context.Background(), cmd); !errors.Is(err, domainerrors.ErrNotEligible) {
		t.Fatalf("non-member must be refused for a members election, got %v", err)
	}

	registrar.SetElection(ports.ElectionSummary{
		ID: "election-1", Status: "paused", Eligibility: "members",
	})
	if _, err := uc.IssueToken(context.Background(), memberCommand()); !errors.Is(err, domainerrors.ErrElectionNotOpen) {
		t.Fatalf("paused election must refuse issuance, got %v", err)
	}
}

func TestIssueTokenHiddenElectionBehavesAsMissing(t *testing.T) {
	uc, _, registrar := newTokenUseCase(t)
	registrar.SetElection(ports.ElectionSummary{
		ID: "election-1", Status: "published", Hidden: true, Eligibility: "members",
	})

	if _, err := uc.IssueToken(context.Background(), memberCommand()); !errors.Is(err, domainerrors.ErrElectionNotFound) {
		t.Fatalf("hidden election must read as not found for members, got %v", err)
	}

	cmd := memberCommand()
	cmd.Roles = []roles.Role{roles.RoleElectionManager}
	if _, err := uc.IssueToken(context.Background(), cmd); err != nil {
		t.Fatalf("managers may issue against hidden elections: %v", err)
	}
}
