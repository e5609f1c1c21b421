package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"kosning/contexts/voting/elections-service/adapters/memory"
	"kosning/contexts/voting/elections-service/domain/entities"
	domainerrors "kosning/contexts/voting/elections-service/domain/errors"
)

func newRegistryUseCase() (RegistryUseCase, *memory.Store) {
	store := memory.NewStore()
	store.SetNow(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))
	uc := RegistryUseCase{
		Elections: store,
		Tokens:    store,
		Ballots:   store,
		Audit:     store,
		Clock:     store,
	}
	return uc, store
}

func TestRegisterTokenHashReplayAndConflicts(t *testing.T) {
	uc, store := newRegistryUseCase()
	seedElection(store, nil)
	seedElection(store, func(e *entities.Election) { e.ID = "election-2" })

	const hash = "a3f1c2d4e5b6978800112233445566778899aabbccddeeff0011223344556677"
	if err := uc.RegisterTokenHash(context.Background(), "election-1", hash); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}

	// The events-side retry replays the identical pair; that stays a no-op.
	if err := uc.RegisterTokenHash(context.Background(), "election-1", hash); err != nil {
		t.Fatalf("replay of the same pair must succeed, got %v", err)
	}

	// The same hash bound to a different election is not a replay.
	err := uc.RegisterTokenHash(context.Background(), "election-2", hash)
	if !errors.Is(err, domainerrors.ErrTokenConflict) {
		t.Fatalf("cross-election re-registration must conflict, got %v", err)
	}
	if token, _, _ := store.GetRegisteredToken(context.Background(), hash); token.ElectionID != "election-1" {
		t.Fatalf("conflicting registration must not rebind the hash, got %q", token.ElectionID)
	}
}

func TestRegisterTokenHashRefusesSpentHash(t *testing.T) {
	uc, store := newRegistryUseCase()
	seedElection(store, nil)

	const hash = "b4e2d3c5f6a7088911223344556677889900aabbccddeeff1122334455667788"
	if err := uc.RegisterTokenHash(context.Background(), "election-1", hash); err != nil {
		t.Fatalf("registration failed: %v", err)
	}
	err := store.ConsumeToken(context.Background(), hash, entities.Ballot{
		ID: "ballot-1", ElectionID: "election-1", MemberUID: entities.LegacyMemberUID, AnswerID: "yes",
	}, store.Now())
	if err != nil {
		t.Fatalf("spend failed: %v", err)
	}

	err = uc.RegisterTokenHash(context.Background(), "election-1", hash)
	if !errors.Is(err, domainerrors.ErrTokenConflict) {
		t.Fatalf("re-registering a spent hash must conflict, got %v", err)
	}
}
