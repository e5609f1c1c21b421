package queries

import (
	"context"
	"errors"
	"testing"
	"time"

	"kosning/contexts/voting/events-service/adapters/memory"
	"kosning/contexts/voting/events-service/domain/entities"
	domainerrors "kosning/contexts/voting/events-service/domain/errors"
	"kosning/contexts/voting/events-service/ports"
)

func newStatusUseCase() (StatusUseCase, *memory.Store, *memory.Registrar) {
	store := memory.NewStore()
	store.SetNow(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))
	registrar := memory.NewRegistrar()
	registrar.SetElection(ports.ElectionSummary{ID: "election-1", Status: "published", Eligibility: "members"})
	uc := StatusUseCase{Tokens: store, Registrar: registrar}
	return uc, store, registrar
}

func seedIssuedToken(t *testing.T, store *memory.Store, registrar *memory.Registrar, memberUID string, hash string) {
	t.Helper()
	token := entities.VotingToken{
		TokenID:    "token-" + memberUID,
		MemberUID:  memberUID,
		ElectionID: "election-1",
		TokenHash:  hash,
		CreatedAt:  store.Now(),
		ExpiresAt:  store.Now().Add(2 * time.Hour),
	}
	err := store.ReplaceToken(context.Background(), token, store.Now(), func(ctx context.Context) error {
		return registrar.RegisterTokenHash(ctx, "election-1", hash)
	})
	if err != nil {
		t.Fatalf("seed token failed: %v", err)
	}
}

func TestMyStatusReflectsSpentToken(t *testing.T) {
	uc, store, registrar := newStatusUseCase()
	seedIssuedToken(t, store, registrar, "member-0001", "hash-0001")

	status, err := uc.MyStatus(context.Background(), "member-0001", "election-1")
	if err != nil {
		t.Fatalf("my-status failed: %v", err)
	}
	if !status.HasToken || status.Used {
		t.Fatalf("fresh token: has_token=%v used=%v, want true/false", status.HasToken, status.Used)
	}
	if want := store.Now().Add(2 * time.Hour); !status.ExpiresAt.Equal(want) {
		t.Fatalf("expires_at = %v, want %v", status.ExpiresAt, want)
	}

	// A vote is recorded on the elections side only; the status read must
	// still observe it.
	registrar.MarkSpent("hash-0001")

	status, err = uc.MyStatus(context.Background(), "member-0001", "election-1")
	if err != nil {
		t.Fatalf("my-status after spend failed: %v", err)
	}
	if !status.HasToken || !status.Used {
		t.Fatalf("spent token: has_token=%v used=%v, want true/true", status.HasToken, status.Used)
	}
}

func TestMyStatusWithoutToken(t *testing.T) {
	uc, _, _ := newStatusUseCase()

	status, err := uc.MyStatus(context.Background(), "member-0002", "election-1")
	if err != nil {
		t.Fatalf("my-status failed: %v", err)
	}
	if status.HasToken || status.Used {
		t.Fatalf("no token issued: %+v", status)
	}

	if _, err := uc.MyStatus(context.Background(), "  ", "election-1"); !errors.Is(err, domainerrors.ErrUnauthenticated) {
		t.Fatalf("blank member uid must be unauthenticated, got %v", err)
	}
}

func TestStatsCountSpentTokens(t *testing.T) {
	uc, store, registrar := newStatusUseCase()
	seedIssuedToken(t, store, registrar, "member-0001", "hash-0001")
	seedIssuedToken(t, store, registrar, "member-0002", "hash-0002")
	registrar.MarkSpent("hash-0002")

	stats, err := uc.Stats(context.Background(), "election-1")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Issued != 2 || stats.Used != 1 {
		t.Fatalf("stats = %+v, want issued=2 used=1", stats)
	}

	stats, err = uc.Stats(context.Background(), "election-other")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Issued != 0 || stats.Used != 0 {
		t.Fatalf("other election must count nothing, got %+v", stats)
	}
}
