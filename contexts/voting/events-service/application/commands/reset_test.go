package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"kosning/contexts/voting/events-service/adapters/memory"
	"kosning/contexts/voting/events-service/domain/entities"
	domainerrors "kosning/contexts/voting/events-service/domain/errors"
	"kosning/internal/shared/roles"
)

func newResetUseCase(production bool, resetAllowed bool) (ResetUseCase, *memory.Store, *memory.Registrar) {
	store := memory.NewStore()
	store.SetNow(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))
	registrar := memory.NewRegistrar()
	uc := ResetUseCase{
		Tokens:       store,
		Registrar:    registrar,
		Audit:        store,
		Clock:        store,
		Production:   production,
		ResetAllowed: resetAllowed,
	}
	return uc, store, registrar
}

func seedToken(t *testing.T, store *memory.Store, memberUID string, electionID string, hash string) {
	t.Helper()
	err := store.ReplaceToken(context.Background(), entities.VotingToken{
		TokenID:    "token-" + memberUID,
		MemberUID:  memberUID,
		Kennitala:  "1203894569",
		ElectionID: electionID,
		TokenHash:  hash,
		CreatedAt:  store.Now(),
		ExpiresAt:  store.Now().Add(2 * time.Hour),
	}, store.Now(), nil)
	if err != nil {
		t.Fatalf("seed token: %v", err)
	}
}

func lastAudit(t *testing.T, store *memory.Store, action string) entities.AuditEntry {
	t.Helper()
	entries := store.AuditEntries()
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Action == action {
			return entries[i]
		}
	}
	t.Fatalf("no audit entry with action %q", action)
	return entities.AuditEntry{}
}

func TestResetMineDeletesOnlyOwnToken(t *testing.T) {
	uc, store, registrar := newResetUseCase(false, false)
	seedToken(t, store, "member-0001", "election-1", "hash-one")
	seedToken(t, store, "member-0002", "election-1", "hash-two")
	registrar.RegisterTokenHash(context.Background(), "election-1", "hash-one")
	registrar.RegisterTokenHash(context.Background(), "election-1", "hash-two")

	result, err := uc.Reset(context.Background(), ResetCommand{
		MemberUID:  "member-0001",
		Roles:      []roles.Role{roles.RoleMember},
		ElectionID: "election-1",
		Scope:      ScopeMine,
	})
	if err != nil {
		t.Fatalf("reset mine failed: %v", err)
	}
	if result.TokensDeleted != 1 {
		t.Fatalf("tokens deleted = %d, want 1", result.TokensDeleted)
	}
	if _, found, _ := store.GetToken(context.Background(), "member-0001", "election-1"); found {
		t.Fatalf("caller token must be gone")
	}
	if _, found, _ := store.GetToken(context.Background(), "member-0002", "election-1"); !found {
		t.Fatalf("other member token must survive")
	}
	if _, ok := registrar.RegisteredHashes()["hash-one"]; ok {
		t.Fatalf("caller hash must be unregistered on the elections side")
	}
	if _, ok := registrar.RegisteredHashes()["hash-two"]; !ok {
		t.Fatalf("other member hash must stay registered")
	}
}

func TestResetMineWithoutTokenIsANoop(t *testing.T) {
	uc, _, _ := newResetUseCase(false, false)
	result, err := uc.Reset(context.Background(), ResetCommand{
		MemberUID:  "member-0001",
		ElectionID: "election-1",
		Scope:      ScopeMine,
	})
	if err != nil {
		t.Fatalf("reset mine must succeed with nothing to delete: %v", err)
	}
	if result.TokensDeleted != 0 {
		t.Fatalf("tokens deleted = %d, want 0", result.TokensDeleted)
	}
}

func TestResetAllRequiresAdminRole(t *testing.T) {
	uc, store, _ := newResetUseCase(false, false)
	_, err := uc.Reset(context.Background(), ResetCommand{
		MemberUID: "member-0001",
		Roles:     []roles.Role{roles.RoleElectionManager},
		Scope:     ScopeAll,
		Confirm:   ConfirmResetAll,
	})
	if !errors.Is(err, domainerrors.ErrResetForbidden) {
		t.Fatalf("election_manager must not reset all, got %v", err)
	}
	entry := lastAudit(t, store, "token_reset_all")
	if entry.Success || entry.Details["outcome"] != "blocked" || entry.Details["reason"] != "role" {
		t.Fatalf("blocked attempt not audited as role refusal: %+v", entry)
	}
}

func TestResetAllRequiresConfirmationPhrase(t *testing.T) {
	uc, store, _ := newResetUseCase(false, false)
	_, err := uc.Reset(context.Background(), ResetCommand{
		MemberUID: "admin-0001",
		Roles:     []roles.Role{roles.RoleAdmin},
		Scope:     ScopeAll,
		Confirm:   "reset all",
	})
	if !errors.Is(err, domainerrors.ErrConfirmRequired) {
		t.Fatalf("wrong confirmation must be refused, got %v", err)
	}
	entry := lastAudit(t, store, "token_reset_all")
	if entry.Details["reason"] != "confirmation" {
		t.Fatalf("blocked attempt not audited as confirmation refusal: %+v", entry)
	}
}

func TestResetAllProductionGuardrail(t *testing.T) {
	uc, store, _ := newResetUseCase(true, false)
	seedToken(t, store, "member-0001", "election-1", "hash-one")

	_, err := uc.Reset(context.Background(), ResetCommand{
		MemberUID: "admin-0001",
		Roles:     []roles.Role{roles.RoleDeveloper},
		Scope:     ScopeAll,
		Confirm:   ConfirmResetAll,
	})
	if !errors.Is(err, domainerrors.ErrResetForbidden) {
		t.Fatalf("production without opt-in must refuse reset all, got %v", err)
	}
	entry := lastAudit(t, store, "token_reset_all")
	if entry.Success || entry.Details["reason"] != "production_guardrail" {
		t.Fatalf("guardrail refusal not audited: %+v", entry)
	}
	if _, found, _ := store.GetToken(context.Background(), "member-0001", "election-1"); !found {
		t.Fatalf("tokens must be untouched by a blocked reset")
	}
}

func TestResetAllDeletesEverythingWhenAllowed(t *testing.T) {
	uc, store, registrar := newResetUseCase(true, true)
	seedToken(t, store, "member-0001", "election-1", "hash-one")
	seedToken(t, store, "member-0002", "election-2", "hash-two")
	registrar.RegisterTokenHash(context.Background(), "election-1", "hash-one")

	result, err := uc.Reset(context.Background(), ResetCommand{
		MemberUID: "admin-0001",
		Roles:     []roles.Role{roles.RoleAdmin},
		Scope:     ScopeAll,
		Confirm:   ConfirmResetAll,
	})
	if err != nil {
		t.Fatalf("opted-in reset all failed: %v", err)
	}
	if result.TokensDeleted != 2 {
		t.Fatalf("tokens deleted = %d, want 2", result.TokensDeleted)
	}
	if len(registrar.RegisteredHashes()) != 0 {
		t.Fatalf("elections-side hashes must be cleared")
	}
	entry := lastAudit(t, store, "token_reset_all")
	if !entry.Success || entry.Details["outcome"] != "allowed" {
		t.Fatalf("allowed reset not audited: %+v", entry)
	}
}

func TestResetRejectsUnknownScope(t *testing.T) {
	uc, _, _ := newResetUseCase(false, false)
	_, err := uc.Reset(context.Background(), ResetCommand{
		MemberUID: "member-0001",
		Scope:     "everything",
	})
	if !errors.Is(err, domainerrors.ErrInvalidResetScope) {
		t.Fatalf("unknown scope must fail, got %v", err)
	}
}
