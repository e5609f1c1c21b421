package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "kosning/contexts/voting/elections-service/application"
	"kosning/contexts/voting/elections-service/domain/entities"
	domainerrors "kosning/contexts/voting/elections-service/domain/errors"
	"kosning/contexts/voting/elections-service/domain/services"
	"kosning/contexts/voting/elections-service/ports"
	"kosning/internal/shared/audit"
	"kosning/internal/shared/roles"
)

// ElectionUseCase owns the write side of the election aggregate: creation,
// draft mutation, lifecycle transitions, and the hidden flag.
type ElectionUseCase struct {
	Elections ports.ElectionRepository
	Audit     ports.AuditLog
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

func (uc ElectionUseCase) CreateElection(ctx context.Context, caller services.Caller, draft entities.Election) (entities.Election, error) {
	if strings.TrimSpace(caller.MemberUID) == "" {
		return entities.Election{}, domainerrors.ErrUnauthenticated
	}
	if !roles.IsManager(caller.Roles) {
		return entities.Election{}, domainerrors.ErrForbidden
	}

	draft.Status = entities.StatusDraft
	draft.ApplyDefaults()
	if err := draft.Validate(); err != nil {
		return entities.Election{}, err
	}

	id, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Election{}, err
	}
	now := uc.Clock.Now().UTC()
	draft.ID = id
	draft.CreatedBy = caller.MemberUID
	draft.UpdatedBy = caller.MemberUID
	draft.CreatedAt = now
	draft.UpdatedAt = now

	if err := uc.Elections.SaveElection(ctx, draft); err != nil {
		return entities.Election{}, err
	}
	uc.appendAudit(ctx, "election_create", true, caller, map[string]any{
		"election_id": draft.ID,
		"voting_type": string(draft.VotingType),
	})
	application.ResolveLogger(uc.Logger).Info("election created",
		"event", "elections_created",
		"module", "voting/elections-service",
		"layer", "application",
		"election_id", draft.ID,
		"voting_type", string(draft.VotingType),
	)
	return draft, nil
}

// UpdateElection replaces the structural fields of a draft. Outside draft the
// aggregate is immutable except for transitions and the hidden flag, so a
// failed update leaves the stored election untouched.
func (uc ElectionUseCase) UpdateElection(ctx context.Context, caller services.Caller, electionID string, updated entities.Election) (entities.Election, error) {
	current, err := uc.loadForManager(ctx, caller, electionID)
	if err != nil {
		return entities.Election{}, err
	}
	if current.Status != entities.StatusDraft {
		return entities.Election{}, domainerrors.ErrImmutablePublished
	}

	updated.ID = current.ID
	updated.Status = current.Status
	updated.Hidden = current.Hidden
	updated.CreatedBy = current.CreatedBy
	updated.CreatedAt = current.CreatedAt
	updated.ApplyDefaults()
	if err := updated.Validate(); err != nil {
		return entities.Election{}, err
	}
	updated.UpdatedBy = caller.MemberUID
	updated.UpdatedAt = uc.Clock.Now().UTC()

	if err := uc.Elections.SaveElection(ctx, updated); err != nil {
		return entities.Election{}, err
	}
	uc.appendAudit(ctx, "election_update", true, caller, map[string]any{
		"election_id": updated.ID,
	})
	return updated, nil
}

// TransitionElection applies a lifecycle action. hide and unhide toggle the
// orthogonal flag and are accepted in every state.
func (uc ElectionUseCase) TransitionElection(ctx context.Context, caller services.Caller, electionID string, action string) (entities.Election, error) {
	current, err := uc.loadForManager(ctx, caller, electionID)
	if err != nil {
		return entities.Election{}, err
	}

	action = strings.ToLower(strings.TrimSpace(action))
	switch action {
	case "hide", "unhide":
		current.Hidden = action == "hide"
	default:
		next, ok := current.NextStatus(action)
		if !ok {
			uc.appendAudit(ctx, "election_transition", false, caller, map[string]any{
				"election_id": electionID,
				"action":      action,
				"from":        string(current.Status),
			})
			return entities.Election{}, domainerrors.ErrInvalidTransition
		}
		current.Status = next
	}
	current.UpdatedBy = caller.MemberUID
	current.UpdatedAt = uc.Clock.Now().UTC()

	if err := uc.Elections.SaveElection(ctx, current); err != nil {
		return entities.Election{}, err
	}
	uc.appendAudit(ctx, "election_transition", true, caller, map[string]any{
		"election_id": electionID,
		"action":      action,
		"status":      string(current.Status),
	})
	application.ResolveLogger(uc.Logger).Info("election transitioned",
		"event", "elections_transitioned",
		"module", "voting/elections-service",
		"layer", "application",
		"election_id", electionID,
		"action", action,
		"status", string(current.Status),
	)
	return current, nil
}

// ApplyScheduled runs the overdue scheduled transitions: a draft whose
// scheduled_start has passed is published, an open election whose
// scheduled_end has passed is closed. Idempotent, so the scheduler can tick
// as often as it likes.
func (uc ElectionUseCase) ApplyScheduled(ctx context.Context, now time.Time) (int, error) {
	elections, err := uc.Elections.ListElections(ctx)
	if err != nil {
		return 0, err
	}
	applied := 0
	for _, election := range elections {
		var action string
		switch {
		case election.Status == entities.StatusDraft &&
			election.ScheduledStart != nil && !election.ScheduledStart.After(now):
			action = "publish"
		case (election.Status == entities.StatusPublished || election.Status == entities.StatusPaused) &&
			election.ScheduledEnd != nil && !election.ScheduledEnd.After(now):
			action = "close"
		default:
			continue
		}
		next, ok := election.NextStatus(action)
		if !ok {
			continue
		}
		election.Status = next
		election.UpdatedBy = "scheduler"
		election.UpdatedAt = now.UTC()
		if err := uc.Elections.SaveElection(ctx, election); err != nil {
			return applied, err
		}
		applied++
		uc.appendAudit(ctx, "election_scheduled_transition", true, services.Caller{MemberUID: "scheduler"}, map[string]any{
			"election_id": election.ID,
			"action":      action,
			"status":      string(election.Status),
		})
	}
	return applied, nil
}

func (uc ElectionUseCase) loadForManager(ctx context.Context, caller services.Caller, electionID string) (entities.Election, error) {
	if strings.TrimSpace(caller.MemberUID) == "" {
		return entities.Election{}, domainerrors.ErrUnauthenticated
	}
	if !roles.IsManager(caller.Roles) {
		return entities.Election{}, domainerrors.ErrForbidden
	}
	election, found, err := uc.Elections.GetElection(ctx, strings.TrimSpace(electionID))
	if err != nil {
		return entities.Election{}, err
	}
	if !found {
		return entities.Election{}, domainerrors.ErrElectionNotFound
	}
	return election, nil
}

func (uc ElectionUseCase) appendAudit(ctx context.Context, action string, success bool, caller services.Caller, details map[string]any) {
	if uc.Audit == nil {
		return
	}
	entry := entities.AuditEntry{
		Timestamp:   uc.Clock.Now().UTC(),
		Action:      action,
		Success:     success,
		PerformedBy: audit.MaskActor(caller.MemberUID),
		Details:     details,
	}
	if err := uc.Audit.Append(ctx, entry); err != nil {
		application.ResolveLogger(uc.Logger).Error("audit append failed",
			"event", "elections_audit_append_failed",
			"module", "voting/elections-service",
			"layer", "application",
			"action", action,
			"error", err.Error(),
		)
	}
}
