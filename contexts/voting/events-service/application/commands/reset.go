package commands

import (
	"context"
	"log/slog"
	"strings"

	application "kosning/contexts/voting/events-service/application"
	"kosning/contexts/voting/events-service/domain/entities"
	domainerrors "kosning/contexts/voting/events-service/domain/errors"
	"kosning/contexts/voting/events-service/ports"
	"kosning/internal/shared/audit"
	"kosning/internal/shared/roles"
)

// ConfirmResetAll is the literal phrase required for a scope=all reset.
const ConfirmResetAll = "RESET ALL"

const (
	ScopeMine = "mine"
	ScopeAll  = "all"
)

// ResetCommand requests token deletion. Scope mine is member-owned and never
// touches ballots; scope all is the destructive test-data reset gated by the
// production opt-in flag.
type ResetCommand struct {
	MemberUID  string
	Roles      []roles.Role
	ElectionID string
	Scope      string
	Confirm    string
}

type ResetResult struct {
	TokensDeleted int64
}

// ResetUseCase applies member and admin resets. Every scope=all attempt is
// audited, refused ones with outcome blocked.
type ResetUseCase struct {
	Tokens       ports.TokenRepository
	Registrar    ports.ElectionRegistrar
	Audit        ports.AuditLog
	Clock        ports.Clock
	Production   bool
	ResetAllowed bool
	Logger       *slog.Logger
}

func (uc ResetUseCase) Reset(ctx context.Context, cmd ResetCommand) (ResetResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	memberUID := strings.TrimSpace(cmd.MemberUID)
	if memberUID == "" {
		return ResetResult{}, domainerrors.ErrUnauthenticated
	}

	switch strings.ToLower(strings.TrimSpace(cmd.Scope)) {
	case ScopeMine:
		return uc.resetMine(ctx, memberUID, strings.TrimSpace(cmd.ElectionID), logger)
	case ScopeAll:
		return uc.resetAll(ctx, cmd, logger)
	default:
		return ResetResult{}, domainerrors.ErrInvalidResetScope
	}
}

// resetMine deletes the caller's own token on both sides. Ballots are never
// touched: a member who has voted stays voted.
func (uc ResetUseCase) resetMine(ctx context.Context, memberUID string, electionID string, logger *slog.Logger) (ResetResult, error) {
	token, found, err := uc.Tokens.GetToken(ctx, memberUID, electionID)
	if err != nil {
		return ResetResult{}, err
	}
	if !found {
		return ResetResult{}, nil
	}

	if err := uc.Registrar.UnregisterTokenHash(ctx, electionID, token.TokenHash); err != nil {
		logger.Warn("elections-side token deletion failed; orphan sweep will reap",
			"event", "events_reset_mine_unregister_failed",
			"module", "voting/events-service",
			"layer", "application",
			"member_uid", audit.MaskActor(memberUID),
			"election_id", electionID,
			"error", err.Error(),
		)
	}
	deleted, err := uc.Tokens.DeleteToken(ctx, memberUID, electionID)
	if err != nil {
		return ResetResult{}, err
	}

	uc.appendAudit(ctx, "token_reset_mine", true, memberUID, map[string]any{
		"election_id":    electionID,
		"tokens_deleted": deleted,
	})
	return ResetResult{TokensDeleted: deleted}, nil
}

// resetAll wipes tokens in both schemas and clears unclosed ballots. The
// operation is refused outside explicitly opted-in deployments.
func (uc ResetUseCase) resetAll(ctx context.Context, cmd ResetCommand, logger *slog.Logger) (ResetResult, error) {
	memberUID := strings.TrimSpace(cmd.MemberUID)
	if !roles.Admits(cmd.Roles, roles.RoleAdmin) {
		uc.appendAudit(ctx, "token_reset_all", false, memberUID, map[string]any{
			"outcome": "blocked",
			"reason":  "role",
		})
		return ResetResult{}, domainerrors.ErrResetForbidden
	}
	if strings.TrimSpace(cmd.Confirm) != ConfirmResetAll {
		uc.appendAudit(ctx, "token_reset_all", false, memberUID, map[string]any{
			"outcome": "blocked",
			"reason":  "confirmation",
		})
		return ResetResult{}, domainerrors.ErrConfirmRequired
	}
	if uc.Production && !uc.ResetAllowed {
		logger.Warn("production reset blocked",
			"event", "events_reset_all_blocked",
			"module", "voting/events-service",
			"layer", "application",
			"member_uid", audit.MaskActor(memberUID),
		)
		uc.appendAudit(ctx, "token_reset_all", false, memberUID, map[string]any{
			"outcome": "blocked",
			"reason":  "production_guardrail",
		})
		return ResetResult{}, domainerrors.ErrResetForbidden
	}

	if err := uc.Registrar.ResetAll(ctx); err != nil {
		uc.appendAudit(ctx, "token_reset_all", false, memberUID, map[string]any{
			"outcome": "failed",
			"reason":  err.Error(),
		})
		return ResetResult{}, err
	}
	deleted, err := uc.Tokens.DeleteAllTokens(ctx)
	if err != nil {
		return ResetResult{}, err
	}

	uc.appendAudit(ctx, "token_reset_all", true, memberUID, map[string]any{
		"outcome":        "allowed",
		"tokens_deleted": deleted,
	})
	logger.Info("all tokens reset",
		"event", "events_reset_all_applied",
		"module", "voting/events-service",
		"layer", "application",
		"member_uid", audit.MaskActor(memberUID),
		"tokens_deleted", deleted,
	)
	return ResetResult{TokensDeleted: deleted}, nil
}

func (uc ResetUseCase) appendAudit(ctx context.Context, action string, success bool, memberUID string, details map[string]any) {
	if uc.Audit == nil {
		return
	}
	entry := entities.AuditEntry{
		Timestamp:   uc.Clock.Now().UTC(),
		Action:      action,
		Success:     success,
		PerformedBy: audit.MaskActor(memberUID),
		Details:     details,
	}
	if err := uc.Audit.Append(ctx, entry); err != nil {
		application.ResolveLogger(uc.Logger).Error("audit append failed",
			"event", "events_audit_append_failed",
			"module", "voting/events-service",
			"layer", "application",
			"action", action,
			"error", err.Error(),
		)
	}
}
