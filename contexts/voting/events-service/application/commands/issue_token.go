package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "kosning/contexts/voting/events-service/application"
	"kosning/contexts/voting/events-service/domain/entities"
	domainerrors "kosning/contexts/voting/events-service/domain/errors"
	"kosning/contexts/voting/events-service/domain/valueobjects"
	"kosning/contexts/voting/events-service/ports"
	"kosning/internal/shared/audit"
	"kosning/internal/shared/roles"
)

// IssueTokenCommand is the write-model input for token issuance.
type IssueTokenCommand struct {
	MemberUID  string
	Kennitala  string
	IsMember   bool
	Roles      []roles.Role
	ElectionID string
}

// IssueTokenResult carries the plaintext token exactly once. Callers must not
// log the Token field.
type IssueTokenResult struct {
	Token     string
	ExpiresAt time.Time
}

// TokenUseCase orchestrates the mint sequence: eligibility, kennitala
// normalisation, transactional replacement of any stale token, and S2S
// registration ordered ahead of the local commit.
type TokenUseCase struct {
	Tokens    ports.TokenRepository
	Registrar ports.ElectionRegistrar
	Source    ports.TokenSource
	Audit     ports.AuditLog
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	TokenTTL  time.Duration
	Logger    *slog.Logger
}

func (uc TokenUseCase) IssueToken(ctx context.Context, cmd IssueTokenCommand) (IssueTokenResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	memberUID := strings.TrimSpace(cmd.MemberUID)
	electionID := strings.TrimSpace(cmd.ElectionID)
	logger.Info("token issuance started",
		"event", "events_token_issue_started",
		"module", "voting/events-service",
		"layer", "application",
		"member_uid", audit.MaskActor(memberUID),
		"election_id", electionID,
	)
	if memberUID == "" {
		return IssueTokenResult{}, domainerrors.ErrUnauthenticated
	}
	if electionID == "" {
		return IssueTokenResult{}, domainerrors.ErrInvalidInput
	}

	election, err := uc.Registrar.GetElection(ctx, electionID)
	if err != nil {
		return IssueTokenResult{}, err
	}
	if err := checkEligibility(election, cmd); err != nil {
		logger.Warn("token issuance refused",
			"event", "events_token_issue_refused",
			"module", "voting/events-service",
			"layer", "application",
			"member_uid", audit.MaskActor(memberUID),
			"election_id", electionID,
			"error", err.Error(),
		)
		return IssueTokenResult{}, err
	}

	kennitala, err := valueobjects.NormalizeKennitala(cmd.Kennitala)
	if err != nil {
		return IssueTokenResult{}, domainerrors.ErrInvalidInput
	}

	now := uc.Clock.Now().UTC()
	tokenID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return IssueTokenResult{}, err
	}
	plaintext, hash, err := uc.Source.NewToken()
	if err != nil {
		return IssueTokenResult{}, err
	}

	token := entities.VotingToken{
		TokenID:    tokenID,
		MemberUID:  memberUID,
		Kennitala:  kennitala,
		ElectionID: electionID,
		TokenHash:  hash,
		CreatedAt:  now,
		ExpiresAt:  now.Add(uc.tokenTTL()),
	}

	// The registrar call runs inside the repository transaction so that the
	// Elections acknowledgement lands before the Events row commits. On an
	// ambiguous S2S outcome the local transaction aborts and the Elections
	// orphan sweep reaps the hash.
	err = uc.Tokens.ReplaceToken(ctx, token, now, func(txCtx context.Context) error {
		return uc.Registrar.RegisterTokenHash(txCtx, electionID, hash)
	})
	if err != nil {
		uc.appendAudit(ctx, "token_issue", false, cmd, map[string]any{
			"election_id": electionID,
			"reason":      err.Error(),
		})
		return IssueTokenResult{}, err
	}

	uc.appendAudit(ctx, "token_issue", true, cmd, map[string]any{
		"election_id": electionID,
		"token_hash":  audit.MaskHash(hash),
	})
	logger.Info("token issued",
		"event", "events_token_issued",
		"module", "voting/events-service",
		"layer", "application",
		"member_uid", audit.MaskActor(memberUID),
		"election_id", electionID,
		"token_hash", audit.MaskHash(hash),
	)
	return IssueTokenResult{Token: plaintext, ExpiresAt: token.ExpiresAt}, nil
}

func (uc TokenUseCase) tokenTTL() time.Duration {
	if uc.TokenTTL <= 0 {
		return 2 * time.Hour
	}
	return uc.TokenTTL
}

func (uc TokenUseCase) appendAudit(ctx context.Context, action string, success bool, cmd IssueTokenCommand, details map[string]any) {
	if uc.Audit == nil {
		return
	}
	entry := entities.AuditEntry{
		Timestamp:   uc.Clock.Now().UTC(),
		Action:      action,
		Success:     success,
		PerformedBy: audit.MaskActor(cmd.MemberUID),
		Details:     details,
	}
	if kennitala, err := valueobjects.NormalizeKennitala(cmd.Kennitala); err == nil {
		entry.Details["kennitala_masked"] = audit.MaskKennitala(kennitala)
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

// checkEligibility mirrors the Elections-side admission rules using the S2S
// election summary. Hidden elections behave as not found for non-managers.
func checkEligibility(election ports.ElectionSummary, cmd IssueTokenCommand) error {
	if election.Hidden && !roles.IsManager(cmd.Roles) {
		return domainerrors.ErrElectionNotFound
	}
	if election.Status != "published" {
		return domainerrors.ErrElectionNotOpen
	}
	switch election.Eligibility {
	case "all":
		return nil
	case "members":
		if cmd.IsMember {
			return nil
		}
	case "admins":
		if roles.Admits(cmd.Roles, roles.RoleAdmin) {
			return nil
		}
	case "committee":
		for _, uid := range election.CommitteeMemberUIDs {
			if strings.EqualFold(strings.TrimSpace(uid), strings.TrimSpace(cmd.MemberUID)) {
				return nil
			}
		}
	}
	return domainerrors.ErrNotEligible
}
