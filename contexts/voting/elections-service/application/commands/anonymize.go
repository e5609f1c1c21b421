package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"

	application "kosning/contexts/voting/elections-service/application"
	"kosning/contexts/voting/elections-service/domain/entities"
	domainerrors "kosning/contexts/voting/elections-service/domain/errors"
	"kosning/contexts/voting/elections-service/domain/services"
	"kosning/contexts/voting/elections-service/ports"
	"kosning/internal/shared/audit"
	"kosning/internal/shared/roles"
)

// AnonymizeUseCase severs the member link on recorded ballots once an
// election has closed. The overwrite is a salted one-way hash, so running it
// twice is safe and running it backwards is not possible.
type AnonymizeUseCase struct {
	Elections ports.ElectionRepository
	Ballots   ports.BallotRepository
	Audit     ports.AuditLog
	Clock     ports.Clock
	Salt      string
	Logger    *slog.Logger
}

func (uc AnonymizeUseCase) Anonymize(ctx context.Context, caller services.Caller, electionID string) (int64, error) {
	if strings.TrimSpace(caller.MemberUID) == "" {
		return 0, domainerrors.ErrUnauthenticated
	}
	if !roles.IsManager(caller.Roles) {
		return 0, domainerrors.ErrForbidden
	}

	election, found, err := uc.Elections.GetElection(ctx, strings.TrimSpace(electionID))
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, domainerrors.ErrElectionNotFound
	}
	if election.Status != entities.StatusClosed && election.Status != entities.StatusArchived {
		return 0, domainerrors.ErrElectionNotClosed
	}
	// Committee ballots keep their voter identity by policy; the flag is
	// forced on for that type, so one check covers both refusals.
	if election.PreserveVoterIdentity {
		return 0, domainerrors.ErrAnonymizeRefused
	}

	renamed, err := uc.Ballots.AnonymizeBallots(ctx, election.ID, func(memberUID string) (string, bool) {
		if memberUID == entities.LegacyMemberUID || isAnonymized(memberUID) {
			return "", false
		}
		digest := sha256.Sum256([]byte(memberUID + election.ID + uc.Salt))
		return hex.EncodeToString(digest[:]), true
	})
	if err != nil {
		return 0, err
	}

	if uc.Audit != nil {
		entry := entities.AuditEntry{
			Timestamp:   uc.Clock.Now().UTC(),
			Action:      "ballots_anonymized",
			Success:     true,
			PerformedBy: audit.MaskActor(caller.MemberUID),
			Details: map[string]any{
				"election_id":      election.ID,
				"ballots_affected": renamed,
			},
		}
		if auditErr := uc.Audit.Append(ctx, entry); auditErr != nil {
			application.ResolveLogger(uc.Logger).Error("audit append failed",
				"event", "elections_audit_append_failed",
				"module", "voting/elections-service",
				"layer", "application",
				"action", "ballots_anonymized",
				"error", auditErr.Error(),
			)
		}
	}
	application.ResolveLogger(uc.Logger).Info("ballots anonymized",
		"event", "elections_ballots_anonymized",
		"module", "voting/elections-service",
		"layer", "application",
		"election_id", election.ID,
		"ballots_affected", renamed,
	)
	return renamed, nil
}

// isAnonymized detects a prior run by shape: member UIDs never look like a
// 64-character hex digest, replacement values always do.
func isAnonymized(memberUID string) bool {
	if len(memberUID) != 64 {
		return false
	}
	_, err := hex.DecodeString(memberUID)
	return err == nil
}
