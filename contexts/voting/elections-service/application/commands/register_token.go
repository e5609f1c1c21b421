package commands

import (
	"context"
	"log/slog"
	"strings"

	application "kosning/contexts/voting/elections-service/application"
	"kosning/contexts/voting/elections-service/domain/entities"
	domainerrors "kosning/contexts/voting/elections-service/domain/errors"
	"kosning/contexts/voting/elections-service/ports"
	"kosning/internal/shared/audit"
)

// RegistryUseCase is the inbound S2S surface: token hash registration and
// the cross-schema reset. Only hashes cross this boundary; the member
// identity behind a token never reaches this service.
type RegistryUseCase struct {
	Elections ports.ElectionRepository
	Tokens    ports.TokenRegistry
	Ballots   ports.BallotRepository
	Audit     ports.AuditLog
	Clock     ports.Clock
	Logger    *slog.Logger
}

// RegisterTokenHash records a hash for a published election. Re-registering
// the identical (hash, election) pair is a no-op so the Events-side retry is
// safe; a hash bound elsewhere or already spent is refused.
func (uc RegistryUseCase) RegisterTokenHash(ctx context.Context, electionID string, tokenHash string) error {
	electionID = strings.TrimSpace(electionID)
	tokenHash = strings.TrimSpace(tokenHash)
	if electionID == "" || tokenHash == "" {
		return domainerrors.BallotError{Field: "token_hash", Reason: "election id and token hash are required"}
	}

	election, found, err := uc.Elections.GetElection(ctx, electionID)
	if err != nil {
		return err
	}
	if !found {
		return domainerrors.ErrElectionNotFound
	}
	if !election.AcceptsBallots() {
		return domainerrors.ErrElectionNotOpen
	}

	if err := uc.Tokens.RegisterToken(ctx, tokenHash, electionID, uc.Clock.Now().UTC()); err != nil {
		return err
	}
	application.ResolveLogger(uc.Logger).Info("token hash registered",
		"event", "elections_token_registered",
		"module", "voting/elections-service",
		"layer", "application",
		"election_id", electionID,
		"token_hash", audit.MaskHash(tokenHash),
	)
	return nil
}

// UnregisterTokenHash backs the Events reset-mine propagation. Spent tokens
// stay put; only an unused hash may disappear.
func (uc RegistryUseCase) UnregisterTokenHash(ctx context.Context, electionID string, tokenHash string) error {
	tokenHash = strings.TrimSpace(tokenHash)
	token, found, err := uc.Tokens.GetRegisteredToken(ctx, tokenHash)
	if err != nil {
		return err
	}
	if !found {
		return domainerrors.ErrTokenNotFound
	}
	if token.Used {
		return domainerrors.ErrTokenUsed
	}
	if _, err := uc.Tokens.DeleteToken(ctx, tokenHash, strings.TrimSpace(electionID)); err != nil {
		return err
	}
	return nil
}

// ResetAll clears every registered token and the ballots of elections that
// are not yet closed or archived. Closed results are never touched.
func (uc RegistryUseCase) ResetAll(ctx context.Context) (tokens int64, ballots int64, err error) {
	elections, err := uc.Elections.ListElections(ctx)
	if err != nil {
		return 0, 0, err
	}
	var openIDs []string
	for _, election := range elections {
		if election.Status == entities.StatusClosed || election.Status == entities.StatusArchived {
			continue
		}
		openIDs = append(openIDs, election.ID)
	}

	ballots, err = uc.Ballots.DeleteBallots(ctx, openIDs)
	if err != nil {
		return 0, 0, err
	}
	tokens, err = uc.Tokens.DeleteAllTokens(ctx)
	if err != nil {
		return 0, ballots, err
	}

	if uc.Audit != nil {
		entry := entities.AuditEntry{
			Timestamp:   uc.Clock.Now().UTC(),
			Action:      "reset_all",
			Success:     true,
			PerformedBy: "events-service",
			Details: map[string]any{
				"tokens_deleted":  tokens,
				"ballots_deleted": ballots,
			},
		}
		if auditErr := uc.Audit.Append(ctx, entry); auditErr != nil {
			application.ResolveLogger(uc.Logger).Error("audit append failed",
				"event", "elections_audit_append_failed",
				"module", "voting/elections-service",
				"layer", "application",
				"action", "reset_all",
				"error", auditErr.Error(),
			)
		}
	}
	return tokens, ballots, nil
}
