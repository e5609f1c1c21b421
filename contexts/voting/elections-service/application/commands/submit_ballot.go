package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	application "kosning/contexts/voting/elections-service/application"
	"kosning/contexts/voting/elections-service/domain/entities"
	domainerrors "kosning/contexts/voting/elections-service/domain/errors"
	"kosning/contexts/voting/elections-service/domain/services"
	"kosning/contexts/voting/elections-service/ports"
	"kosning/internal/shared/audit"
)

// SubmitBallotCommand is the member-keyed voting path, valid for every
// voting type.
type SubmitBallotCommand struct {
	Caller     services.Caller
	ElectionID string

	AnswerID       string
	Selections     []string
	RankedAnswers  []string
	Justifications []entities.Justification
}

// TokenBallotCommand is the legacy anonymous path: a one-time plaintext
// token instead of an identity, single-choice yes/no/abstain only.
type TokenBallotCommand struct {
	Token      string
	ElectionID string
	AnswerID   string
}

// BallotUseCase records ballots. One ballot per member per election is
// enforced twice: a preflight HasVoted check for a friendly error, and the
// unique index underneath for correctness under concurrency.
type BallotUseCase struct {
	Elections ports.ElectionRepository
	Ballots   ports.BallotRepository
	Tokens    ports.TokenRegistry
	Audit     ports.AuditLog
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

func (uc BallotUseCase) SubmitBallot(ctx context.Context, cmd SubmitBallotCommand) error {
	logger := application.ResolveLogger(uc.Logger)
	if strings.TrimSpace(cmd.Caller.MemberUID) == "" {
		return domainerrors.ErrUnauthenticated
	}

	election, found, err := uc.Elections.GetElection(ctx, strings.TrimSpace(cmd.ElectionID))
	if err != nil {
		return err
	}
	if !found {
		return domainerrors.ErrElectionNotFound
	}
	if err := services.CheckVoteAdmission(election, cmd.Caller); err != nil {
		logger.Warn("ballot refused",
			"event", "elections_ballot_refused",
			"module", "voting/elections-service",
			"layer", "application",
			"election_id", election.ID,
			"member_uid", audit.MaskActor(cmd.Caller.MemberUID),
			"error", err.Error(),
		)
		return err
	}

	ballot := entities.Ballot{
		ElectionID:     election.ID,
		MemberUID:      strings.TrimSpace(cmd.Caller.MemberUID),
		AnswerID:       strings.TrimSpace(cmd.AnswerID),
		Selections:     cmd.Selections,
		RankedAnswers:  cmd.RankedAnswers,
		Justifications: cmd.Justifications,
	}
	if err := validateBallot(election, ballot); err != nil {
		return err
	}

	voted, err := uc.Ballots.HasVoted(ctx, election.ID, ballot.MemberUID)
	if err != nil {
		return err
	}
	if voted {
		return domainerrors.ErrAlreadyVoted
	}

	ballot.ID, err = uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	ballot.SubmittedAt = uc.Clock.Now().UTC().Truncate(time.Minute)

	if err := uc.Ballots.InsertBallot(ctx, ballot); err != nil {
		return err
	}
	uc.appendAudit(ctx, "ballot_recorded", true, audit.MaskActor(ballot.MemberUID), map[string]any{
		"election_id": election.ID,
		"voting_type": string(election.VotingType),
	})
	logger.Info("ballot recorded",
		"event", "elections_ballot_recorded",
		"module", "voting/elections-service",
		"layer", "application",
		"election_id", election.ID,
		"voting_type", string(election.VotingType),
	)
	return nil
}

// SubmitTokenBallot spends a one-time token. The token row is locked and the
// ballot inserted in one transaction, so concurrent spends of the same token
// produce exactly one ballot.
func (uc BallotUseCase) SubmitTokenBallot(ctx context.Context, cmd TokenBallotCommand) error {
	token := strings.TrimSpace(cmd.Token)
	if token == "" {
		return domainerrors.BallotError{Field: "token", Reason: "must not be empty"}
	}
	digest := sha256.Sum256([]byte(token))
	tokenHash := hex.EncodeToString(digest[:])

	registered, found, err := uc.Tokens.GetRegisteredToken(ctx, tokenHash)
	if err != nil {
		return err
	}
	if !found {
		return domainerrors.ErrTokenNotFound
	}
	if registered.Used {
		return domainerrors.ErrTokenUsed
	}
	if electionID := strings.TrimSpace(cmd.ElectionID); electionID != "" && electionID != registered.ElectionID {
		return domainerrors.ErrTokenNotFound
	}

	election, found, err := uc.Elections.GetElection(ctx, registered.ElectionID)
	if err != nil {
		return err
	}
	if !found {
		return domainerrors.ErrElectionNotFound
	}
	if !election.AcceptsBallots() {
		return domainerrors.ErrElectionNotOpen
	}
	if err := validateLegacyElection(election); err != nil {
		return err
	}

	ballot := entities.Ballot{
		ElectionID: election.ID,
		TokenHash:  tokenHash,
		MemberUID:  entities.LegacyMemberUID,
		AnswerID:   strings.TrimSpace(cmd.AnswerID),
	}
	if err := validateBallot(election, ballot); err != nil {
		return err
	}
	ballot.ID, err = uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	now := uc.Clock.Now().UTC()
	ballot.SubmittedAt = now.Truncate(time.Minute)

	if err := uc.Tokens.ConsumeToken(ctx, tokenHash, ballot, now); err != nil {
		return err
	}
	uc.appendAudit(ctx, "ballot_recorded", true, "anonymous", map[string]any{
		"election_id": election.ID,
		"voting_type": string(election.VotingType),
		"token_hash":  audit.MaskHash(tokenHash),
	})
	return nil
}

func (uc BallotUseCase) appendAudit(ctx context.Context, action string, success bool, actor string, details map[string]any) {
	if uc.Audit == nil {
		return
	}
	entry := entities.AuditEntry{
		Timestamp:   uc.Clock.Now().UTC(),
		Action:      action,
		Success:     success,
		PerformedBy: actor,
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

// validateLegacyElection restricts the token path to simple yes/no/abstain
// questions. Everything richer requires the member-keyed path.
func validateLegacyElection(election entities.Election) error {
	if election.VotingType != entities.VotingTypeSingle {
		return domainerrors.BallotError{Field: "voting_type", Reason: "token voting supports single-choice elections only"}
	}
	for _, answer := range election.Answers {
		switch strings.ToLower(strings.TrimSpace(answer.ID)) {
		case "yes", "no", "abstain":
		default:
			return domainerrors.BallotError{Field: "voting_type", Reason: "token voting supports yes/no/abstain elections only"}
		}
	}
	return nil
}

// validateBallot is the per-type payload check. Exactly the fields of the
// election's voting type may be populated, every referenced answer must be
// declared, and committee ballots carry the required justifications.
func validateBallot(election entities.Election, ballot entities.Ballot) error {
	declared := election.AnswerIDs()

	switch election.VotingType {
	case entities.VotingTypeSingle:
		if len(ballot.Selections) > 0 || len(ballot.RankedAnswers) > 0 {
			return domainerrors.BallotError{Field: "answer_id", Reason: "single-choice ballots carry one answer only"}
		}
		if !declared[ballot.AnswerID] {
			return domainerrors.BallotError{Field: "answer_id", Reason: "answer is not declared on this election"}
		}
	case entities.VotingTypeMulti:
		if ballot.AnswerID != "" || len(ballot.RankedAnswers) > 0 {
			return domainerrors.BallotError{Field: "selections", Reason: "multi-choice ballots carry selections only"}
		}
		if len(ballot.Selections) < 1 || len(ballot.Selections) > election.MaxSelections {
			return domainerrors.BallotError{Field: "selections", Reason: "selection count must be between 1 and max_selections"}
		}
		if err := checkAnswerList(declared, ballot.Selections, "selections"); err != nil {
			return err
		}
	case entities.VotingTypeRanked, entities.VotingTypeCommittee:
		if ballot.AnswerID != "" || len(ballot.Selections) > 0 {
			return domainerrors.BallotError{Field: "ranked_answers", Reason: "ranked ballots carry a ranking only"}
		}
		if len(ballot.RankedAnswers) < 1 {
			return domainerrors.BallotError{Field: "ranked_answers", Reason: "ranking must not be empty"}
		}
		if err := checkAnswerList(declared, ballot.RankedAnswers, "ranked_answers"); err != nil {
			return err
		}
		if election.VotingType == entities.VotingTypeCommittee && election.RequiresJustification {
			if err := checkJustifications(election, ballot); err != nil {
				return err
			}
		}
	default:
		return domainerrors.BallotError{Field: "voting_type", Reason: "unknown voting type"}
	}
	return nil
}

func checkAnswerList(declared map[string]bool, answers []string, field string) error {
	seen := make(map[string]bool, len(answers))
	for _, answerID := range answers {
		if !declared[answerID] {
			return domainerrors.BallotError{Field: field, Reason: "answer is not declared on this election"}
		}
		if seen[answerID] {
			return domainerrors.BallotError{Field: field, Reason: "answers must not repeat"}
		}
		seen[answerID] = true
	}
	return nil
}

func checkJustifications(election entities.Election, ballot entities.Ballot) error {
	topN := election.JustificationRequiredForTopN
	if topN > len(ballot.RankedAnswers) {
		topN = len(ballot.RankedAnswers)
	}
	byAnswer := make(map[string]string, len(ballot.Justifications))
	for _, justification := range ballot.Justifications {
		byAnswer[justification.AnswerID] = strings.TrimSpace(justification.Text)
	}
	for _, answerID := range ballot.RankedAnswers[:topN] {
		if byAnswer[answerID] == "" {
			return domainerrors.BallotError{Field: "justifications", Reason: "top-ranked candidates require a justification"}
		}
	}
	return nil
}
