package queries

import (
	"context"
	"log/slog"
	"strings"

	"kosning/contexts/voting/elections-service/domain/entities"
	domainerrors "kosning/contexts/voting/elections-service/domain/errors"
	"kosning/contexts/voting/elections-service/domain/services"
	"kosning/contexts/voting/elections-service/domain/services/tally"
	"kosning/contexts/voting/elections-service/ports"
)

// NamedBallot is the committee rendering of one ballot: the voter stays
// attached by policy, justifications included.
type NamedBallot struct {
	MemberUID      string
	RankedAnswers  []string
	Justifications []entities.Justification
}

// ElectionResults is the full tabulation payload for one election.
type ElectionResults struct {
	ElectionID string
	VotingType entities.VotingType
	Status     entities.Status
	Tally      tally.Result

	Standings    []tally.CandidateStanding
	NamedBallots []NamedBallot
}

// ResultsQueries recomputes the tally from stored ballots on every read.
type ResultsQueries struct {
	Elections ports.ElectionRepository
	Ballots   ports.BallotRepository
	Logger    *slog.Logger
}

func (q ResultsQueries) Results(ctx context.Context, caller services.Caller, electionID string) (ElectionResults, error) {
	election, found, err := q.Elections.GetElection(ctx, strings.TrimSpace(electionID))
	if err != nil {
		return ElectionResults{}, err
	}
	if !found || !services.CanSee(election, caller) {
		return ElectionResults{}, domainerrors.ErrElectionNotFound
	}
	if !services.CanReadResults(election, caller) {
		return ElectionResults{}, domainerrors.ErrForbidden
	}

	ballots, err := q.Ballots.ListBallots(ctx, election.ID)
	if err != nil {
		return ElectionResults{}, err
	}

	answerIDs := make([]string, 0, len(election.Answers))
	for _, answer := range election.Answers {
		answerIDs = append(answerIDs, strings.TrimSpace(answer.ID))
	}

	results := ElectionResults{
		ElectionID: election.ID,
		VotingType: election.VotingType,
		Status:     election.Status,
	}

	switch election.VotingType {
	case entities.VotingTypeSingle:
		choices := make([]string, 0, len(ballots))
		for _, ballot := range ballots {
			choices = append(choices, ballot.AnswerID)
		}
		results.Tally = tally.Plurality(answerIDs, choices)
	case entities.VotingTypeMulti:
		selections := make([][]string, 0, len(ballots))
		for _, ballot := range ballots {
			selections = append(selections, ballot.Selections)
		}
		results.Tally = tally.Approval(answerIDs, selections, election.MaxSelections)
	case entities.VotingTypeRanked, entities.VotingTypeCommittee:
		rankings := make([][]string, 0, len(ballots))
		for _, ballot := range ballots {
			rankings = append(rankings, ballot.RankedAnswers)
		}
		if election.RankedMethod == entities.RankedMethodSimple {
			results.Tally = tally.SimpleRanked(answerIDs, rankings, election.SeatsToFill)
		} else {
			results.Tally = tally.STV(answerIDs, rankings, election.SeatsToFill, quotaFor(election.QuotaType))
		}
		if election.VotingType == entities.VotingTypeCommittee {
			results.Standings = tally.CommitteeStandings(answerIDs, rankings)
			results.NamedBallots = namedBallots(ballots)
		}
	}
	return results, nil
}

func quotaFor(quotaType entities.QuotaType) tally.QuotaFunc {
	if quotaType == entities.QuotaHare {
		return tally.HareQuota
	}
	return tally.DroopQuota
}

func namedBallots(ballots []entities.Ballot) []NamedBallot {
	named := make([]NamedBallot, 0, len(ballots))
	for _, ballot := range ballots {
		named = append(named, NamedBallot{
			MemberUID:      ballot.MemberUID,
			RankedAnswers:  ballot.RankedAnswers,
			Justifications: ballot.Justifications,
		})
	}
	return named
}
