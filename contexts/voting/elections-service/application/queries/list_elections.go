package queries

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"kosning/contexts/voting/elections-service/domain/entities"
	domainerrors "kosning/contexts/voting/elections-service/domain/errors"
	"kosning/contexts/voting/elections-service/domain/services"
	"kosning/contexts/voting/elections-service/ports"
	"kosning/internal/shared/roles"
)

// ElectionQueries is the read side of the election aggregate.
type ElectionQueries struct {
	Elections ports.ElectionRepository
	Ballots   ports.BallotRepository
	Logger    *slog.Logger
}

// ListElections returns the elections the caller may observe, newest first.
// Hidden elections appear only for managers, and only on request.
func (q ElectionQueries) ListElections(ctx context.Context, caller services.Caller, includeHidden bool) ([]entities.Election, error) {
	elections, err := q.Elections.ListElections(ctx)
	if err != nil {
		return nil, err
	}
	manager := roles.IsManager(caller.Roles)
	visible := make([]entities.Election, 0, len(elections))
	for _, election := range elections {
		if election.Hidden && (!manager || !includeHidden) {
			continue
		}
		visible = append(visible, election)
	}
	sort.Slice(visible, func(i, j int) bool {
		return visible[i].CreatedAt.After(visible[j].CreatedAt)
	})
	return visible, nil
}

// GetElection returns one election subject to the visibility rule: a hidden
// election does not exist for non-managers.
func (q ElectionQueries) GetElection(ctx context.Context, caller services.Caller, electionID string) (entities.Election, error) {
	election, found, err := q.Elections.GetElection(ctx, strings.TrimSpace(electionID))
	if err != nil {
		return entities.Election{}, err
	}
	if !found || !services.CanSee(election, caller) {
		return entities.Election{}, domainerrors.ErrElectionNotFound
	}
	return election, nil
}

// HasVoted reports whether the caller already holds a recorded ballot.
func (q ElectionQueries) HasVoted(ctx context.Context, caller services.Caller, electionID string) (bool, error) {
	if strings.TrimSpace(caller.MemberUID) == "" {
		return false, domainerrors.ErrUnauthenticated
	}
	election, err := q.GetElection(ctx, caller, electionID)
	if err != nil {
		return false, err
	}
	return q.Ballots.HasVoted(ctx, election.ID, caller.MemberUID)
}
