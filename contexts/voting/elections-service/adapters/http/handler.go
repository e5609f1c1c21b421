package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"kosning/contexts/voting/elections-service/application/commands"
	"kosning/contexts/voting/elections-service/application/queries"
	"kosning/contexts/voting/elections-service/domain/entities"
	domainerrors "kosning/contexts/voting/elections-service/domain/errors"
	"kosning/contexts/voting/elections-service/domain/services"
	httptransport "kosning/contexts/voting/elections-service/transport/http"
	"kosning/internal/platform/identity"
)

// Handler translates transport DTOs into application calls. Routing,
// authentication, and error rendering live in the platform HTTP server.
type Handler struct {
	Elections commands.ElectionUseCase
	Ballots   commands.BallotUseCase
	Registry  commands.RegistryUseCase
	Anonymize commands.AnonymizeUseCase
	Queries   queries.ElectionQueries
	Results   queries.ResultsQueries
	Logger    *slog.Logger
}

func toCaller(caller identity.Identity) services.Caller {
	return services.Caller{
		MemberUID: caller.MemberUID,
		IsMember:  caller.IsMember,
		Roles:     caller.Roles,
	}
}

func (h Handler) CreateElectionHandler(ctx context.Context, caller identity.Identity, req httptransport.ElectionRequest) (httptransport.ElectionResponse, error) {
	draft, err := electionFromRequest(req)
	if err != nil {
		return httptransport.ElectionResponse{}, err
	}
	created, err := h.Elections.CreateElection(ctx, toCaller(caller), draft)
	if err != nil {
		return httptransport.ElectionResponse{}, err
	}
	return electionToResponse(created), nil
}

func (h Handler) UpdateElectionHandler(ctx context.Context, caller identity.Identity, electionID string, req httptransport.ElectionRequest) (httptransport.ElectionResponse, error) {
	updated, err := electionFromRequest(req)
	if err != nil {
		return httptransport.ElectionResponse{}, err
	}
	saved, err := h.Elections.UpdateElection(ctx, toCaller(caller), electionID, updated)
	if err != nil {
		return httptransport.ElectionResponse{}, err
	}
	return electionToResponse(saved), nil
}

func (h Handler) TransitionHandler(ctx context.Context, caller identity.Identity, electionID string, req httptransport.TransitionRequest) (httptransport.ElectionResponse, error) {
	transitioned, err := h.Elections.TransitionElection(ctx, toCaller(caller), electionID, req.Action)
	if err != nil {
		return httptransport.ElectionResponse{}, err
	}
	return electionToResponse(transitioned), nil
}

func (h Handler) ListElectionsHandler(ctx context.Context, caller identity.Identity, includeHidden bool) ([]httptransport.ElectionResponse, error) {
	elections, err := h.Queries.ListElections(ctx, toCaller(caller), includeHidden)
	if err != nil {
		return nil, err
	}
	responses := make([]httptransport.ElectionResponse, 0, len(elections))
	for _, election := range elections {
		responses = append(responses, electionToResponse(election))
	}
	return responses, nil
}

func (h Handler) GetElectionHandler(ctx context.Context, caller identity.Identity, electionID string) (httptransport.ElectionResponse, error) {
	election, err := h.Queries.GetElection(ctx, toCaller(caller), electionID)
	if err != nil {
		return httptransport.ElectionResponse{}, err
	}
	return electionToResponse(election), nil
}

func (h Handler) HasVotedHandler(ctx context.Context, caller identity.Identity, electionID string) (httptransport.HasVotedResponse, error) {
	voted, err := h.Queries.HasVoted(ctx, toCaller(caller), electionID)
	if err != nil {
		return httptransport.HasVotedResponse{}, err
	}
	return httptransport.HasVotedResponse{HasVoted: voted}, nil
}

func (h Handler) SubmitBallotHandler(ctx context.Context, caller identity.Identity, electionID string, req httptransport.BallotRequest) (httptransport.BallotResponse, error) {
	err := h.Ballots.SubmitBallot(ctx, commands.SubmitBallotCommand{
		Caller:         toCaller(caller),
		ElectionID:     electionID,
		AnswerID:       req.AnswerID,
		Selections:     req.Selections,
		RankedAnswers:  req.RankedAnswers,
		Justifications: justificationsFromDTO(req.Justifications),
	})
	if err != nil {
		return httptransport.BallotResponse{}, err
	}
	return httptransport.BallotResponse{Recorded: true}, nil
}

func (h Handler) TokenBallotHandler(ctx context.Context, req httptransport.TokenBallotRequest) (httptransport.BallotResponse, error) {
	err := h.Ballots.SubmitTokenBallot(ctx, commands.TokenBallotCommand{
		Token:      req.Token,
		ElectionID: req.ElectionID,
		AnswerID:   req.AnswerID,
	})
	if err != nil {
		return httptransport.BallotResponse{}, err
	}
	return httptransport.BallotResponse{Recorded: true}, nil
}

func (h Handler) ResultsHandler(ctx context.Context, caller identity.Identity, electionID string) (httptransport.ResultsResponse, error) {
	results, err := h.Results.Results(ctx, toCaller(caller), electionID)
	if err != nil {
		return httptransport.ResultsResponse{}, err
	}
	return resultsToResponse(results), nil
}

func (h Handler) AnonymizeHandler(ctx context.Context, caller identity.Identity, electionID string) (httptransport.AnonymizeResponse, error) {
	affected, err := h.Anonymize.Anonymize(ctx, toCaller(caller), electionID)
	if err != nil {
		return httptransport.AnonymizeResponse{}, err
	}
	return httptransport.AnonymizeResponse{BallotsAffected: affected}, nil
}

func (h Handler) RegisterTokenHandler(ctx context.Context, req httptransport.RegisterTokenRequest) error {
	return h.Registry.RegisterTokenHash(ctx, req.ElectionID, req.TokenHash)
}

func (h Handler) UnregisterTokenHandler(ctx context.Context, req httptransport.UnregisterTokenRequest) error {
	return h.Registry.UnregisterTokenHash(ctx, req.ElectionID, req.TokenHash)
}

func (h Handler) S2SResetHandler(ctx context.Context) (httptransport.S2SResetResponse, error) {
	tokens, ballots, err := h.Registry.ResetAll(ctx)
	if err != nil {
		return httptransport.S2SResetResponse{}, err
	}
	return httptransport.S2SResetResponse{TokensDeleted: tokens, BallotsDeleted: ballots}, nil
}

// S2STokenStatusHandler reports the spend state of one registered hash. The
// events service reads it to answer my-status; the member behind the hash is
// unknown on this side.
func (h Handler) S2STokenStatusHandler(ctx context.Context, tokenHash string) (httptransport.S2STokenStatusResponse, error) {
	token, found, err := h.Registry.Tokens.GetRegisteredToken(ctx, tokenHash)
	if err != nil {
		return httptransport.S2STokenStatusResponse{}, err
	}
	if !found {
		return httptransport.S2STokenStatusResponse{}, domainerrors.ErrTokenNotFound
	}
	return httptransport.S2STokenStatusResponse{
		TokenHash:  token.TokenHash,
		ElectionID: token.ElectionID,
		Used:       token.Used,
	}, nil
}

func (h Handler) S2STokenStatsHandler(ctx context.Context, electionID string) (httptransport.S2STokenStatsResponse, error) {
	registered, used, err := h.Registry.Tokens.CountTokens(ctx, electionID)
	if err != nil {
		return httptransport.S2STokenStatsResponse{}, err
	}
	return httptransport.S2STokenStatsResponse{
		ElectionID: electionID,
		Registered: registered,
		Used:       used,
	}, nil
}

func (h Handler) S2SElectionHandler(ctx context.Context, electionID string) (httptransport.S2SElectionResponse, error) {
	election, found, err := h.Elections.Elections.GetElection(ctx, electionID)
	if err != nil {
		return httptransport.S2SElectionResponse{}, err
	}
	if !found {
		return httptransport.S2SElectionResponse{}, domainerrors.ErrElectionNotFound
	}
	return httptransport.S2SElectionResponse{
		ID:                  election.ID,
		Status:              string(election.Status),
		Hidden:              election.Hidden,
		Eligibility:         string(election.Eligibility),
		VotingType:          string(election.VotingType),
		CommitteeMemberUIDs: election.CommitteeMemberUIDs,
	}, nil
}

func electionFromRequest(req httptransport.ElectionRequest) (entities.Election, error) {
	election := entities.Election{
		Title:                        req.Title,
		Question:                     req.Question,
		VotingType:                   entities.VotingType(req.VotingType),
		MaxSelections:                req.MaxSelections,
		SeatsToFill:                  req.SeatsToFill,
		Eligibility:                  entities.Eligibility(req.Eligibility),
		CommitteeMemberUIDs:          req.CommitteeMemberUIDs,
		PreserveVoterIdentity:        req.PreserveVoterIdentity,
		RequiresJustification:        req.RequiresJustification,
		JustificationRequiredForTopN: req.JustificationRequiredForTopN,
		RankedMethod:                 entities.RankedMethod(req.RankedMethod),
		QuotaType:                    entities.QuotaType(req.QuotaType),
		RoundNumber:                  req.RoundNumber,
		ParentElectionID:             req.ParentElectionID,
	}
	for _, answer := range req.Answers {
		election.Answers = append(election.Answers, entities.Answer{ID: answer.ID, Text: answer.Text})
	}
	if req.Eligibility == "" {
		election.Eligibility = entities.EligibilityMembers
	}

	var err error
	if election.ScheduledStart, err = parseTimePtr(req.ScheduledStart, "scheduled_start"); err != nil {
		return entities.Election{}, err
	}
	if election.ScheduledEnd, err = parseTimePtr(req.ScheduledEnd, "scheduled_end"); err != nil {
		return entities.Election{}, err
	}
	return election, nil
}

func parseTimePtr(value *string, field string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, *value)
	if err != nil {
		return nil, domainerrors.FieldError{Field: field, Reason: "must be an RFC 3339 timestamp"}
	}
	parsed = parsed.UTC()
	return &parsed, nil
}

func electionToResponse(election entities.Election) httptransport.ElectionResponse {
	resp := httptransport.ElectionResponse{
		ID:                           election.ID,
		Title:                        election.Title,
		Question:                     election.Question,
		VotingType:                   string(election.VotingType),
		MaxSelections:                election.MaxSelections,
		SeatsToFill:                  election.SeatsToFill,
		Eligibility:                  string(election.Eligibility),
		CommitteeMemberUIDs:          election.CommitteeMemberUIDs,
		Status:                       string(election.Status),
		Hidden:                       election.Hidden,
		PreserveVoterIdentity:        election.PreserveVoterIdentity,
		RequiresJustification:        election.RequiresJustification,
		JustificationRequiredForTopN: election.JustificationRequiredForTopN,
		RankedMethod:                 string(election.RankedMethod),
		QuotaType:                    string(election.QuotaType),
		RoundNumber:                  election.RoundNumber,
		ParentElectionID:             election.ParentElectionID,
		CreatedAt:                    election.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:                    election.UpdatedAt.UTC().Format(time.RFC3339),
	}
	for _, answer := range election.Answers {
		resp.Answers = append(resp.Answers, httptransport.AnswerDTO{ID: answer.ID, Text: answer.Text})
	}
	if start := election.ScheduledStart; start != nil {
		formatted := start.UTC().Format(time.RFC3339)
		resp.ScheduledStart = &formatted
	}
	if end := election.ScheduledEnd; end != nil {
		formatted := end.UTC().Format(time.RFC3339)
		resp.ScheduledEnd = &formatted
	}
	return resp
}

func resultsToResponse(results queries.ElectionResults) httptransport.ResultsResponse {
	resp := httptransport.ResultsResponse{
		ElectionID:    results.ElectionID,
		VotingType:    string(results.VotingType),
		Status:        string(results.Status),
		TotalBallots:  results.Tally.TotalBallots,
		Winners:       results.Tally.Winners,
		Tied:          results.Tally.Tied,
		TieUnresolved: results.Tally.TieUnresolved,
		Quota:         results.Tally.Quota,
		Exhausted:     results.Tally.Exhausted,
	}
	for _, count := range results.Tally.Counts {
		resp.Counts = append(resp.Counts, httptransport.AnswerCountDTO{AnswerID: count.AnswerID, Count: count.Count})
	}
	for _, round := range results.Tally.Rounds {
		resp.Rounds = append(resp.Rounds, httptransport.RoundDTO{
			Number:    round.Number,
			Totals:    round.Totals,
			Action:    round.Action,
			Subject:   round.Subject,
			Transfer:  round.Transfer,
			Exhausted: round.Exhausted,
		})
	}
	for _, standing := range results.Standings {
		resp.Standings = append(resp.Standings, httptransport.CandidateStandingDTO{
			AnswerID:   standing.AnswerID,
			FirstPlace: standing.FirstPlace,
			MeanRank:   standing.MeanRank,
			RankedBy:   standing.RankedBy,
		})
	}
	for _, ballot := range results.NamedBallots {
		resp.NamedBallots = append(resp.NamedBallots, httptransport.NamedBallotDTO{
			MemberUID:      ballot.MemberUID,
			RankedAnswers:  ballot.RankedAnswers,
			Justifications: justificationsToDTO(ballot.Justifications),
		})
	}
	return resp
}

func justificationsFromDTO(dtos []httptransport.JustificationDTO) []entities.Justification {
	justifications := make([]entities.Justification, 0, len(dtos))
	for _, dto := range dtos {
		justifications = append(justifications, entities.Justification{AnswerID: dto.AnswerID, Text: dto.Text})
	}
	return justifications
}

func justificationsToDTO(justifications []entities.Justification) []httptransport.JustificationDTO {
	dtos := make([]httptransport.JustificationDTO, 0, len(justifications))
	for _, justification := range justifications {
		dtos = append(dtos, httptransport.JustificationDTO{AnswerID: justification.AnswerID, Text: justification.Text})
	}
	return dtos
}
