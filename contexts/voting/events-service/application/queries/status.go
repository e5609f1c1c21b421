package queries

import (
	"context"
	"strings"

	"kosning/contexts/voting/events-service/domain/entities"
	domainerrors "kosning/contexts/voting/events-service/domain/errors"
	"kosning/contexts/voting/events-service/ports"
)

// StatusUseCase answers issuance questions. The local table only knows what
// was issued; whether a token has voted is read from the Elections service,
// which is the sole owner of spend state.
type StatusUseCase struct {
	Tokens    ports.TokenRepository
	Registrar ports.ElectionRegistrar
}

// MyStatus answers the member's own issuance state for one election.
func (uc StatusUseCase) MyStatus(ctx context.Context, memberUID string, electionID string) (entities.TokenStatus, error) {
	memberUID = strings.TrimSpace(memberUID)
	if memberUID == "" {
		return entities.TokenStatus{}, domainerrors.ErrUnauthenticated
	}
	token, found, err := uc.Tokens.GetToken(ctx, memberUID, strings.TrimSpace(electionID))
	if err != nil {
		return entities.TokenStatus{}, err
	}
	if !found {
		return entities.TokenStatus{}, nil
	}
	used, _, err := uc.Registrar.TokenStatus(ctx, token.TokenHash)
	if err != nil {
		return entities.TokenStatus{}, err
	}
	return entities.TokenStatus{
		HasToken:  true,
		Used:      used,
		ExpiresAt: token.ExpiresAt,
	}, nil
}

// TokenStats is the manager-facing issuance counter for one election.
type TokenStats struct {
	Issued int64
	Used   int64
}

func (uc StatusUseCase) Stats(ctx context.Context, electionID string) (TokenStats, error) {
	electionID = strings.TrimSpace(electionID)
	issued, err := uc.Tokens.CountIssued(ctx, electionID)
	if err != nil {
		return TokenStats{}, err
	}
	_, used, err := uc.Registrar.TokenUsage(ctx, electionID)
	if err != nil {
		return TokenStats{}, err
	}
	return TokenStats{Issued: issued, Used: used}, nil
}
