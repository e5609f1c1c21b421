package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"kosning/contexts/voting/events-service/application/commands"
	"kosning/contexts/voting/events-service/application/queries"
	httptransport "kosning/contexts/voting/events-service/transport/http"
	"kosning/internal/platform/identity"
)

type Handler struct {
	Tokens commands.TokenUseCase
	Resets commands.ResetUseCase
	Status queries.StatusUseCase
	Logger *slog.Logger
}

func (h Handler) RequestTokenHandler(ctx context.Context, caller identity.Identity, req httptransport.RequestTokenRequest) (httptransport.RequestTokenResponse, error) {
	result, err := h.Tokens.IssueToken(ctx, commands.IssueTokenCommand{
		MemberUID:  caller.MemberUID,
		Kennitala:  caller.Kennitala,
		IsMember:   caller.IsMember,
		Roles:      caller.Roles,
		ElectionID: req.ElectionID,
	})
	if err != nil {
		return httptransport.RequestTokenResponse{}, err
	}
	return httptransport.RequestTokenResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt.UTC().Format(time.RFC3339),
	}, nil
}

func (h Handler) MyStatusHandler(ctx context.Context, caller identity.Identity, electionID string) (httptransport.MyStatusResponse, error) {
	status, err := h.Status.MyStatus(ctx, caller.MemberUID, electionID)
	if err != nil {
		return httptransport.MyStatusResponse{}, err
	}
	resp := httptransport.MyStatusResponse{
		HasToken: status.HasToken,
		Used:     status.Used,
	}
	if status.HasToken {
		resp.ExpiresAt = status.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return resp, nil
}

func (h Handler) ResetHandler(ctx context.Context, caller identity.Identity, req httptransport.ResetRequest) (httptransport.ResetResponse, error) {
	result, err := h.Resets.Reset(ctx, commands.ResetCommand{
		MemberUID:  caller.MemberUID,
		Roles:      caller.Roles,
		ElectionID: req.ElectionID,
		Scope:      req.Scope,
		Confirm:    req.Confirm,
	})
	if err != nil {
		return httptransport.ResetResponse{}, err
	}
	return httptransport.ResetResponse{TokensDeleted: result.TokensDeleted}, nil
}

func (h Handler) TokenStatsHandler(ctx context.Context, electionID string) (httptransport.TokenStatsResponse, error) {
	stats, err := h.Status.Stats(ctx, electionID)
	if err != nil {
		return httptransport.TokenStatsResponse{}, err
	}
	return httptransport.TokenStatsResponse{
		ElectionID: electionID,
		Issued:     stats.Issued,
		Used:       stats.Used,
	}, nil
}
