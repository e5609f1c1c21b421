// Package s2sadapter is the HTTP client for the Elections S2S surface,
// authenticated by the shared secret header.
package s2sadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	domainerrors "kosning/contexts/voting/events-service/domain/errors"
	"kosning/contexts/voting/events-service/ports"
)

const secretHeader = "X-S2S-Secret"

type Client struct {
	baseURL string
	secret  string
	client  *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL string, secret string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		client:  &http.Client{Timeout: 5 * time.Second},
		logger:  logger,
	}
}

type electionSummaryDTO struct {
	ID                  string   `json:"id"`
	Status              string   `json:"status"`
	Hidden              bool     `json:"hidden"`
	Eligibility         string   `json:"eligibility"`
	VotingType          string   `json:"voting_type"`
	CommitteeMemberUIDs []string `json:"committee_member_uids"`
}

func (c *Client) GetElection(ctx context.Context, electionID string) (ports.ElectionSummary, error) {
	var dto electionSummaryDTO
	err := c.do(ctx, http.MethodGet, "/s2s/v1/elections/"+electionID, nil, &dto)
	if err != nil {
		return ports.ElectionSummary{}, err
	}
	return ports.ElectionSummary{
		ID:                  dto.ID,
		Status:              dto.Status,
		Hidden:              dto.Hidden,
		Eligibility:         dto.Eligibility,
		VotingType:          dto.VotingType,
		CommitteeMemberUIDs: dto.CommitteeMemberUIDs,
	}, nil
}

func (c *Client) RegisterTokenHash(ctx context.Context, electionID string, tokenHash string) error {
	payload := map[string]string{
		"election_id": electionID,
		"token_hash":  tokenHash,
	}
	// One retry with jitter, then the failure surfaces to the caller and the
	// mint transaction rolls back.
	operation := func() error {
		err := c.do(ctx, http.MethodPost, "/s2s/v1/token", payload, nil)
		if errors.Is(err, domainerrors.ErrElectionNotFound) || errors.Is(err, domainerrors.ErrElectionNotOpen) {
			return backoff.Permanent(err)
		}
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 1), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		if errors.Is(err, domainerrors.ErrElectionNotFound) || errors.Is(err, domainerrors.ErrElectionNotOpen) {
			return err
		}
		c.logger.Warn("token hash registration failed",
			"event", "events_s2s_register_failed",
			"module", "voting/events-service",
			"layer", "adapter",
			"election_id", electionID,
			"error", err.Error(),
		)
		return domainerrors.ErrRegistrationFailed
	}
	return nil
}

func (c *Client) UnregisterTokenHash(ctx context.Context, electionID string, tokenHash string) error {
	payload := map[string]string{
		"election_id": electionID,
		"token_hash":  tokenHash,
	}
	return c.do(ctx, http.MethodDelete, "/s2s/v1/token", payload, nil)
}

type tokenStatusDTO struct {
	TokenHash  string `json:"token_hash"`
	ElectionID string `json:"election_id"`
	Used       bool   `json:"used"`
}

// TokenStatus reads the spend state of one hash. An unknown hash is not an
// error: it reports found=false so status reads degrade to "not used" when
// the sweep has already reaped the registration.
func (c *Client) TokenStatus(ctx context.Context, tokenHash string) (bool, bool, error) {
	var dto tokenStatusDTO
	err := c.do(ctx, http.MethodGet, "/s2s/v1/token/"+tokenHash, nil, &dto)
	if errors.Is(err, domainerrors.ErrElectionNotFound) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return dto.Used, true, nil
}

type tokenStatsDTO struct {
	Registered int64 `json:"registered"`
	Used       int64 `json:"used"`
}

func (c *Client) TokenUsage(ctx context.Context, electionID string) (int64, int64, error) {
	path := "/s2s/v1/token-stats"
	if strings.TrimSpace(electionID) != "" {
		path += "?election_id=" + url.QueryEscape(strings.TrimSpace(electionID))
	}
	var dto tokenStatsDTO
	if err := c.do(ctx, http.MethodGet, path, nil, &dto); err != nil {
		return 0, 0, err
	}
	return dto.Registered, dto.Used, nil
}

func (c *Client) ResetAll(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/s2s/v1/reset", nil, nil)
}

func (c *Client) do(ctx context.Context, method string, path string, payload any, out any) error {
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(secretHeader, c.secret)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domainerrors.ErrRegistrationFailed, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
	case http.StatusNotFound:
		return domainerrors.ErrElectionNotFound
	case http.StatusConflict:
		return domainerrors.ErrElectionNotOpen
	default:
		return fmt.Errorf("%w: elections returned %d", domainerrors.ErrRegistrationFailed, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode s2s response: %w", err)
		}
	}
	return nil
}

var _ ports.ElectionRegistrar = (*Client)(nil)
