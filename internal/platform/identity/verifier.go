// Package identity bridges the external identity verifier. The verifier owns
// OIDC/eID concerns; this package only exchanges a bearer credential for a
// verified claim set and caches the result for the credential's lifetime.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jellydator/ttlcache/v3"

	"kosning/internal/shared/roles"
)

var (
	ErrUnauthenticated = errors.New("credential rejected by identity verifier")
	ErrUnavailable     = errors.New("identity verifier unavailable")
)

// Identity is the verified subject the rest of the system trusts.
type Identity struct {
	MemberUID string
	Kennitala string
	IsMember  bool
	Roles     []roles.Role
	ExpiresAt time.Time
}

type Verifier interface {
	Verify(ctx context.Context, credential string) (Identity, error)
}

// HTTPVerifier calls the external verifier endpoint. Verified claims are
// cached per credential; the cache entry never outlives the credential's own
// expiry, so local caching cannot extend trust.
type HTTPVerifier struct {
	baseURL    string
	client     *http.Client
	cache      *ttlcache.Cache[string, Identity]
	maxCacheTT time.Duration
	logger     *slog.Logger
}

func NewHTTPVerifier(baseURL string, maxCacheTTL time.Duration, logger *slog.Logger) *HTTPVerifier {
	if logger == nil {
		logger = slog.Default()
	}
	cache := ttlcache.New[string, Identity]()
	go cache.Start()
	return &HTTPVerifier{
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     &http.Client{Timeout: 5 * time.Second},
		cache:      cache,
		maxCacheTT: maxCacheTTL,
		logger:     logger,
	}
}

type verifierResponse struct {
	SubjectID string   `json:"subject_id"`
	Kennitala string   `json:"kennitala"`
	IsMember  bool     `json:"is_member"`
	Roles     []string `json:"roles"`
	ExpiresAt int64    `json:"expires_at"`
}

func (v *HTTPVerifier) Verify(ctx context.Context, credential string) (Identity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return Identity{}, ErrUnauthenticated
	}

	if item := v.cache.Get(credential); item != nil {
		cached := item.Value()
		if time.Now().Before(cached.ExpiresAt) {
			return cached, nil
		}
		v.cache.Delete(credential)
	}

	var identity Identity
	operation := func() error {
		resolved, err := v.verifyOnce(ctx, credential)
		if err != nil {
			if errors.Is(err, ErrUnauthenticated) {
				return backoff.Permanent(err)
			}
			return err
		}
		identity = resolved
		return nil
	}
	// One retry with jitter; a second failure maps to the caller as 401 per
	// the bounded-retry budget for verifier timeouts.
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 1), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			return Identity{}, ErrUnauthenticated
		}
		v.logger.Warn("identity verification failed after retry",
			"event", "identity_verify_failed",
			"module", "internal/platform/identity",
			"layer", "platform",
			"error", err.Error(),
		)
		return Identity{}, ErrUnauthenticated
	}

	ttl := time.Until(identity.ExpiresAt)
	if ttl > v.maxCacheTT {
		ttl = v.maxCacheTT
	}
	if ttl > 0 {
		v.cache.Set(credential, identity, ttl)
	}
	return identity, nil
}

func (v *HTTPVerifier) verifyOnce(ctx context.Context, credential string) (Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/verify", nil)
	if err != nil {
		return Identity{}, err
	}
	req.Header.Set("Authorization", "Bearer "+credential)

	resp, err := v.client.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Identity{}, ErrUnauthenticated
	default:
		return Identity{}, fmt.Errorf("%w: verifier returned %d", ErrUnavailable, resp.StatusCode)
	}

	var payload verifierResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Identity{}, fmt.Errorf("%w: decode verifier response: %v", ErrUnavailable, err)
	}
	if strings.TrimSpace(payload.SubjectID) == "" {
		return Identity{}, ErrUnauthenticated
	}

	expires := time.Unix(payload.ExpiresAt, 0)
	if payload.ExpiresAt == 0 {
		expires = time.Now().Add(time.Minute)
	}
	return Identity{
		MemberUID: strings.TrimSpace(payload.SubjectID),
		Kennitala: strings.TrimSpace(payload.Kennitala),
		IsMember:  payload.IsMember,
		Roles:     roles.Normalize(payload.Roles),
		ExpiresAt: expires,
	}, nil
}

// Stop releases the cache janitor goroutine.
func (v *HTTPVerifier) Stop() {
	v.cache.Stop()
}
