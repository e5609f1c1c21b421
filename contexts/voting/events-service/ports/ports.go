package ports

import (
	"context"
	"time"

	"kosning/contexts/voting/events-service/domain/entities"
)

// TokenRepository owns the events_voting_tokens table. ReplaceToken runs the
// whole mint sequence in one transaction: lock the (member_uid, election_id)
// row, fail if a live token exists, delete any stale token, insert the fresh
// row, then call beforeCommit. The transaction commits only after
// beforeCommit returns nil, which is how the Elections acknowledgement is
// ordered ahead of the local commit.
type TokenRepository interface {
	ReplaceToken(ctx context.Context, token entities.VotingToken, now time.Time, beforeCommit func(context.Context) error) error
	GetToken(ctx context.Context, memberUID string, electionID string) (entities.VotingToken, bool, error)
	DeleteToken(ctx context.Context, memberUID string, electionID string) (int64, error)
	DeleteAllTokens(ctx context.Context) (int64, error)
	CountIssued(ctx context.Context, electionID string) (int64, error)
}

// ElectionSummary is the slice of Elections state the Events service may see,
// obtained over S2S rather than by reading the elections schema.
type ElectionSummary struct {
	ID                  string
	Status              string
	Hidden              bool
	Eligibility         string
	VotingType          string
	CommitteeMemberUIDs []string
}

// ElectionRegistrar is the S2S client into the Elections service. Spend
// state lives only there, so TokenStatus and TokenUsage are how this service
// learns whether a hash it issued has voted.
type ElectionRegistrar interface {
	GetElection(ctx context.Context, electionID string) (ElectionSummary, error)
	RegisterTokenHash(ctx context.Context, electionID string, tokenHash string) error
	UnregisterTokenHash(ctx context.Context, electionID string, tokenHash string) error
	TokenStatus(ctx context.Context, tokenHash string) (used bool, found bool, err error)
	TokenUsage(ctx context.Context, electionID string) (registered int64, used int64, err error)
	ResetAll(ctx context.Context) error
}

type AuditLog interface {
	Append(ctx context.Context, entry entities.AuditEntry) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// TokenSource mints the plaintext token and its lookup digest. The plaintext
// carries at least 128 bits of cryptographic randomness and leaves the
// process exactly once, in the issuance response.
type TokenSource interface {
	NewToken() (plaintext string, hash string, err error)
}
