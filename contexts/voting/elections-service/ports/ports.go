package ports

import (
	"context"
	"time"

	"kosning/contexts/voting/elections-service/domain/entities"
)

// ElectionRepository owns the elections_elections table.
type ElectionRepository interface {
	SaveElection(ctx context.Context, election entities.Election) error
	GetElection(ctx context.Context, electionID string) (entities.Election, bool, error)
	ListElections(ctx context.Context) ([]entities.Election, error)
}

// TokenRegistry owns the elections_registered_tokens table. RegisterToken is
// idempotent on the identical (token_hash, election_id) pair; a hash held by
// another election or already spent returns ErrTokenConflict. ConsumeToken
// runs the legacy voting path in one transaction: lock the token row, fail if
// spent, insert the ballot, mark the token used. Exactly one caller wins
// under concurrency.
type TokenRegistry interface {
	RegisterToken(ctx context.Context, tokenHash string, electionID string, now time.Time) error
	GetRegisteredToken(ctx context.Context, tokenHash string) (entities.RegisteredToken, bool, error)
	DeleteToken(ctx context.Context, tokenHash string, electionID string) (int64, error)
	ConsumeToken(ctx context.Context, tokenHash string, ballot entities.Ballot, now time.Time) error
	CountTokens(ctx context.Context, electionID string) (registered int64, used int64, err error)
	DeleteStaleUnused(ctx context.Context, registeredBefore time.Time) ([]string, error)
	DeleteAllTokens(ctx context.Context) (int64, error)
}

// BallotRepository owns the elections_ballots table. InsertBallot maps the
// unique (election_id, member_uid) violation to ErrAlreadyVoted. HasVoted is
// deliberately boolean-only; ballots never flow back to the read side with
// member identifiers attached except through ListBallots, which only the
// committee results renderer uses.
type BallotRepository interface {
	InsertBallot(ctx context.Context, ballot entities.Ballot) error
	HasVoted(ctx context.Context, electionID string, memberUID string) (bool, error)
	ListBallots(ctx context.Context, electionID string) ([]entities.Ballot, error)
	AnonymizeBallots(ctx context.Context, electionID string, rename func(memberUID string) (string, bool)) (int64, error)
	DeleteBallots(ctx context.Context, electionIDs []string) (int64, error)
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
