package errors

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated    = errors.New("caller is not authenticated")
	ErrForbidden          = errors.New("caller lacks the required role")
	ErrElectionNotFound   = errors.New("election not found")
	ErrElectionNotOpen    = errors.New("election is not open for voting")
	ErrElectionNotClosed  = errors.New("election is not closed")
	ErrNotEligible        = errors.New("caller is not eligible for this election")
	ErrAlreadyVoted       = errors.New("a ballot is already recorded for this member")
	ErrTokenNotFound      = errors.New("token hash is not registered")
	ErrTokenUsed          = errors.New("token has already been spent")
	ErrTokenConflict      = errors.New("token hash is registered with different state")
	ErrInvalidTransition  = errors.New("state transition is not allowed")
	ErrImmutablePublished = errors.New("structural fields are mutable only in draft")
	ErrAnonymizeRefused   = errors.New("anonymisation is not permitted for this election")
	ErrInvalidBallot      = errors.New("ballot payload is invalid")
	ErrValidation         = errors.New("election validation failed")
)

// FieldError names the offending field of a validation failure. It unwraps to
// ErrValidation so transports can map the whole family at once.
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e FieldError) Unwrap() error {
	return ErrValidation
}

// BallotError names the offending part of a rejected ballot and unwraps to
// ErrInvalidBallot.
type BallotError struct {
	Field  string
	Reason string
}

func (e BallotError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e BallotError) Unwrap() error {
	return ErrInvalidBallot
}
