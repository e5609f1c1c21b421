package errors

import "errors"

var (
	ErrUnauthenticated    = errors.New("caller is not authenticated")
	ErrNotEligible        = errors.New("caller is not eligible for this election")
	ErrElectionNotFound   = errors.New("election not found")
	ErrElectionNotOpen    = errors.New("election is not open for token issuance")
	ErrTokenActive        = errors.New("an active token already exists for this election")
	ErrRegistrationFailed = errors.New("token registration with elections failed")
	ErrInvalidInput       = errors.New("invalid token request input")
	ErrResetForbidden     = errors.New("reset is not permitted in this deployment")
	ErrInvalidResetScope  = errors.New("reset scope must be mine or all")
	ErrConfirmRequired    = errors.New("reset all requires the confirmation phrase")
)
