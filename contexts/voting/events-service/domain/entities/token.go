package entities

import "time"

// VotingToken is the Events-side issuance record. The plaintext token is
// never stored; TokenHash is the SHA-256 hex digest used for lookups and for
// the Elections-side registration. Whether the token has been spent is not
// recorded here; only the Elections service knows that.
type VotingToken struct {
	TokenID    string
	MemberUID  string
	Kennitala  string // normalised, 10 digits
	ElectionID string
	TokenHash  string
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// Live reports whether the token still blocks a new issuance for the same
// (member, election) pair.
func (t VotingToken) Live(now time.Time) bool {
	return now.Before(t.ExpiresAt)
}

// TokenStatus is the member-facing view of their own issuance state.
type TokenStatus struct {
	HasToken  bool
	Used      bool
	ExpiresAt time.Time
}

// AuditEntry is an append-only record of a privilege-gated or state-changing
// operation. Details carry masked identifiers only.
type AuditEntry struct {
	Timestamp   time.Time
	Action      string
	Success     bool
	PerformedBy string // masked actor
	Details     map[string]any
}
