package entities

import "time"

// LegacyMemberUID marks token-path ballots that carry no member identity.
const LegacyMemberUID = "token-voter"

// Justification is the free-text rationale a committee voter attaches to a
// ranked candidate.
type Justification struct {
	AnswerID string
	Text     string
}

// Ballot is one recorded submission. Exactly one of AnswerID, Selections, or
// RankedAnswers is populated depending on the election's voting type.
// SubmittedAt is truncated to the minute before persistence.
type Ballot struct {
	ID         string
	ElectionID string
	TokenHash  string
	MemberUID  string

	AnswerID       string
	Selections     []string
	RankedAnswers  []string
	Justifications []Justification

	SubmittedAt time.Time
}

// RegisteredToken is the Elections-side token record. Only the hash crosses
// the service boundary; the member identity stays in the events schema.
type RegisteredToken struct {
	TokenHash    string
	ElectionID   string
	RegisteredAt time.Time
	Used         bool
	UsedAt       *time.Time
}

// AuditEntry mirrors the events-side audit shape; each service appends to its
// own table.
type AuditEntry struct {
	Timestamp   time.Time
	Action      string
	Success     bool
	PerformedBy string
	Details     map[string]any
}
