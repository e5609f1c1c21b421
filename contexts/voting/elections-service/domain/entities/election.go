package entities

import (
	"strings"
	"time"

	domainerrors "kosning/contexts/voting/elections-service/domain/errors"
)

type VotingType string

const (
	VotingTypeSingle    VotingType = "single-choice"
	VotingTypeMulti     VotingType = "multi-choice"
	VotingTypeRanked    VotingType = "ranked-choice"
	VotingTypeCommittee VotingType = "nomination-committee"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusPaused    Status = "paused"
	StatusClosed    Status = "closed"
	StatusArchived  Status = "archived"
)

type Eligibility string

const (
	EligibilityAll       Eligibility = "all"
	EligibilityMembers   Eligibility = "members"
	EligibilityAdmins    Eligibility = "admins"
	EligibilityCommittee Eligibility = "committee"
)

type RankedMethod string

const (
	RankedMethodSTV    RankedMethod = "stv"
	RankedMethodSimple RankedMethod = "simple"
)

type QuotaType string

const (
	QuotaDroop QuotaType = "droop"
	QuotaHare  QuotaType = "hare"
	QuotaNone  QuotaType = "none"
)

type Answer struct {
	ID   string
	Text string
}

// Election is the aggregate root of the elections schema. Structural fields
// are mutable only while Status is draft; Hidden is a soft-delete flag
// orthogonal to the state machine.
type Election struct {
	ID       string
	Title    string
	Question string

	Answers       []Answer
	VotingType    VotingType
	MaxSelections int
	SeatsToFill   int

	Eligibility         Eligibility
	CommitteeMemberUIDs []string

	Status Status
	Hidden bool

	ScheduledStart *time.Time
	ScheduledEnd   *time.Time

	PreserveVoterIdentity        bool
	RequiresJustification        bool
	JustificationRequiredForTopN int

	RankedMethod RankedMethod
	QuotaType    QuotaType

	RoundNumber      int
	ParentElectionID string

	CreatedBy string
	UpdatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ApplyDefaults fills the type-dependent defaults before validation:
// ranked-choice defaults to STV with a Droop quota; the simple method forces
// quota none; nomination-committee always preserves voter identity.
func (e *Election) ApplyDefaults() {
	if e.Status == "" {
		e.Status = StatusDraft
	}
	if e.RoundNumber < 1 {
		e.RoundNumber = 1
	}
	switch e.VotingType {
	case VotingTypeSingle:
		e.MaxSelections = 1
		e.SeatsToFill = 1
	case VotingTypeMulti:
		e.SeatsToFill = e.MaxSelections
	case VotingTypeRanked:
		e.MaxSelections = len(e.Answers)
		if e.RankedMethod == "" {
			e.RankedMethod = RankedMethodSTV
		}
		if e.RankedMethod == RankedMethodSimple {
			e.QuotaType = QuotaNone
		} else if e.QuotaType == "" {
			e.QuotaType = QuotaDroop
		}
	case VotingTypeCommittee:
		e.MaxSelections = len(e.Answers)
		e.Eligibility = EligibilityCommittee
		e.PreserveVoterIdentity = true
		if e.RankedMethod == "" {
			e.RankedMethod = RankedMethodSTV
		}
		if e.QuotaType == "" {
			e.QuotaType = QuotaDroop
		}
	}
}

// Validate enforces the structural rules on every write. The first
// violation is returned as a FieldError naming the offending field.
func (e *Election) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return domainerrors.FieldError{Field: "title", Reason: "must not be empty"}
	}
	if len(e.Answers) < 2 {
		return domainerrors.FieldError{Field: "answers", Reason: "at least two answers are required"}
	}
	seen := make(map[string]bool, len(e.Answers))
	for _, answer := range e.Answers {
		id := strings.TrimSpace(answer.ID)
		if id == "" {
			return domainerrors.FieldError{Field: "answers", Reason: "answer id must not be empty"}
		}
		if seen[id] {
			return domainerrors.FieldError{Field: "answers", Reason: "answer ids must be unique"}
		}
		seen[id] = true
	}

	switch e.VotingType {
	case VotingTypeSingle:
		if e.MaxSelections != 1 {
			return domainerrors.FieldError{Field: "max_selections", Reason: "single-choice requires max_selections = 1"}
		}
		if e.SeatsToFill != 1 {
			return domainerrors.FieldError{Field: "seats_to_fill", Reason: "single-choice requires seats_to_fill = 1"}
		}
	case VotingTypeMulti:
		if e.MaxSelections < 1 || e.MaxSelections > len(e.Answers) {
			return domainerrors.FieldError{Field: "max_selections", Reason: "must be between 1 and the answer count"}
		}
		if e.SeatsToFill != e.MaxSelections {
			return domainerrors.FieldError{Field: "seats_to_fill", Reason: "multi-choice requires seats_to_fill = max_selections"}
		}
	case VotingTypeRanked:
		if e.SeatsToFill < 1 || e.SeatsToFill >= len(e.Answers) {
			return domainerrors.FieldError{Field: "seats_to_fill", Reason: "must be at least 1 and below the answer count"}
		}
		if e.MaxSelections != len(e.Answers) {
			return domainerrors.FieldError{Field: "max_selections", Reason: "ranked-choice requires max_selections = answer count"}
		}
		if e.RankedMethod != RankedMethodSTV && e.RankedMethod != RankedMethodSimple {
			return domainerrors.FieldError{Field: "ranked_method", Reason: "must be stv or simple"}
		}
		if e.RankedMethod == RankedMethodSimple && e.QuotaType != QuotaNone {
			return domainerrors.FieldError{Field: "quota_type", Reason: "simple method requires quota none"}
		}
		if e.RankedMethod == RankedMethodSTV && e.QuotaType != QuotaDroop && e.QuotaType != QuotaHare {
			return domainerrors.FieldError{Field: "quota_type", Reason: "stv requires droop or hare"}
		}
	case VotingTypeCommittee:
		if e.Eligibility != EligibilityCommittee {
			return domainerrors.FieldError{Field: "eligibility", Reason: "nomination-committee requires committee eligibility"}
		}
		if !e.PreserveVoterIdentity {
			return domainerrors.FieldError{Field: "preserve_voter_identity", Reason: "nomination-committee ballots retain identity"}
		}
		if len(e.CommitteeMemberUIDs) == 0 {
			return domainerrors.FieldError{Field: "committee_member_uids", Reason: "must not be empty"}
		}
		if e.RequiresJustification &&
			(e.JustificationRequiredForTopN < 1 || e.JustificationRequiredForTopN > len(e.Answers)) {
			return domainerrors.FieldError{Field: "justification_required_for_top_n", Reason: "must be between 1 and the answer count"}
		}
	default:
		return domainerrors.FieldError{Field: "voting_type", Reason: "unknown voting type"}
	}

	if e.Eligibility == EligibilityCommittee && len(e.CommitteeMemberUIDs) == 0 {
		return domainerrors.FieldError{Field: "committee_member_uids", Reason: "must not be empty"}
	}
	if e.ScheduledStart != nil && e.ScheduledEnd != nil && !e.ScheduledStart.Before(*e.ScheduledEnd) {
		return domainerrors.FieldError{Field: "scheduled_start", Reason: "must be before scheduled_end"}
	}
	if e.RoundNumber < 1 {
		return domainerrors.FieldError{Field: "round_number", Reason: "must be at least 1"}
	}
	return nil
}

// AnswerIDs returns the declared answer ids in ballot-validation order.
func (e Election) AnswerIDs() map[string]bool {
	ids := make(map[string]bool, len(e.Answers))
	for _, answer := range e.Answers {
		ids[strings.TrimSpace(answer.ID)] = true
	}
	return ids
}

// IsCommitteeMember reports membership of the committee voter list.
func (e Election) IsCommitteeMember(memberUID string) bool {
	for _, uid := range e.CommitteeMemberUIDs {
		if strings.EqualFold(strings.TrimSpace(uid), strings.TrimSpace(memberUID)) {
			return true
		}
	}
	return false
}

// AcceptsBallots reports whether the state machine admits ballot recording.
func (e Election) AcceptsBallots() bool {
	return e.Status == StatusPublished
}

// transitions is the lifecycle state machine. hide/unhide are not
// transitions; they toggle the orthogonal Hidden flag.
var transitions = map[Status]map[string]Status{
	StatusDraft: {
		"publish": StatusPublished,
	},
	StatusPublished: {
		"pause": StatusPaused,
		"close": StatusClosed,
	},
	StatusPaused: {
		"resume": StatusPublished,
		"close":  StatusClosed,
	},
	StatusClosed: {
		"archive": StatusArchived,
	},
}

// NextStatus resolves a transition action against the current status.
func (e Election) NextStatus(action string) (Status, bool) {
	next, ok := transitions[e.Status][strings.ToLower(strings.TrimSpace(action))]
	return next, ok
}
