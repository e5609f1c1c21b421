package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type AnswerDTO struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type ElectionRequest struct {
	Title    string `json:"title"`
	Question string `json:"question"`

	Answers       []AnswerDTO `json:"answers"`
	VotingType    string      `json:"voting_type"`
	MaxSelections int         `json:"max_selections,omitempty"`
	SeatsToFill   int         `json:"seats_to_fill,omitempty"`

	Eligibility         string   `json:"eligibility"`
	CommitteeMemberUIDs []string `json:"committee_member_uids,omitempty"`

	ScheduledStart *string `json:"scheduled_start,omitempty"`
	ScheduledEnd   *string `json:"scheduled_end,omitempty"`

	PreserveVoterIdentity        bool `json:"preserve_voter_identity"`
	RequiresJustification        bool `json:"requires_justification,omitempty"`
	JustificationRequiredForTopN int  `json:"justification_required_for_top_n,omitempty"`

	RankedMethod string `json:"ranked_method,omitempty"`
	QuotaType    string `json:"quota_type,omitempty"`

	RoundNumber      int    `json:"round_number,omitempty"`
	ParentElectionID string `json:"parent_election_id,omitempty"`
}

type ElectionResponse struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Question string `json:"question"`

	Answers       []AnswerDTO `json:"answers"`
	VotingType    string      `json:"voting_type"`
	MaxSelections int         `json:"max_selections"`
	SeatsToFill   int         `json:"seats_to_fill"`

	Eligibility         string   `json:"eligibility"`
	CommitteeMemberUIDs []string `json:"committee_member_uids,omitempty"`

	Status string `json:"status"`
	Hidden bool   `json:"hidden"`

	ScheduledStart *string `json:"scheduled_start,omitempty"`
	ScheduledEnd   *string `json:"scheduled_end,omitempty"`

	PreserveVoterIdentity        bool `json:"preserve_voter_identity"`
	RequiresJustification        bool `json:"requires_justification,omitempty"`
	JustificationRequiredForTopN int  `json:"justification_required_for_top_n,omitempty"`

	RankedMethod string `json:"ranked_method,omitempty"`
	QuotaType    string `json:"quota_type,omitempty"`

	RoundNumber      int    `json:"round_number"`
	ParentElectionID string `json:"parent_election_id,omitempty"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type TransitionRequest struct {
	Action string `json:"action"`
}

type JustificationDTO struct {
	AnswerID string `json:"answer_id"`
	Text     string `json:"text"`
}

type BallotRequest struct {
	AnswerID       string             `json:"answer_id,omitempty"`
	Selections     []string           `json:"selections,omitempty"`
	RankedAnswers  []string           `json:"ranked_answers,omitempty"`
	Justifications []JustificationDTO `json:"justifications,omitempty"`
}

type TokenBallotRequest struct {
	Token      string `json:"token"`
	ElectionID string `json:"election_id,omitempty"`
	AnswerID   string `json:"answer_id"`
}

type BallotResponse struct {
	Recorded    bool   `json:"recorded"`
	SubmittedAt string `json:"submitted_at,omitempty"`
}

type HasVotedResponse struct {
	HasVoted bool `json:"has_voted"`
}

type AnswerCountDTO struct {
	AnswerID string `json:"answer_id"`
	Count    int    `json:"count"`
}

type RoundDTO struct {
	Number    int                `json:"number"`
	Totals    map[string]float64 `json:"totals"`
	Action    string             `json:"action"`
	Subject   string             `json:"subject,omitempty"`
	Transfer  float64            `json:"transfer,omitempty"`
	Exhausted float64            `json:"exhausted"`
}

type CandidateStandingDTO struct {
	AnswerID   string  `json:"answer_id"`
	FirstPlace int     `json:"first_place"`
	MeanRank   float64 `json:"mean_rank"`
	RankedBy   int     `json:"ranked_by"`
}

type NamedBallotDTO struct {
	MemberUID      string             `json:"member_uid"`
	RankedAnswers  []string           `json:"ranked_answers"`
	Justifications []JustificationDTO `json:"justifications,omitempty"`
}

type ResultsResponse struct {
	ElectionID    string           `json:"election_id"`
	VotingType    string           `json:"voting_type"`
	Status        string           `json:"status"`
	TotalBallots  int              `json:"total_ballots"`
	Counts        []AnswerCountDTO `json:"counts,omitempty"`
	Winners       []string         `json:"winners,omitempty"`
	Tied          []string         `json:"tied,omitempty"`
	TieUnresolved bool             `json:"tie_unresolved,omitempty"`

	Quota     float64    `json:"quota,omitempty"`
	Rounds    []RoundDTO `json:"rounds,omitempty"`
	Exhausted float64    `json:"exhausted,omitempty"`

	Standings    []CandidateStandingDTO `json:"standings,omitempty"`
	NamedBallots []NamedBallotDTO       `json:"named_ballots,omitempty"`
}

type AnonymizeResponse struct {
	BallotsAffected int64 `json:"ballots_affected"`
}

type RegisterTokenRequest struct {
	ElectionID string `json:"election_id"`
	TokenHash  string `json:"token_hash"`
}

type UnregisterTokenRequest struct {
	ElectionID string `json:"election_id"`
	TokenHash  string `json:"token_hash"`
}

type S2SResetResponse struct {
	TokensDeleted  int64 `json:"tokens_deleted"`
	BallotsDeleted int64 `json:"ballots_deleted"`
}

type S2STokenStatusResponse struct {
	TokenHash  string `json:"token_hash"`
	ElectionID string `json:"election_id"`
	Used       bool   `json:"used"`
}

type S2STokenStatsResponse struct {
	ElectionID string `json:"election_id,omitempty"`
	Registered int64  `json:"registered"`
	Used       int64  `json:"used"`
}

type S2SElectionResponse struct {
	ID                  string   `json:"id"`
	Status              string   `json:"status"`
	Hidden              bool     `json:"hidden"`
	Eligibility         string   `json:"eligibility"`
	VotingType          string   `json:"voting_type"`
	CommitteeMemberUIDs []string `json:"committee_member_uids,omitempty"`
}
