package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"kosning/contexts/voting/elections-service/domain/entities"
	domainerrors "kosning/contexts/voting/elections-service/domain/errors"
	"kosning/contexts/voting/elections-service/ports"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, logger: logger}
}

// Migrate creates the elections tables. The ballot uniqueness index is
// partial so that token-path ballots, which all carry the anonymous marker
// uid, do not collide with each other.
func (r *Repository) Migrate() error {
	if err := r.db.AutoMigrate(&electionModel{}, &tokenModel{}, &ballotModel{}, &auditModel{}); err != nil {
		return err
	}
	return r.db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_elections_ballots_member
		 ON elections_ballots (election_id, member_uid)
		 WHERE member_uid <> ?`, entities.LegacyMemberUID,
	).Error
}

func (r *Repository) SaveElection(ctx context.Context, election entities.Election) error {
	row, err := electionModelFromEntity(election)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
		Create(row).Error
	if err != nil {
		return r.logError("elections_repo_save_failed", err, "election_id", election.ID)
	}
	return nil
}

func (r *Repository) GetElection(ctx context.Context, electionID string) (entities.Election, bool, error) {
	var row electionModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(electionID)).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Election{}, false, nil
		}
		return entities.Election{}, false, r.logError("elections_repo_get_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	election, err := row.toEntity()
	if err != nil {
		return entities.Election{}, false, err
	}
	return election, true, nil
}

func (r *Repository) ListElections(ctx context.Context) ([]entities.Election, error) {
	var rows []electionModel
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, r.logError("elections_repo_list_failed", err)
	}
	elections := make([]entities.Election, 0, len(rows))
	for _, row := range rows {
		election, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		elections = append(elections, election)
	}
	return elections, nil
}

// RegisterToken is idempotent on the identical (token_hash, election_id)
// pair so the Events-side retry can replay the call. A hash that already
// belongs to another election, or that has been spent, is a conflict.
func (r *Repository) RegisterToken(ctx context.Context, tokenHash string, electionID string, now time.Time) error {
	row := tokenModel{
		TokenHash:    strings.TrimSpace(tokenHash),
		ElectionID:   strings.TrimSpace(electionID),
		RegisteredAt: now.UTC(),
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "token_hash"}}, DoNothing: true}).
		Create(&row)
	if result.Error != nil {
		return r.logError("elections_repo_register_token_failed", result.Error, "election_id", row.ElectionID)
	}
	if result.RowsAffected > 0 {
		return nil
	}
	existing, found, err := r.GetRegisteredToken(ctx, row.TokenHash)
	if err != nil {
		return err
	}
	if !found {
		// The conflicting row vanished between insert and read; take the
		// slot directly.
		if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrTokenConflict
			}
			return r.logError("elections_repo_register_token_failed", err, "election_id", row.ElectionID)
		}
		return nil
	}
	if existing.Used || existing.ElectionID != row.ElectionID {
		return domainerrors.ErrTokenConflict
	}
	return nil
}

func (r *Repository) GetRegisteredToken(ctx context.Context, tokenHash string) (entities.RegisteredToken, bool, error) {
	var row tokenModel
	err := r.db.WithContext(ctx).
		Where("token_hash = ?", strings.TrimSpace(tokenHash)).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.RegisteredToken{}, false, nil
		}
		return entities.RegisteredToken{}, false, r.logError("elections_repo_get_token_failed", err)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) DeleteToken(ctx context.Context, tokenHash string, electionID string) (int64, error) {
	tx := r.db.WithContext(ctx).Where("token_hash = ?", strings.TrimSpace(tokenHash))
	if strings.TrimSpace(electionID) != "" {
		tx = tx.Where("election_id = ?", strings.TrimSpace(electionID))
	}
	result := tx.Delete(&tokenModel{})
	if result.Error != nil {
		return 0, r.logError("elections_repo_delete_token_failed", result.Error)
	}
	return result.RowsAffected, nil
}

// ConsumeToken spends a token and records its ballot in one transaction. The
// row lock makes concurrent spends serialize; the first commit wins and the
// rest see the used flag.
func (r *Repository) ConsumeToken(ctx context.Context, tokenHash string, ballot entities.Ballot, now time.Time) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row tokenModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("token_hash = ?", strings.TrimSpace(tokenHash)).
			First(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrTokenNotFound
			}
			return err
		}
		if row.Used {
			return domainerrors.ErrTokenUsed
		}

		ballotRow, err := ballotModelFromEntity(ballot)
		if err != nil {
			return err
		}
		if err := tx.Create(ballotRow).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrAlreadyVoted
			}
			return err
		}

		usedAt := now.UTC()
		return tx.Model(&tokenModel{}).
			Where("token_hash = ?", row.TokenHash).
			Updates(map[string]any{"used": true, "used_at": usedAt}).Error
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrTokenNotFound) ||
			errors.Is(err, domainerrors.ErrTokenUsed) ||
			errors.Is(err, domainerrors.ErrAlreadyVoted) {
			return err
		}
		return r.logError("elections_repo_consume_token_failed", err, "election_id", ballot.ElectionID)
	}
	return nil
}

func (r *Repository) CountTokens(ctx context.Context, electionID string) (int64, int64, error) {
	tx := r.db.WithContext(ctx).Model(&tokenModel{})
	if strings.TrimSpace(electionID) != "" {
		tx = tx.Where("election_id = ?", strings.TrimSpace(electionID))
	}
	var registered int64
	if err := tx.Count(&registered).Error; err != nil {
		return 0, 0, r.logError("elections_repo_count_tokens_failed", err)
	}
	usedTx := r.db.WithContext(ctx).Model(&tokenModel{}).Where("used = ?", true)
	if strings.TrimSpace(electionID) != "" {
		usedTx = usedTx.Where("election_id = ?", strings.TrimSpace(electionID))
	}
	var used int64
	if err := usedTx.Count(&used).Error; err != nil {
		return 0, 0, r.logError("elections_repo_count_used_tokens_failed", err)
	}
	return registered, used, nil
}

func (r *Repository) DeleteStaleUnused(ctx context.Context, registeredBefore time.Time) ([]string, error) {
	var swept []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []tokenModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("used = ?", false).
			Where("registered_at < ?", registeredBefore.UTC()).
			Find(&rows).Error
		if err != nil {
			return err
		}
		for _, row := range rows {
			swept = append(swept, row.TokenHash)
		}
		if len(swept) == 0 {
			return nil
		}
		return tx.Where("token_hash IN ?", swept).Delete(&tokenModel{}).Error
	})
	if err != nil {
		return nil, r.logError("elections_repo_sweep_failed", err)
	}
	return swept, nil
}

func (r *Repository) DeleteAllTokens(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&tokenModel{})
	if result.Error != nil {
		return 0, r.logError("elections_repo_delete_all_tokens_failed", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *Repository) InsertBallot(ctx context.Context, ballot entities.Ballot) error {
	row, err := ballotModelFromEntity(ballot)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrAlreadyVoted
		}
		return r.logError("elections_repo_insert_ballot_failed", err, "election_id", ballot.ElectionID)
	}
	return nil
}

func (r *Repository) HasVoted(ctx context.Context, electionID string, memberUID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&ballotModel{}).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Where("member_uid = ?", strings.TrimSpace(memberUID)).
		Count(&count).Error
	if err != nil {
		return false, r.logError("elections_repo_has_voted_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	return count > 0, nil
}

func (r *Repository) ListBallots(ctx context.Context, electionID string) ([]entities.Ballot, error) {
	var rows []ballotModel
	err := r.db.WithContext(ctx).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Order("submitted_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, r.logError("elections_repo_list_ballots_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	ballots := make([]entities.Ballot, 0, len(rows))
	for _, row := range rows {
		ballot, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		ballots = append(ballots, ballot)
	}
	return ballots, nil
}

func (r *Repository) AnonymizeBallots(ctx context.Context, electionID string, rename func(memberUID string) (string, bool)) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []ballotModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "member_uid").
			Where("election_id = ?", strings.TrimSpace(electionID)).
			Find(&rows).Error
		if err != nil {
			return err
		}
		for _, row := range rows {
			replacement, change := rename(row.MemberUID)
			if !change {
				continue
			}
			err := tx.Model(&ballotModel{}).
				Where("id = ?", row.ID).
				Update("member_uid", replacement).Error
			if err != nil {
				return err
			}
			affected++
		}
		return nil
	})
	if err != nil {
		return 0, r.logError("elections_repo_anonymize_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	return affected, nil
}

func (r *Repository) DeleteBallots(ctx context.Context, electionIDs []string) (int64, error) {
	if len(electionIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("election_id IN ?", electionIDs).
		Delete(&ballotModel{})
	if result.Error != nil {
		return 0, r.logError("elections_repo_delete_ballots_failed", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *Repository) Append(ctx context.Context, entry entities.AuditEntry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return err
	}
	row := auditModel{
		ID:          uuid.NewString(),
		Timestamp:   entry.Timestamp.UTC(),
		Action:      entry.Action,
		Success:     entry.Success,
		PerformedBy: entry.PerformedBy,
		Details:     details,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return r.logError("elections_repo_audit_append_failed", err, "action", entry.Action)
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "voting/elections-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("elections repository operation failed", fields...)
	return err
}

type electionModel struct {
	ID       string `gorm:"column:id;primaryKey"`
	Title    string `gorm:"column:title"`
	Question string `gorm:"column:question"`

	Answers       []byte `gorm:"column:answers_json"`
	VotingType    string `gorm:"column:voting_type"`
	MaxSelections int    `gorm:"column:max_selections"`
	SeatsToFill   int    `gorm:"column:seats_to_fill"`

	Eligibility      string `gorm:"column:eligibility"`
	CommitteeMembers []byte `gorm:"column:committee_members_json"`

	Status string `gorm:"column:status;index"`
	Hidden bool   `gorm:"column:hidden"`

	ScheduledStart *time.Time `gorm:"column:scheduled_start"`
	ScheduledEnd   *time.Time `gorm:"column:scheduled_end"`

	PreserveVoterIdentity        bool `gorm:"column:preserve_voter_identity"`
	RequiresJustification        bool `gorm:"column:requires_justification"`
	JustificationRequiredForTopN int  `gorm:"column:justification_top_n"`

	RankedMethod string `gorm:"column:ranked_method"`
	QuotaType    string `gorm:"column:quota_type"`

	RoundNumber      int    `gorm:"column:round_number"`
	ParentElectionID string `gorm:"column:parent_election_id"`

	CreatedBy string    `gorm:"column:created_by"`
	UpdatedBy string    `gorm:"column:updated_by"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (electionModel) TableName() string {
	return "elections_elections"
}

func electionModelFromEntity(election entities.Election) (*electionModel, error) {
	answers, err := json.Marshal(election.Answers)
	if err != nil {
		return nil, err
	}
	committee, err := json.Marshal(election.CommitteeMemberUIDs)
	if err != nil {
		return nil, err
	}
	return &electionModel{
		ID:                           strings.TrimSpace(election.ID),
		Title:                        election.Title,
		Question:                     election.Question,
		Answers:                      answers,
		VotingType:                   string(election.VotingType),
		MaxSelections:                election.MaxSelections,
		SeatsToFill:                  election.SeatsToFill,
		Eligibility:                  string(election.Eligibility),
		CommitteeMembers:             committee,
		Status:                       string(election.Status),
		Hidden:                       election.Hidden,
		ScheduledStart:               election.ScheduledStart,
		ScheduledEnd:                 election.ScheduledEnd,
		PreserveVoterIdentity:        election.PreserveVoterIdentity,
		RequiresJustification:        election.RequiresJustification,
		JustificationRequiredForTopN: election.JustificationRequiredForTopN,
		RankedMethod:                 string(election.RankedMethod),
		QuotaType:                    string(election.QuotaType),
		RoundNumber:                  election.RoundNumber,
		ParentElectionID:             election.ParentElectionID,
		CreatedBy:                    election.CreatedBy,
		UpdatedBy:                    election.UpdatedBy,
		CreatedAt:                    election.CreatedAt.UTC(),
		UpdatedAt:                    election.UpdatedAt.UTC(),
	}, nil
}

func (m electionModel) toEntity() (entities.Election, error) {
	var answers []entities.Answer
	if len(m.Answers) > 0 {
		if err := json.Unmarshal(m.Answers, &answers); err != nil {
			return entities.Election{}, err
		}
	}
	var committee []string
	if len(m.CommitteeMembers) > 0 {
		if err := json.Unmarshal(m.CommitteeMembers, &committee); err != nil {
			return entities.Election{}, err
		}
	}
	return entities.Election{
		ID:                           m.ID,
		Title:                        m.Title,
		Question:                     m.Question,
		Answers:                      answers,
		VotingType:                   entities.VotingType(m.VotingType),
		MaxSelections:                m.MaxSelections,
		SeatsToFill:                  m.SeatsToFill,
		Eligibility:                  entities.Eligibility(m.Eligibility),
		CommitteeMemberUIDs:          committee,
		Status:                       entities.Status(m.Status),
		Hidden:                       m.Hidden,
		ScheduledStart:               m.ScheduledStart,
		ScheduledEnd:                 m.ScheduledEnd,
		PreserveVoterIdentity:        m.PreserveVoterIdentity,
		RequiresJustification:        m.RequiresJustification,
		JustificationRequiredForTopN: m.JustificationRequiredForTopN,
		RankedMethod:                 entities.RankedMethod(m.RankedMethod),
		QuotaType:                    entities.QuotaType(m.QuotaType),
		RoundNumber:                  m.RoundNumber,
		ParentElectionID:             m.ParentElectionID,
		CreatedBy:                    m.CreatedBy,
		UpdatedBy:                    m.UpdatedBy,
		CreatedAt:                    m.CreatedAt,
		UpdatedAt:                    m.UpdatedAt,
	}, nil
}

type tokenModel struct {
	TokenHash    string     `gorm:"column:token_hash;primaryKey"`
	ElectionID   string     `gorm:"column:election_id;index"`
	RegisteredAt time.Time  `gorm:"column:registered_at"`
	Used         bool       `gorm:"column:used"`
	UsedAt       *time.Time `gorm:"column:used_at"`
}

func (tokenModel) TableName() string {
	return "elections_registered_tokens"
}

func (m tokenModel) toEntity() entities.RegisteredToken {
	return entities.RegisteredToken{
		TokenHash:    m.TokenHash,
		ElectionID:   m.ElectionID,
		RegisteredAt: m.RegisteredAt,
		Used:         m.Used,
		UsedAt:       m.UsedAt,
	}
}

type ballotModel struct {
	ID         string `gorm:"column:id;primaryKey"`
	ElectionID string `gorm:"column:election_id;index"`
	TokenHash  string `gorm:"column:token_hash"`
	MemberUID  string `gorm:"column:member_uid"`

	AnswerID       string `gorm:"column:answer_id"`
	Selections     []byte `gorm:"column:selections_json"`
	RankedAnswers  []byte `gorm:"column:ranked_answers_json"`
	Justifications []byte `gorm:"column:justifications_json"`

	SubmittedAt time.Time `gorm:"column:submitted_at"`
}

func (ballotModel) TableName() string {
	return "elections_ballots"
}

func ballotModelFromEntity(ballot entities.Ballot) (*ballotModel, error) {
	selections, err := json.Marshal(ballot.Selections)
	if err != nil {
		return nil, err
	}
	ranked, err := json.Marshal(ballot.RankedAnswers)
	if err != nil {
		return nil, err
	}
	justifications, err := json.Marshal(ballot.Justifications)
	if err != nil {
		return nil, err
	}
	return &ballotModel{
		ID:             strings.TrimSpace(ballot.ID),
		ElectionID:     strings.TrimSpace(ballot.ElectionID),
		TokenHash:      strings.TrimSpace(ballot.TokenHash),
		MemberUID:      strings.TrimSpace(ballot.MemberUID),
		AnswerID:       strings.TrimSpace(ballot.AnswerID),
		Selections:     selections,
		RankedAnswers:  ranked,
		Justifications: justifications,
		SubmittedAt:    ballot.SubmittedAt.UTC(),
	}, nil
}

func (m ballotModel) toEntity() (entities.Ballot, error) {
	ballot := entities.Ballot{
		ID:          m.ID,
		ElectionID:  m.ElectionID,
		TokenHash:   m.TokenHash,
		MemberUID:   m.MemberUID,
		AnswerID:    m.AnswerID,
		SubmittedAt: m.SubmittedAt,
	}
	if len(m.Selections) > 0 {
		if err := json.Unmarshal(m.Selections, &ballot.Selections); err != nil {
			return entities.Ballot{}, err
		}
	}
	if len(m.RankedAnswers) > 0 {
		if err := json.Unmarshal(m.RankedAnswers, &ballot.RankedAnswers); err != nil {
			return entities.Ballot{}, err
		}
	}
	if len(m.Justifications) > 0 {
		if err := json.Unmarshal(m.Justifications, &ballot.Justifications); err != nil {
			return entities.Ballot{}, err
		}
	}
	return ballot, nil
}

type auditModel struct {
	ID          string    `gorm:"column:id;primaryKey"`
	Timestamp   time.Time `gorm:"column:timestamp"`
	Action      string    `gorm:"column:action"`
	Success     bool      `gorm:"column:success"`
	PerformedBy string    `gorm:"column:performed_by"`
	Details     []byte    `gorm:"column:details_json"`
}

func (auditModel) TableName() string {
	return "elections_audit_log"
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.ElectionRepository = (*Repository)(nil)
var _ ports.TokenRegistry = (*Repository)(nil)
var _ ports.BallotRepository = (*Repository)(nil)
var _ ports.AuditLog = (*Repository)(nil)
var _ ports.Clock = SystemClock{}
var _ ports.IDGenerator = UUIDGenerator{}
