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

	"kosning/contexts/voting/events-service/domain/entities"
	domainerrors "kosning/contexts/voting/events-service/domain/errors"
	"kosning/contexts/voting/events-service/ports"
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

// Migrate creates the events tables.
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(&tokenModel{}, &auditModel{})
}

// ReplaceToken locks the (member_uid, election_id) slot, rejects live tokens,
// swaps in the fresh row, and only commits after beforeCommit (the Elections
// S2S acknowledgement) succeeds.
func (r *Repository) ReplaceToken(ctx context.Context, token entities.VotingToken, now time.Time, beforeCommit func(context.Context) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing tokenModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("member_uid = ?", strings.TrimSpace(token.MemberUID)).
			Where("election_id = ?", strings.TrimSpace(token.ElectionID)).
			First(&existing).Error
		switch {
		case err == nil:
			if now.Before(existing.ExpiresAt) {
				return domainerrors.ErrTokenActive
			}
			if err := tx.Delete(&tokenModel{}, "id = ?", existing.ID).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// first issuance for this pair
		default:
			return err
		}

		if err := tx.Create(tokenModelFromEntity(token)).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrTokenActive
			}
			return err
		}
		if beforeCommit != nil {
			return beforeCommit(ctx)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrTokenActive) ||
			errors.Is(err, domainerrors.ErrRegistrationFailed) ||
			errors.Is(err, domainerrors.ErrElectionNotFound) ||
			errors.Is(err, domainerrors.ErrElectionNotOpen) {
			return err
		}
		return r.logError("events_repo_replace_token_failed", err,
			"election_id", strings.TrimSpace(token.ElectionID),
		)
	}
	return nil
}

func (r *Repository) GetToken(ctx context.Context, memberUID string, electionID string) (entities.VotingToken, bool, error) {
	var row tokenModel
	err := r.db.WithContext(ctx).
		Where("member_uid = ?", strings.TrimSpace(memberUID)).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.VotingToken{}, false, nil
		}
		return entities.VotingToken{}, false, r.logError("events_repo_get_token_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) DeleteToken(ctx context.Context, memberUID string, electionID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("member_uid = ?", strings.TrimSpace(memberUID)).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Delete(&tokenModel{})
	if result.Error != nil {
		return 0, r.logError("events_repo_delete_token_failed", result.Error,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	return result.RowsAffected, nil
}

func (r *Repository) DeleteAllTokens(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&tokenModel{})
	if result.Error != nil {
		return 0, r.logError("events_repo_delete_all_tokens_failed", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *Repository) CountIssued(ctx context.Context, electionID string) (int64, error) {
	tx := r.db.WithContext(ctx).Model(&tokenModel{})
	if strings.TrimSpace(electionID) != "" {
		tx = tx.Where("election_id = ?", strings.TrimSpace(electionID))
	}
	var issued int64
	if err := tx.Count(&issued).Error; err != nil {
		return 0, r.logError("events_repo_count_tokens_failed", err)
	}
	return issued, nil
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
		return r.logError("events_repo_audit_append_failed", err, "action", entry.Action)
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "voting/events-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("events repository operation failed", fields...)
	return err
}

type tokenModel struct {
	ID         string    `gorm:"column:id;primaryKey"`
	MemberUID  string    `gorm:"column:member_uid;uniqueIndex:idx_events_tokens_member_election"`
	Kennitala  string    `gorm:"column:kennitala_normalized"`
	ElectionID string    `gorm:"column:election_id;uniqueIndex:idx_events_tokens_member_election"`
	TokenHash  string    `gorm:"column:token_plain_hash"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	ExpiresAt  time.Time `gorm:"column:expires_at"`
}

func (tokenModel) TableName() string {
	return "events_voting_tokens"
}

func tokenModelFromEntity(token entities.VotingToken) *tokenModel {
	return &tokenModel{
		ID:         strings.TrimSpace(token.TokenID),
		MemberUID:  strings.TrimSpace(token.MemberUID),
		Kennitala:  strings.TrimSpace(token.Kennitala),
		ElectionID: strings.TrimSpace(token.ElectionID),
		TokenHash:  strings.TrimSpace(token.TokenHash),
		CreatedAt:  token.CreatedAt.UTC(),
		ExpiresAt:  token.ExpiresAt.UTC(),
	}
}

func (m tokenModel) toEntity() entities.VotingToken {
	return entities.VotingToken{
		TokenID:    m.ID,
		MemberUID:  m.MemberUID,
		Kennitala:  m.Kennitala,
		ElectionID: m.ElectionID,
		TokenHash:  m.TokenHash,
		CreatedAt:  m.CreatedAt,
		ExpiresAt:  m.ExpiresAt,
	}
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
	return "events_audit_log"
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

var _ ports.TokenRepository = (*Repository)(nil)
var _ ports.AuditLog = (*Repository)(nil)
var _ ports.Clock = SystemClock{}
var _ ports.IDGenerator = UUIDGenerator{}
