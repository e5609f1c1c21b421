package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	application "kosning/contexts/voting/elections-service/application"
	"kosning/contexts/voting/elections-service/domain/entities"
	"kosning/contexts/voting/elections-service/ports"
	"kosning/internal/shared/audit"
)

// OrphanSweep reaps registered token hashes the Events service no longer
// backs. A hash is an orphan when the Events-side transaction aborted after
// the registration call landed; its row stays unused until the token TTL has
// long passed, at which point deleting it cannot strand a voter.
type OrphanSweep struct {
	Tokens   ports.TokenRegistry
	Audit    ports.AuditLog
	Clock    clockwork.Clock
	TokenTTL time.Duration
	Interval time.Duration
	Logger   *slog.Logger
}

func (s OrphanSweep) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(s.Logger)
	ttl := s.TokenTTL
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	cutoff := s.clock().Now().UTC().Add(-ttl)

	swept, err := s.Tokens.DeleteStaleUnused(ctx, cutoff)
	if err != nil {
		logger.Error("orphan sweep failed",
			"event", "elections_orphan_sweep_failed",
			"module", "voting/elections-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if len(swept) == 0 {
		return nil
	}

	masked := make([]string, 0, len(swept))
	for _, tokenHash := range swept {
		masked = append(masked, audit.MaskHash(tokenHash))
	}
	if s.Audit != nil {
		entry := entities.AuditEntry{
			Timestamp:   s.clock().Now().UTC(),
			Action:      "orphan_sweep",
			Success:     true,
			PerformedBy: "orphan-sweep",
			Details: map[string]any{
				"tokens_swept": len(swept),
				"token_hashes": masked,
			},
		}
		if auditErr := s.Audit.Append(ctx, entry); auditErr != nil {
			logger.Error("audit append failed",
				"event", "elections_audit_append_failed",
				"module", "voting/elections-service",
				"layer", "worker",
				"action", "orphan_sweep",
				"error", auditErr.Error(),
			)
		}
	}
	logger.Info("orphan tokens swept",
		"event", "elections_orphans_swept",
		"module", "voting/elections-service",
		"layer", "worker",
		"tokens_swept", len(swept),
	)
	return nil
}

func (s OrphanSweep) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := s.clock().NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			_ = s.RunOnce(ctx)
		}
	}
}

func (s OrphanSweep) clock() clockwork.Clock {
	if s.Clock == nil {
		return clockwork.NewRealClock()
	}
	return s.Clock
}
