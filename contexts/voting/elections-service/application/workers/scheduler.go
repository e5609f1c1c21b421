package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	application "kosning/contexts/voting/elections-service/application"
	"kosning/contexts/voting/elections-service/application/commands"
)

// Scheduler applies overdue scheduled_start and scheduled_end transitions.
// RunOnce is idempotent, so the tick interval only bounds the transition
// latency.
type Scheduler struct {
	Elections commands.ElectionUseCase
	Clock     clockwork.Clock
	Interval  time.Duration
	Logger    *slog.Logger
}

func (s Scheduler) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(s.Logger)
	applied, err := s.Elections.ApplyScheduled(ctx, s.clock().Now().UTC())
	if err != nil {
		logger.Error("scheduled transition pass failed",
			"event", "elections_scheduler_failed",
			"module", "voting/elections-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if applied > 0 {
		logger.Info("scheduled transitions applied",
			"event", "elections_scheduler_applied",
			"module", "voting/elections-service",
			"layer", "worker",
			"transitions", applied,
		)
	}
	return nil
}

// Run ticks until the context is cancelled. Pass failures are logged and the
// loop keeps going; the next tick retries.
func (s Scheduler) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = time.Minute
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

func (s Scheduler) clock() clockwork.Clock {
	if s.Clock == nil {
		return clockwork.NewRealClock()
	}
	return s.Clock
}
