package workers

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"kosning/contexts/voting/elections-service/adapters/memory"
	"kosning/contexts/voting/elections-service/application/commands"
	"kosning/contexts/voting/elections-service/domain/entities"
)

func seedScheduled(store *memory.Store, id string, status entities.Status, start, end *time.Time) {
	election := entities.Election{
		ID:             id,
		Title:          "Scheduled " + id,
		Answers:        []entities.Answer{{ID: "yes"}, {ID: "no"}},
		VotingType:     entities.VotingTypeSingle,
		ScheduledStart: start,
		ScheduledEnd:   end,
	}
	election.ApplyDefaults()
	election.Status = status
	store.SaveElection(context.Background(), election)
}

func TestSchedulerAppliesOverdueTransitions(t *testing.T) {
	store := memory.NewStore()
	store.SetNow(time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC))
	fake := clockwork.NewFakeClockAt(store.Now())

	start := time.Date(2026, 4, 1, 11, 0, 0, 0, time.UTC)
	end := time.Date(2026, 4, 1, 11, 30, 0, 0, time.UTC)
	future := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)

	seedScheduled(store, "overdue-start", entities.StatusDraft, &start, nil)
	seedScheduled(store, "overdue-end", entities.StatusPublished, nil, &end)
	seedScheduled(store, "paused-overdue-end", entities.StatusPaused, nil, &end)
	seedScheduled(store, "not-yet", entities.StatusDraft, &future, nil)

	scheduler := Scheduler{
		Elections: commands.ElectionUseCase{
			Elections: store,
			Audit:     store,
			Clock:     store,
			IDGen:     store,
		},
		Clock: fake,
	}
	if err := scheduler.RunOnce(context.Background()); err != nil {
		t.Fatalf("scheduler pass failed: %v", err)
	}

	expect := map[string]entities.Status{
		"overdue-start":      entities.StatusPublished,
		"overdue-end":        entities.StatusClosed,
		"paused-overdue-end": entities.StatusClosed,
		"not-yet":            entities.StatusDraft,
	}
	for id, want := range expect {
		election, _, _ := store.GetElection(context.Background(), id)
		if election.Status != want {
			t.Fatalf("%s status = %s, want %s", id, election.Status, want)
		}
	}
	if election, _, _ := store.GetElection(context.Background(), "overdue-start"); election.UpdatedBy != "scheduler" {
		t.Fatalf("scheduled transitions must be attributed to the scheduler, got %q", election.UpdatedBy)
	}

	// A second pass finds nothing left to do.
	if err := scheduler.RunOnce(context.Background()); err != nil {
		t.Fatalf("second pass failed: %v", err)
	}
	if election, _, _ := store.GetElection(context.Background(), "overdue-end"); election.Status != entities.StatusClosed {
		t.Fatalf("second pass must not disturb closed elections")
	}
}

func TestSchedulerRunTicks(t *testing.T) {
	store := memory.NewStore()
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	store.SetNow(now)
	fake := clockwork.NewFakeClockAt(now)

	start := now.Add(-time.Minute)
	seedScheduled(store, "overdue-start", entities.StatusDraft, &start, nil)

	scheduler := Scheduler{
		Elections: commands.ElectionUseCase{Elections: store, Audit: store, Clock: store, IDGen: store},
		Clock:     fake,
		Interval:  time.Minute,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		scheduler.Run(ctx)
		close(done)
	}()

	fake.BlockUntil(1)
	fake.Advance(time.Minute)

	deadline := time.After(2 * time.Second)
	for {
		election, _, _ := store.GetElection(context.Background(), "overdue-start")
		if election.Status == entities.StatusPublished {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("tick did not apply the transition")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-done
}

func TestOrphanSweepReapsStaleUnusedTokens(t *testing.T) {
	store := memory.NewStore()
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	store.SetNow(now)
	fake := clockwork.NewFakeClockAt(now)

	store.RegisterToken(context.Background(), "stale-hash", "election-1", now.Add(-3*time.Hour))
	store.RegisterToken(context.Background(), "fresh-hash", "election-1", now.Add(-10*time.Minute))
	store.RegisterToken(context.Background(), "spent-hash", "election-1", now.Add(-3*time.Hour))
	if err := store.ConsumeToken(context.Background(), "spent-hash", entities.Ballot{
		ID: "ballot-1", ElectionID: "election-1", MemberUID: entities.LegacyMemberUID, AnswerID: "yes",
	}, now.Add(-time.Hour)); err != nil {
		t.Fatalf("seed spend failed: %v", err)
	}

	sweep := OrphanSweep{
		Tokens:   store,
		Audit:    store,
		Clock:    fake,
		TokenTTL: 2 * time.Hour,
	}
	if err := sweep.RunOnce(context.Background()); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	if _, found, _ := store.GetRegisteredToken(context.Background(), "stale-hash"); found {
		t.Fatalf("stale unused hash must be reaped")
	}
	if _, found, _ := store.GetRegisteredToken(context.Background(), "fresh-hash"); !found {
		t.Fatalf("fresh hash must survive")
	}
	if _, found, _ := store.GetRegisteredToken(context.Background(), "spent-hash"); !found {
		t.Fatalf("spent hash must survive regardless of age")
	}

	entries := store.AuditEntries()
	if len(entries) == 0 || entries[len(entries)-1].Action != "orphan_sweep" {
		t.Fatalf("sweep must be audited, entries: %+v", entries)
	}
}
