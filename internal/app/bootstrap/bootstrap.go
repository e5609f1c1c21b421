package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jonboulle/clockwork"

	electionsservice "kosning/contexts/voting/elections-service"
	electionspostgres "kosning/contexts/voting/elections-service/adapters/postgres"
	electionsworkers "kosning/contexts/voting/elections-service/application/workers"
	eventsservice "kosning/contexts/voting/events-service"
	eventspostgres "kosning/contexts/voting/events-service/adapters/postgres"
	s2sadapter "kosning/contexts/voting/events-service/adapters/s2s"
	tokenadapter "kosning/contexts/voting/events-service/adapters/token"
	"kosning/internal/platform/config"
	"kosning/internal/platform/db"
	"kosning/internal/platform/httpserver"
	"kosning/internal/platform/identity"
	"kosning/internal/platform/ratelimit"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type EventsApp struct {
	server   *httpserver.EventsServer
	postgres *db.Postgres
	logger   *slog.Logger
}

type ElectionsApp struct {
	server    *httpserver.ElectionsServer
	postgres  *db.Postgres
	scheduler electionsworkers.Scheduler
	sweep     electionsworkers.OrphanSweep
	logger    *slog.Logger
}

func BuildEventsAPI() (*EventsApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "events-api")
	if strings.TrimSpace(cfg.DatabaseDSN) == "" {
		return nil, errors.New("DATABASE_* settings are required")
	}
	if strings.TrimSpace(cfg.S2SSharedSecret) == "" {
		return nil, errors.New("S2S_SHARED_SECRET is required")
	}

	pg, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	repo := eventspostgres.NewRepository(pg.DB, logger)
	if err := repo.Migrate(); err != nil {
		_ = pg.Close()
		return nil, err
	}

	registrar := s2sadapter.NewClient(cfg.ElectionsBaseURL, cfg.S2SSharedSecret, logger)
	module := eventsservice.NewModule(eventsservice.Dependencies{
		Tokens:       repo,
		Registrar:    registrar,
		Source:       tokenadapter.RandomSource{},
		Audit:        repo,
		Clock:        eventspostgres.SystemClock{},
		IDGen:        eventspostgres.UUIDGenerator{},
		TokenTTL:     cfg.TokenTTL,
		Production:   cfg.IsProduction(),
		ResetAllowed: cfg.ProductionResetAllowed,
		Logger:       logger,
	})

	verifier := identity.NewHTTPVerifier(cfg.IdentityVerifierURL, cfg.SessionMaxAge, logger)
	limiter := ratelimit.New(ratelimit.Limits{
		Auth:       cfg.RateLimitAuth,
		TokenIssue: cfg.RateLimitTokenIssue,
		Ballot:     cfg.RateLimitBallot,
		AdminReset: cfg.RateLimitAdminReset,
		Window:     cfg.RateLimitWindow,
	})

	server := httpserver.NewEventsServer(module, verifier, limiter, logger, normalizeAddr(cfg.HTTPPort))
	return &EventsApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildElectionsAPI() (*ElectionsApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "elections-api")
	if strings.TrimSpace(cfg.DatabaseDSN) == "" {
		return nil, errors.New("DATABASE_* settings are required")
	}
	if strings.TrimSpace(cfg.S2SSharedSecret) == "" {
		return nil, errors.New("S2S_SHARED_SECRET is required")
	}
	if strings.TrimSpace(cfg.AnonymizationSalt) == "" {
		return nil, errors.New("ANONYMIZATION_SALT is required")
	}

	pg, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	repo := electionspostgres.NewRepository(pg.DB, logger)
	if err := repo.Migrate(); err != nil {
		_ = pg.Close()
		return nil, err
	}

	module := electionsservice.NewModule(electionsservice.Dependencies{
		Elections: repo,
		Tokens:    repo,
		Ballots:   repo,
		Audit:     repo,
		Clock:     electionspostgres.SystemClock{},
		IDGen:     electionspostgres.UUIDGenerator{},
		Salt:      cfg.AnonymizationSalt,
		Logger:    logger,
	})

	verifier := identity.NewHTTPVerifier(cfg.IdentityVerifierURL, cfg.SessionMaxAge, logger)
	limiter := ratelimit.New(ratelimit.Limits{
		Auth:       cfg.RateLimitAuth,
		TokenIssue: cfg.RateLimitTokenIssue,
		Ballot:     cfg.RateLimitBallot,
		AdminReset: cfg.RateLimitAdminReset,
		Window:     cfg.RateLimitWindow,
	})

	server := httpserver.NewElectionsServer(module, verifier, limiter, cfg.S2SSharedSecret, logger, normalizeAddr(cfg.HTTPPort))
	clock := clockwork.NewRealClock()
	return &ElectionsApp{
		server:   server,
		postgres: pg,
		scheduler: electionsworkers.Scheduler{
			Elections: module.Handler.Elections,
			Clock:     clock,
			Interval:  cfg.SchedulerTick,
			Logger:    logger,
		},
		sweep: electionsworkers.OrphanSweep{
			Tokens:   repo,
			Audit:    repo,
			Clock:    clock,
			TokenTTL: cfg.TokenTTL,
			Interval: cfg.OrphanSweep,
			Logger:   logger,
		},
		logger: logger,
	}, nil
}

func (a *EventsApp) Run(_ context.Context) error {
	a.logger.Info("events api started",
		"event", "bootstrap_events_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)
	return a.server.Start()
}

func (a *EventsApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

// Run serves HTTP and keeps the scheduler and orphan sweep ticking until the
// context is cancelled.
func (a *ElectionsApp) Run(ctx context.Context) error {
	go a.scheduler.Run(ctx)
	go a.sweep.Run(ctx)
	a.logger.Info("elections api started",
		"event", "bootstrap_elections_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)
	return a.server.Start()
}

func (a *ElectionsApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
