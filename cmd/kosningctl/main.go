package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	electionsservice "kosning/contexts/voting/elections-service"
	electionserrors "kosning/contexts/voting/elections-service/domain/errors"
	"kosning/contexts/voting/elections-service/domain/services"
	electionspostgres "kosning/contexts/voting/elections-service/adapters/postgres"
	electionsworkers "kosning/contexts/voting/elections-service/application/workers"
	eventsservice "kosning/contexts/voting/events-service"
	eventspostgres "kosning/contexts/voting/events-service/adapters/postgres"
	s2sadapter "kosning/contexts/voting/events-service/adapters/s2s"
	tokenadapter "kosning/contexts/voting/events-service/adapters/token"
	eventscommands "kosning/contexts/voting/events-service/application/commands"
	eventserrors "kosning/contexts/voting/events-service/domain/errors"
	"kosning/internal/platform/config"
	"kosning/internal/platform/db"
	"kosning/internal/platform/identity"
	"kosning/internal/shared/audit"
	"kosning/internal/shared/roles"
)

// Exit codes: 0 success, 1 validation or usage, 2 permission denied,
// 3 remote dependency failure, 4 database error.
const (
	exitOK         = 0
	exitValidation = 1
	exitPermission = 2
	exitRemote     = 3
	exitDatabase   = 4
)

var actorUID string

type ctl struct {
	cfg       config.Config
	postgres  *db.Postgres
	events    eventsservice.Module
	elections electionsservice.Module
	eventsPG  *eventspostgres.Repository
	elecPG    *electionspostgres.Repository
	logger    *slog.Logger
}

func dial() (*ctl, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "kosningctl")

	pg, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	eventsRepo := eventspostgres.NewRepository(pg.DB, logger)
	electionsRepo := electionspostgres.NewRepository(pg.DB, logger)
	registrar := s2sadapter.NewClient(cfg.ElectionsBaseURL, cfg.S2SSharedSecret, logger)

	eventsModule := eventsservice.NewModule(eventsservice.Dependencies{
		Tokens:       eventsRepo,
		Registrar:    registrar,
		Source:       tokenadapter.RandomSource{},
		Audit:        eventsRepo,
		Clock:        eventspostgres.SystemClock{},
		IDGen:        eventspostgres.UUIDGenerator{},
		TokenTTL:     cfg.TokenTTL,
		Production:   cfg.IsProduction(),
		ResetAllowed: cfg.ProductionResetAllowed,
		Logger:       logger,
	})
	electionsModule := electionsservice.NewModule(electionsservice.Dependencies{
		Elections: electionsRepo,
		Tokens:    electionsRepo,
		Ballots:   electionsRepo,
		Audit:     electionsRepo,
		Clock:     electionspostgres.SystemClock{},
		IDGen:     electionspostgres.UUIDGenerator{},
		Salt:      cfg.AnonymizationSalt,
		Logger:    logger,
	})

	return &ctl{
		cfg:       cfg,
		postgres:  pg,
		events:    eventsModule,
		elections: electionsModule,
		eventsPG:  eventsRepo,
		elecPG:    electionsRepo,
		logger:    logger,
	}, nil
}

func (c *ctl) close() {
	_ = c.postgres.Close()
}

// operator is the CLI caller: direct database access implies the top of the
// role hierarchy, but the acting uid is still recorded and masked.
func (c *ctl) operator() services.Caller {
	return services.Caller{
		MemberUID: actorUID,
		IsMember:  true,
		Roles:     []roles.Role{roles.RoleDeveloper},
	}
}

var rootCmd = &cobra.Command{
	Use:   "kosningctl",
	Short: "Admin operations for the voting subsystem",
	Long: `kosningctl runs operator tasks directly against the voting database:
election lifecycle transitions, ballot anonymisation, token statistics, the
orphan sweep, and the guarded reset-all.`,
	PersistentPreRun: func(*cobra.Command, []string) {
		slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			TimeFormat: time.RFC3339,
		})))
	},
}

var electionsCmd = &cobra.Command{
	Use:   "elections",
	Short: "Election lifecycle operations",
}

var electionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all elections including hidden ones",
	Run: func(*cobra.Command, []string) {
		withCtl(func(ctx context.Context, c *ctl) error {
			elections, err := c.elections.Handler.Queries.ListElections(ctx, c.operator(), true)
			if err != nil {
				return err
			}
			for _, election := range elections {
				hidden := ""
				if election.Hidden {
					hidden = " (hidden)"
				}
				fmt.Printf("%s  %-20s %-10s %s%s\n",
					election.ID, election.VotingType, election.Status, election.Title, hidden)
			}
			return nil
		})
	},
}

var electionsTransitionCmd = &cobra.Command{
	Use:   "transition <election-id> <action>",
	Short: "Apply a lifecycle action (publish|pause|resume|close|archive|hide|unhide)",
	Args:  cobra.ExactArgs(2),
	Run: func(_ *cobra.Command, args []string) {
		withCtl(func(ctx context.Context, c *ctl) error {
			election, err := c.elections.Handler.Elections.TransitionElection(ctx, c.operator(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("election %s is now %s (actor %s)\n",
				election.ID, election.Status, audit.MaskActor(actorUID))
			return nil
		})
	},
}

var electionsAnonymizeCmd = &cobra.Command{
	Use:   "anonymize <election-id>",
	Short: "Sever the member link on a closed election's ballots",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		withCtl(func(ctx context.Context, c *ctl) error {
			affected, err := c.elections.Handler.Anonymize.Anonymize(ctx, c.operator(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("anonymized %d ballots on %s (actor %s)\n",
				affected, args[0], audit.MaskActor(actorUID))
			return nil
		})
	},
}

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "Token operations",
}

var tokensStatsCmd = &cobra.Command{
	Use:   "stats [election-id]",
	Short: "Issued and used token counts",
	Args:  cobra.MaximumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		withCtl(func(ctx context.Context, c *ctl) error {
			electionID := ""
			if len(args) == 1 {
				electionID = args[0]
			}
			// Issuance is an events-side fact; spends live in the elections
			// schema. The CLI reads both directly.
			issued, err := c.eventsPG.CountIssued(ctx, electionID)
			if err != nil {
				return err
			}
			_, used, err := c.elecPG.CountTokens(ctx, electionID)
			if err != nil {
				return err
			}
			fmt.Printf("issued=%d used=%d\n", issued, used)
			return nil
		})
	},
}

var tokensSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the elections-side orphan token sweep once",
	Run: func(*cobra.Command, []string) {
		withCtl(func(ctx context.Context, c *ctl) error {
			sweep := electionsworkers.OrphanSweep{
				Tokens:   c.elecPG,
				Audit:    c.elecPG,
				TokenTTL: c.cfg.TokenTTL,
				Logger:   c.logger,
			}
			return sweep.RunOnce(ctx)
		})
	},
}

var resetConfirm string

var resetAllCmd = &cobra.Command{
	Use:   "reset-all",
	Short: "Delete all tokens in both schemas and clear unclosed ballots",
	Run: func(*cobra.Command, []string) {
		withCtl(func(ctx context.Context, c *ctl) error {
			result, err := c.events.Handler.Resets.Reset(ctx, eventscommands.ResetCommand{
				MemberUID: actorUID,
				Roles:     []roles.Role{roles.RoleDeveloper},
				Scope:     eventscommands.ScopeAll,
				Confirm:   resetConfirm,
			})
			if err != nil {
				return err
			}
			fmt.Printf("deleted %d tokens (actor %s)\n",
				result.TokensDeleted, audit.MaskActor(actorUID))
			return nil
		})
	},
}

// withCtl wires the database, runs the operation, and maps the failure to
// the documented exit code with the cause and a masked actor on stderr.
func withCtl(run func(context.Context, *ctl) error) {
	c, err := dial()
	if err != nil {
		fmt.Fprintf(os.Stderr, "kosningctl: %v (actor %s)\n", err, audit.MaskActor(actorUID))
		os.Exit(exitDatabase)
	}
	defer c.close()

	if err := run(context.Background(), c); err != nil {
		fmt.Fprintf(os.Stderr, "kosningctl: %v (actor %s)\n", err, audit.MaskActor(actorUID))
		os.Exit(classify(err))
	}
	os.Exit(exitOK)
}

func classify(err error) int {
	switch {
	case errors.Is(err, eventserrors.ErrResetForbidden),
		errors.Is(err, eventserrors.ErrNotEligible),
		errors.Is(err, electionserrors.ErrForbidden),
		errors.Is(err, electionserrors.ErrNotEligible):
		return exitPermission
	case errors.Is(err, eventserrors.ErrInvalidInput),
		errors.Is(err, eventserrors.ErrInvalidResetScope),
		errors.Is(err, eventserrors.ErrConfirmRequired),
		errors.Is(err, eventserrors.ErrElectionNotFound),
		errors.Is(err, electionserrors.ErrElectionNotFound),
		errors.Is(err, electionserrors.ErrElectionNotClosed),
		errors.Is(err, electionserrors.ErrInvalidTransition),
		errors.Is(err, electionserrors.ErrAnonymizeRefused),
		errors.Is(err, electionserrors.ErrValidation):
		return exitValidation
	case errors.Is(err, eventserrors.ErrRegistrationFailed),
		errors.Is(err, identity.ErrUnavailable):
		return exitRemote
	default:
		return exitDatabase
	}
}

func main() {
	rootCmd.PersistentFlags().StringVar(&actorUID, "actor", "operator", "acting member uid recorded in audit entries")
	resetAllCmd.Flags().StringVar(&resetConfirm, "confirm", "", `confirmation phrase, must be "RESET ALL"`)

	electionsCmd.AddCommand(electionsListCmd, electionsTransitionCmd, electionsAnonymizeCmd)
	tokensCmd.AddCommand(tokensStatsCmd, tokensSweepCmd)
	rootCmd.AddCommand(electionsCmd, tokensCmd, resetAllCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitValidation)
	}
}
