package electionsservice

import (
	"log/slog"

	httpadapter "kosning/contexts/voting/elections-service/adapters/http"
	"kosning/contexts/voting/elections-service/adapters/memory"
	"kosning/contexts/voting/elections-service/application/commands"
	"kosning/contexts/voting/elections-service/application/queries"
	"kosning/contexts/voting/elections-service/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Elections ports.ElectionRepository
	Tokens    ports.TokenRegistry
	Ballots   ports.BallotRepository
	Audit     ports.AuditLog
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Salt      string
	Logger    *slog.Logger
}

func NewModule(deps Dependencies) Module {
	electionUseCase := commands.ElectionUseCase{
		Elections: deps.Elections,
		Audit:     deps.Audit,
		Clock:     deps.Clock,
		IDGen:     deps.IDGen,
		Logger:    deps.Logger,
	}
	ballotUseCase := commands.BallotUseCase{
		Elections: deps.Elections,
		Ballots:   deps.Ballots,
		Tokens:    deps.Tokens,
		Audit:     deps.Audit,
		Clock:     deps.Clock,
		IDGen:     deps.IDGen,
		Logger:    deps.Logger,
	}
	registryUseCase := commands.RegistryUseCase{
		Elections: deps.Elections,
		Tokens:    deps.Tokens,
		Ballots:   deps.Ballots,
		Audit:     deps.Audit,
		Clock:     deps.Clock,
		Logger:    deps.Logger,
	}
	anonymizeUseCase := commands.AnonymizeUseCase{
		Elections: deps.Elections,
		Ballots:   deps.Ballots,
		Audit:     deps.Audit,
		Clock:     deps.Clock,
		Salt:      deps.Salt,
		Logger:    deps.Logger,
	}
	electionQueries := queries.ElectionQueries{
		Elections: deps.Elections,
		Ballots:   deps.Ballots,
		Logger:    deps.Logger,
	}
	resultsQueries := queries.ResultsQueries{
		Elections: deps.Elections,
		Ballots:   deps.Ballots,
		Logger:    deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Elections: electionUseCase,
			Ballots:   ballotUseCase,
			Registry:  registryUseCase,
			Anonymize: anonymizeUseCase,
			Queries:   electionQueries,
			Results:   resultsQueries,
			Logger:    deps.Logger,
		},
	}
}

// NewInMemoryModule wires the module on the in-memory store for tests and
// local development.
func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Elections: store,
		Tokens:    store,
		Ballots:   store,
		Audit:     store,
		Clock:     store,
		IDGen:     store,
		Salt:      "local-dev-salt",
		Logger:    logger,
	})
	module.Store = store
	return module
}
