package eventsservice

import (
	"log/slog"
	"time"

	httpadapter "kosning/contexts/voting/events-service/adapters/http"
	"kosning/contexts/voting/events-service/adapters/memory"
	tokenadapter "kosning/contexts/voting/events-service/adapters/token"
	"kosning/contexts/voting/events-service/application/commands"
	"kosning/contexts/voting/events-service/application/queries"
	"kosning/contexts/voting/events-service/ports"
)

type Module struct {
	Handler   httpadapter.Handler
	Store     *memory.Store
	Registrar *memory.Registrar
}

type Dependencies struct {
	Tokens       ports.TokenRepository
	Registrar    ports.ElectionRegistrar
	Source       ports.TokenSource
	Audit        ports.AuditLog
	Clock        ports.Clock
	IDGen        ports.IDGenerator
	TokenTTL     time.Duration
	Production   bool
	ResetAllowed bool
	Logger       *slog.Logger
}

func NewModule(deps Dependencies) Module {
	tokenUseCase := commands.TokenUseCase{
		Tokens:    deps.Tokens,
		Registrar: deps.Registrar,
		Source:    deps.Source,
		Audit:     deps.Audit,
		Clock:     deps.Clock,
		IDGen:     deps.IDGen,
		TokenTTL:  deps.TokenTTL,
		Logger:    deps.Logger,
	}
	resetUseCase := commands.ResetUseCase{
		Tokens:       deps.Tokens,
		Registrar:    deps.Registrar,
		Audit:        deps.Audit,
		Clock:        deps.Clock,
		Production:   deps.Production,
		ResetAllowed: deps.ResetAllowed,
		Logger:       deps.Logger,
	}
	statusUseCase := queries.StatusUseCase{
		Tokens:    deps.Tokens,
		Registrar: deps.Registrar,
	}
	return Module{
		Handler: httpadapter.Handler{
			Tokens: tokenUseCase,
			Resets: resetUseCase,
			Status: statusUseCase,
			Logger: deps.Logger,
		},
	}
}

// NewInMemoryModule wires the module on the in-memory store and registrar for
// tests and local development.
func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	registrar := memory.NewRegistrar()
	module := NewModule(Dependencies{
		Tokens:    store,
		Registrar: registrar,
		Source:    tokenadapter.RandomSource{},
		Audit:     store,
		Clock:     store,
		IDGen:     store,
		TokenTTL:  2 * time.Hour,
	})
	module.Store = store
	module.Registrar = registrar
	return module
}
