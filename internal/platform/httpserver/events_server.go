package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	eventsservice "kosning/contexts/voting/events-service"
	eventserrors "kosning/contexts/voting/events-service/domain/errors"
	eventshttp "kosning/contexts/voting/events-service/transport/http"
	"kosning/internal/platform/identity"
	"kosning/internal/platform/metrics"
	"kosning/internal/platform/ratelimit"
	"kosning/internal/shared/roles"

	_ "kosning/internal/platform/httpserver/docs"
)

// EventsServer is the public HTTP surface of the events service: token
// issuance, token status, and the admin reset operations.
type EventsServer struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	addr     string
	events   eventsservice.Module
	verifier identity.Verifier
	limiter  *ratelimit.Limiter
}

func NewEventsServer(
	events eventsservice.Module,
	verifier identity.Verifier,
	limiter *ratelimit.Limiter,
	logger *slog.Logger,
	addr string,
) *EventsServer {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}
	s := &EventsServer{
		mux:      http.NewServeMux(),
		logger:   logger,
		addr:     addr,
		events:   events,
		verifier: verifier,
		limiter:  limiter,
	}
	s.registerRoutes()
	return s
}

func (s *EventsServer) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"service", "events",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.Handler())
}

// Handler exposes the instrumented mux for tests and embedding.
func (s *EventsServer) Handler() http.Handler {
	return instrument("events", s.logger, s.mux)
}

func (s *EventsServer) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	s.mux.Handle("GET /metrics", metrics.Handler())
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.mux.HandleFunc("POST /api/token/request", s.handleRequestToken)
	s.mux.HandleFunc("GET /api/my-status", s.handleMyStatus)
	s.mux.HandleFunc("POST /api/admin/reset-election", s.handleReset)
	s.mux.HandleFunc("GET /api/admin/token-stats", s.handleTokenStats)
}

func (s *EventsServer) handleRequestToken(w http.ResponseWriter, r *http.Request) {
	if !allowRate(w, r, s.limiter, ratelimit.OpTokenIssue) {
		return
	}
	caller, ok := authenticate(w, r, s.verifier)
	if !ok {
		return
	}

	var req eventshttp.RequestTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.events.Handler.RequestTokenHandler(r.Context(), caller, req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	metrics.TokensIssuedTotal.Inc()
	writeJSON(w, http.StatusOK, resp)
}

func (s *EventsServer) handleMyStatus(w http.ResponseWriter, r *http.Request) {
	if !allowRate(w, r, s.limiter, ratelimit.OpAuth) {
		return
	}
	caller, ok := authenticate(w, r, s.verifier)
	if !ok {
		return
	}

	resp, err := s.events.Handler.MyStatusHandler(r.Context(), caller, r.URL.Query().Get("election_id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *EventsServer) handleReset(w http.ResponseWriter, r *http.Request) {
	if !allowRate(w, r, s.limiter, ratelimit.OpAdminReset) {
		return
	}
	caller, ok := authenticate(w, r, s.verifier)
	if !ok {
		return
	}

	var req eventshttp.ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.events.Handler.ResetHandler(r.Context(), caller, req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *EventsServer) handleTokenStats(w http.ResponseWriter, r *http.Request) {
	if !allowRate(w, r, s.limiter, ratelimit.OpAuth) {
		return
	}
	caller, ok := authenticate(w, r, s.verifier)
	if !ok {
		return
	}
	if !roles.IsManager(caller.Roles) {
		writeError(w, http.StatusForbidden, "forbidden", "manager role required")
		return
	}

	resp, err := s.events.Handler.TokenStatsHandler(r.Context(), r.URL.Query().Get("election_id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *EventsServer) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, eventserrors.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
	case errors.Is(err, eventserrors.ErrNotEligible):
		writeError(w, http.StatusForbidden, "not_eligible", err.Error())
	case errors.Is(err, eventserrors.ErrResetForbidden):
		writeError(w, http.StatusForbidden, "reset_forbidden", err.Error())
	case errors.Is(err, eventserrors.ErrElectionNotFound):
		writeError(w, http.StatusNotFound, "election_not_found", err.Error())
	case errors.Is(err, eventserrors.ErrElectionNotOpen):
		writeError(w, http.StatusConflict, "election_not_open", err.Error())
	case errors.Is(err, eventserrors.ErrTokenActive):
		writeError(w, http.StatusConflict, "token_active", err.Error())
	case errors.Is(err, eventserrors.ErrInvalidInput),
		errors.Is(err, eventserrors.ErrInvalidResetScope),
		errors.Is(err, eventserrors.ErrConfirmRequired):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, eventserrors.ErrRegistrationFailed):
		writeError(w, http.StatusServiceUnavailable, "registration_failed", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
