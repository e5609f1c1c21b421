package httpserver

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	httpSwagger "github.com/swaggo/http-swagger"

	electionsservice "kosning/contexts/voting/elections-service"
	electionserrors "kosning/contexts/voting/elections-service/domain/errors"
	electionshttp "kosning/contexts/voting/elections-service/transport/http"
	"kosning/internal/platform/identity"
	"kosning/internal/platform/metrics"
	"kosning/internal/platform/ratelimit"
)

const s2sSecretHeader = "X-S2S-Secret"

// ElectionsServer is the HTTP surface of the elections service: the member
// API, the admin API, and the S2S registration endpoints the events service
// calls.
type ElectionsServer struct {
	mux       *http.ServeMux
	logger    *slog.Logger
	addr      string
	elections electionsservice.Module
	verifier  identity.Verifier
	limiter   *ratelimit.Limiter
	s2sSecret string
}

func NewElectionsServer(
	elections electionsservice.Module,
	verifier identity.Verifier,
	limiter *ratelimit.Limiter,
	s2sSecret string,
	logger *slog.Logger,
	addr string,
) *ElectionsServer {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8081"
	}
	s := &ElectionsServer{
		mux:       http.NewServeMux(),
		logger:    logger,
		addr:      addr,
		elections: elections,
		verifier:  verifier,
		limiter:   limiter,
		s2sSecret: s2sSecret,
	}
	s.registerRoutes()
	return s
}

func (s *ElectionsServer) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"service", "elections",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.Handler())
}

// Handler exposes the instrumented mux for tests and embedding.
func (s *ElectionsServer) Handler() http.Handler {
	return instrument("elections", s.logger, s.mux)
}

func (s *ElectionsServer) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	s.mux.Handle("GET /metrics", metrics.Handler())
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.mux.HandleFunc("GET /api/elections", s.handleListElections)
	s.mux.HandleFunc("GET /api/elections/{id}", s.handleGetElection)
	s.mux.HandleFunc("POST /api/elections/{id}/ballot", s.handleBallot)
	s.mux.HandleFunc("GET /api/elections/{id}/has-voted", s.handleHasVoted)
	s.mux.HandleFunc("GET /api/elections/{id}/results", s.handleResults)

	s.mux.HandleFunc("POST /api/admin/elections", s.handleCreateElection)
	s.mux.HandleFunc("PATCH /api/admin/elections/{id}", s.handleUpdateElection)
	for _, action := range []string{"publish", "pause", "resume", "close", "archive", "hide", "unhide"} {
		s.mux.HandleFunc("POST /api/admin/elections/{id}/"+action, s.transitionHandler(action))
	}
	s.mux.HandleFunc("POST /api/admin/elections/{id}/anonymize", s.handleAnonymize)

	s.mux.HandleFunc("POST /s2s/v1/token", s.s2s(s.handleS2SRegisterToken))
	s.mux.HandleFunc("DELETE /s2s/v1/token", s.s2s(s.handleS2SUnregisterToken))
	s.mux.HandleFunc("GET /s2s/v1/token/{hash}", s.s2s(s.handleS2STokenStatus))
	s.mux.HandleFunc("GET /s2s/v1/token-stats", s.s2s(s.handleS2STokenStats))
	s.mux.HandleFunc("POST /s2s/v1/reset", s.s2s(s.handleS2SReset))
	s.mux.HandleFunc("GET /s2s/v1/elections/{id}", s.s2s(s.handleS2SGetElection))
}

// s2s guards a handler with the shared-secret header. The comparison is
// constant time.
func (s *ElectionsServer) s2s(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		presented := r.Header.Get(s2sSecretHeader)
		if s.s2sSecret == "" ||
			subtle.ConstantTimeCompare([]byte(presented), []byte(s.s2sSecret)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "invalid service secret")
			return
		}
		next(w, r)
	}
}

func (s *ElectionsServer) handleListElections(w http.ResponseWriter, r *http.Request) {
	caller, ok := authenticate(w, r, s.verifier)
	if !ok {
		return
	}
	includeHidden := strings.EqualFold(r.URL.Query().Get("include_hidden"), "true")
	resp, err := s.elections.Handler.ListElectionsHandler(r.Context(), caller, includeHidden)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *ElectionsServer) handleGetElection(w http.ResponseWriter, r *http.Request) {
	caller, ok := authenticate(w, r, s.verifier)
	if !ok {
		return
	}
	resp, err := s.elections.Handler.GetElectionHandler(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleBallot serves both voting paths. A body carrying a one-time token is
// the anonymous legacy path and needs no credential; everything else is the
// member-keyed path.
func (s *ElectionsServer) handleBallot(w http.ResponseWriter, r *http.Request) {
	if !allowRate(w, r, s.limiter, ratelimit.OpBallot) {
		return
	}

	var raw struct {
		Token string `json:"token"`
		electionshttp.BallotRequest
	}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	electionID := r.PathValue("id")

	if strings.TrimSpace(raw.Token) != "" {
		resp, err := s.elections.Handler.TokenBallotHandler(r.Context(), electionshttp.TokenBallotRequest{
			Token:      raw.Token,
			ElectionID: electionID,
			AnswerID:   raw.AnswerID,
		})
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		metrics.BallotsRecordedTotal.WithLabelValues("single-choice").Inc()
		writeJSON(w, http.StatusOK, resp)
		return
	}

	caller, ok := authenticate(w, r, s.verifier)
	if !ok {
		return
	}
	resp, err := s.elections.Handler.SubmitBallotHandler(r.Context(), caller, electionID, raw.BallotRequest)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	metrics.BallotsRecordedTotal.WithLabelValues(ballotKind(raw.BallotRequest)).Inc()
	writeJSON(w, http.StatusOK, resp)
}

func ballotKind(req electionshttp.BallotRequest) string {
	switch {
	case len(req.RankedAnswers) > 0:
		return "ranked"
	case len(req.Selections) > 0:
		return "multi-choice"
	default:
		return "single-choice"
	}
}

func (s *ElectionsServer) handleHasVoted(w http.ResponseWriter, r *http.Request) {
	caller, ok := authenticate(w, r, s.verifier)
	if !ok {
		return
	}
	resp, err := s.elections.Handler.HasVotedHandler(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *ElectionsServer) handleResults(w http.ResponseWriter, r *http.Request) {
	caller, ok := authenticate(w, r, s.verifier)
	if !ok {
		return
	}
	resp, err := s.elections.Handler.ResultsHandler(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *ElectionsServer) handleCreateElection(w http.ResponseWriter, r *http.Request) {
	caller, ok := authenticate(w, r, s.verifier)
	if !ok {
		return
	}
	var req electionshttp.ElectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.elections.Handler.CreateElectionHandler(r.Context(), caller, req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *ElectionsServer) handleUpdateElection(w http.ResponseWriter, r *http.Request) {
	caller, ok := authenticate(w, r, s.verifier)
	if !ok {
		return
	}
	var req electionshttp.ElectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.elections.Handler.UpdateElectionHandler(r.Context(), caller, r.PathValue("id"), req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *ElectionsServer) transitionHandler(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := authenticate(w, r, s.verifier)
		if !ok {
			return
		}
		resp, err := s.elections.Handler.TransitionHandler(r.Context(), caller, r.PathValue("id"),
			electionshttp.TransitionRequest{Action: action})
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *ElectionsServer) handleAnonymize(w http.ResponseWriter, r *http.Request) {
	caller, ok := authenticate(w, r, s.verifier)
	if !ok {
		return
	}
	resp, err := s.elections.Handler.AnonymizeHandler(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *ElectionsServer) handleS2SRegisterToken(w http.ResponseWriter, r *http.Request) {
	var req electionshttp.RegisterTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.elections.Handler.RegisterTokenHandler(r.Context(), req); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"registered": true})
}

func (s *ElectionsServer) handleS2SUnregisterToken(w http.ResponseWriter, r *http.Request) {
	var req electionshttp.UnregisterTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.elections.Handler.UnregisterTokenHandler(r.Context(), req); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *ElectionsServer) handleS2STokenStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.elections.Handler.S2STokenStatusHandler(r.Context(), r.PathValue("hash"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *ElectionsServer) handleS2STokenStats(w http.ResponseWriter, r *http.Request) {
	resp, err := s.elections.Handler.S2STokenStatsHandler(r.Context(), r.URL.Query().Get("election_id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *ElectionsServer) handleS2SReset(w http.ResponseWriter, r *http.Request) {
	resp, err := s.elections.Handler.S2SResetHandler(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *ElectionsServer) handleS2SGetElection(w http.ResponseWriter, r *http.Request) {
	resp, err := s.elections.Handler.S2SElectionHandler(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *ElectionsServer) writeDomainError(w http.ResponseWriter, err error) {
	var fieldErr electionserrors.FieldError
	if errors.As(err, &fieldErr) {
		writeFieldError(w, http.StatusUnprocessableEntity, "validation_failed", fieldErr.Reason, fieldErr.Field)
		return
	}
	var ballotErr electionserrors.BallotError
	if errors.As(err, &ballotErr) {
		writeFieldError(w, http.StatusUnprocessableEntity, "invalid_ballot", ballotErr.Reason, ballotErr.Field)
		return
	}

	switch {
	case errors.Is(err, electionserrors.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
	case errors.Is(err, electionserrors.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, electionserrors.ErrNotEligible):
		writeError(w, http.StatusForbidden, "not_eligible", err.Error())
	case errors.Is(err, electionserrors.ErrElectionNotFound),
		errors.Is(err, electionserrors.ErrTokenNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, electionserrors.ErrElectionNotOpen),
		errors.Is(err, electionserrors.ErrElectionNotClosed),
		errors.Is(err, electionserrors.ErrInvalidTransition),
		errors.Is(err, electionserrors.ErrImmutablePublished),
		errors.Is(err, electionserrors.ErrTokenConflict),
		errors.Is(err, electionserrors.ErrAnonymizeRefused):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, electionserrors.ErrAlreadyVoted),
		errors.Is(err, electionserrors.ErrTokenUsed):
		writeError(w, http.StatusConflict, "already_voted", err.Error())
	case errors.Is(err, electionserrors.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", err.Error())
	case errors.Is(err, electionserrors.ErrInvalidBallot):
		writeError(w, http.StatusUnprocessableEntity, "invalid_ballot", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
