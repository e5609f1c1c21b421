package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"kosning/contexts/voting/events-service/domain/entities"
	domainerrors "kosning/contexts/voting/events-service/domain/errors"
	"kosning/contexts/voting/events-service/ports"
)

type tokenKey struct {
	memberUID  string
	electionID string
}

// Store is the in-memory token repository used by tests and local wiring. It
// emulates the (member_uid, election_id) uniqueness and the transactional
// register-before-commit ordering of the Postgres adapter.
type Store struct {
	mu     sync.RWMutex
	tokens map[tokenKey]entities.VotingToken
	audit  []entities.AuditEntry

	now time.Time
}

func NewStore() *Store {
	return &Store{
		tokens: make(map[tokenKey]entities.VotingToken),
	}
}

// SetNow pins the store clock; zero means wall clock.
func (s *Store) SetNow(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.now.IsZero() {
		return time.Now().UTC()
	}
	return s.now
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) ReplaceToken(ctx context.Context, token entities.VotingToken, now time.Time, beforeCommit func(context.Context) error) error {
	key := tokenKey{
		memberUID:  strings.TrimSpace(token.MemberUID),
		electionID: strings.TrimSpace(token.ElectionID),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.tokens[key]; ok && existing.Live(now) {
		return domainerrors.ErrTokenActive
	}
	if beforeCommit != nil {
		if err := beforeCommit(ctx); err != nil {
			return err
		}
	}
	s.tokens[key] = token
	return nil
}

func (s *Store) GetToken(_ context.Context, memberUID string, electionID string) (entities.VotingToken, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, ok := s.tokens[tokenKey{
		memberUID:  strings.TrimSpace(memberUID),
		electionID: strings.TrimSpace(electionID),
	}]
	return token, ok, nil
}

func (s *Store) DeleteToken(_ context.Context, memberUID string, electionID string) (int64, error) {
	key := tokenKey{
		memberUID:  strings.TrimSpace(memberUID),
		electionID: strings.TrimSpace(electionID),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[key]; !ok {
		return 0, nil
	}
	delete(s.tokens, key)
	return 1, nil
}

func (s *Store) DeleteAllTokens(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := int64(len(s.tokens))
	s.tokens = make(map[tokenKey]entities.VotingToken)
	return deleted, nil
}

func (s *Store) CountIssued(_ context.Context, electionID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var issued int64
	for key := range s.tokens {
		if electionID != "" && key.electionID != strings.TrimSpace(electionID) {
			continue
		}
		issued++
	}
	return issued, nil
}

func (s *Store) Append(_ context.Context, entry entities.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, entry)
	return nil
}

// AuditEntries returns a copy of the appended audit log.
func (s *Store) AuditEntries() []entities.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.AuditEntry(nil), s.audit...)
}

var _ ports.TokenRepository = (*Store)(nil)
var _ ports.AuditLog = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)

// Registrar is an in-memory ElectionRegistrar with failure injection for
// exercising the register-before-commit ordering.
type Registrar struct {
	mu        sync.Mutex
	elections map[string]ports.ElectionSummary
	hashes    map[string]string // token hash -> election id
	used      map[string]bool
	failNext  error
	resets    int
}

func NewRegistrar() *Registrar {
	return &Registrar{
		elections: make(map[string]ports.ElectionSummary),
		hashes:    make(map[string]string),
		used:      make(map[string]bool),
	}
}

func (r *Registrar) SetElection(summary ports.ElectionSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.elections[strings.TrimSpace(summary.ID)] = summary
}

// FailNextRegistration makes the next RegisterTokenHash return err.
func (r *Registrar) FailNextRegistration(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failNext = err
}

func (r *Registrar) GetElection(_ context.Context, electionID string) (ports.ElectionSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	summary, ok := r.elections[strings.TrimSpace(electionID)]
	if !ok {
		return ports.ElectionSummary{}, domainerrors.ErrElectionNotFound
	}
	return summary, nil
}

func (r *Registrar) RegisterTokenHash(_ context.Context, electionID string, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext != nil {
		err := r.failNext
		r.failNext = nil
		return err
	}
	r.hashes[tokenHash] = electionID
	return nil
}

func (r *Registrar) UnregisterTokenHash(_ context.Context, _ string, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.hashes, tokenHash)
	delete(r.used, tokenHash)
	return nil
}

func (r *Registrar) TokenStatus(_ context.Context, tokenHash string) (bool, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.hashes[tokenHash]; !ok {
		return false, false, nil
	}
	return r.used[tokenHash], true, nil
}

func (r *Registrar) TokenUsage(_ context.Context, electionID string) (int64, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var registered, used int64
	for hash, owner := range r.hashes {
		if electionID != "" && owner != strings.TrimSpace(electionID) {
			continue
		}
		registered++
		if r.used[hash] {
			used++
		}
	}
	return registered, used, nil
}

// MarkSpent records a hash as used; test helper standing in for the
// Elections-side ballot submission.
func (r *Registrar) MarkSpent(tokenHash string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.used[tokenHash] = true
}

func (r *Registrar) ResetAll(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hashes = make(map[string]string)
	r.used = make(map[string]bool)
	r.resets++
	return nil
}

// RegisteredHashes returns the election each known hash is registered for.
func (r *Registrar) RegisteredHashes() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(r.hashes))
	for hash, electionID := range r.hashes {
		out[hash] = electionID
	}
	return out
}

var _ ports.ElectionRegistrar = (*Registrar)(nil)
