package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"kosning/contexts/voting/elections-service/domain/entities"
	domainerrors "kosning/contexts/voting/elections-service/domain/errors"
	"kosning/contexts/voting/elections-service/ports"
)

// Store is the in-memory elections repository used by tests and local
// wiring. It emulates the (election_id, member_uid) ballot uniqueness and
// the lock-then-spend token transaction of the Postgres adapter.
type Store struct {
	mu        sync.RWMutex
	elections map[string]entities.Election
	tokens    map[string]entities.RegisteredToken
	ballots   map[string][]entities.Ballot // keyed by election id
	audit     []entities.AuditEntry

	now time.Time
}

func NewStore() *Store {
	return &Store{
		elections: make(map[string]entities.Election),
		tokens:    make(map[string]entities.RegisteredToken),
		ballots:   make(map[string][]entities.Ballot),
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

func (s *Store) SaveElection(_ context.Context, election entities.Election) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elections[election.ID] = election
	return nil
}

func (s *Store) GetElection(_ context.Context, electionID string) (entities.Election, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	election, ok := s.elections[strings.TrimSpace(electionID)]
	return election, ok, nil
}

func (s *Store) ListElections(_ context.Context) ([]entities.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	elections := make([]entities.Election, 0, len(s.elections))
	for _, election := range s.elections {
		elections = append(elections, election)
	}
	return elections, nil
}

func (s *Store) RegisterToken(_ context.Context, tokenHash string, electionID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.tokens[tokenHash]; ok {
		if existing.Used || existing.ElectionID != electionID {
			return domainerrors.ErrTokenConflict
		}
		return nil
	}
	s.tokens[tokenHash] = entities.RegisteredToken{
		TokenHash:    tokenHash,
		ElectionID:   electionID,
		RegisteredAt: now,
	}
	return nil
}

func (s *Store) GetRegisteredToken(_ context.Context, tokenHash string) (entities.RegisteredToken, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, ok := s.tokens[strings.TrimSpace(tokenHash)]
	return token, ok, nil
}

func (s *Store) DeleteToken(_ context.Context, tokenHash string, _ string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[tokenHash]; !ok {
		return 0, nil
	}
	delete(s.tokens, tokenHash)
	return 1, nil
}

func (s *Store) ConsumeToken(_ context.Context, tokenHash string, ballot entities.Ballot, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[tokenHash]
	if !ok {
		return domainerrors.ErrTokenNotFound
	}
	if token.Used {
		return domainerrors.ErrTokenUsed
	}
	token.Used = true
	usedAt := now
	token.UsedAt = &usedAt
	s.tokens[tokenHash] = token
	s.ballots[ballot.ElectionID] = append(s.ballots[ballot.ElectionID], ballot)
	return nil
}

func (s *Store) CountTokens(_ context.Context, electionID string) (int64, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var registered, used int64
	for _, token := range s.tokens {
		if electionID != "" && token.ElectionID != strings.TrimSpace(electionID) {
			continue
		}
		registered++
		if token.Used {
			used++
		}
	}
	return registered, used, nil
}

func (s *Store) DeleteStaleUnused(_ context.Context, registeredBefore time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var swept []string
	for tokenHash, token := range s.tokens {
		if !token.Used && token.RegisteredAt.Before(registeredBefore) {
			swept = append(swept, tokenHash)
			delete(s.tokens, tokenHash)
		}
	}
	return swept, nil
}

func (s *Store) DeleteAllTokens(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := int64(len(s.tokens))
	s.tokens = make(map[string]entities.RegisteredToken)
	return deleted, nil
}

func (s *Store) InsertBallot(_ context.Context, ballot entities.Ballot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ballot.MemberUID != entities.LegacyMemberUID {
		for _, existing := range s.ballots[ballot.ElectionID] {
			if existing.MemberUID == ballot.MemberUID {
				return domainerrors.ErrAlreadyVoted
			}
		}
	}
	s.ballots[ballot.ElectionID] = append(s.ballots[ballot.ElectionID], ballot)
	return nil
}

func (s *Store) HasVoted(_ context.Context, electionID string, memberUID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ballot := range s.ballots[strings.TrimSpace(electionID)] {
		if ballot.MemberUID == strings.TrimSpace(memberUID) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ListBallots(_ context.Context, electionID string) ([]entities.Ballot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.Ballot(nil), s.ballots[strings.TrimSpace(electionID)]...), nil
}

func (s *Store) AnonymizeBallots(_ context.Context, electionID string, rename func(memberUID string) (string, bool)) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var affected int64
	ballots := s.ballots[strings.TrimSpace(electionID)]
	for i, ballot := range ballots {
		replacement, change := rename(ballot.MemberUID)
		if !change {
			continue
		}
		ballots[i].MemberUID = replacement
		affected++
	}
	return affected, nil
}

func (s *Store) DeleteBallots(_ context.Context, electionIDs []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for _, electionID := range electionIDs {
		deleted += int64(len(s.ballots[electionID]))
		delete(s.ballots, electionID)
	}
	return deleted, nil
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

var _ ports.ElectionRepository = (*Store)(nil)
var _ ports.TokenRegistry = (*Store)(nil)
var _ ports.BallotRepository = (*Store)(nil)
var _ ports.AuditLog = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
