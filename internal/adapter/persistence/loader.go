// Package persistence supplies the registry's Loader collaborator: the
// lookup that turns a bare tournament id into a model.TournamentData record
// the first time a socket asks for it (spec.md §8 "get_or_create"). Durable
// storage of in-flight tournament state is out of scope (spec.md Non-goals),
// so this package only resolves metadata that already exists elsewhere
// (created out-of-band, e.g. by an HTTP admin API not in scope here) — it
// never invents or persists tournament state itself.
package persistence

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sony/gobreaker"

	"github.com/webitel/typing-tournament/internal/domain/model"
	"github.com/webitel/typing-tournament/internal/domain/registry"
)

// ErrNotFound is returned when no tournament record exists for the given id.
var ErrNotFound = errors.New("persistence: tournament not found")

// Store is the raw lookup this package wraps with resilience. A production
// deployment backs this with whatever store holds tournament metadata;
// Store itself only needs to answer "does this id exist, and what is it".
type Store interface {
	Find(ctx context.Context, tournamentID string) (model.TournamentData, error)
}

// MemoryStore is an in-memory Store, the only implementation this service
// ships: tournaments are seeded into it (by an out-of-scope admin surface,
// or directly in tests) before any socket can join them.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]model.TournamentData
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]model.TournamentData)}
}

// Seed registers or replaces a tournament record.
func (s *MemoryStore) Seed(data model.TournamentData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[data.ID] = data
}

func (s *MemoryStore) Find(_ context.Context, tournamentID string) (model.TournamentData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.records[tournamentID]
	if !ok {
		return model.TournamentData{}, ErrNotFound
	}
	return data.Clone(), nil
}

// ResilientLoader wraps a Store behind a circuit breaker and an exponential
// backoff retry, so a flaky downstream store degrades into fast, contained
// failures instead of stalling every socket upgrade waiting on get_or_create.
// A missing record is not a transient fault: ErrNotFound is never retried
// and never trips the breaker.
type ResilientLoader struct {
	store   Store
	breaker *gobreaker.CircuitBreaker
}

func NewResilientLoader(store Store) *ResilientLoader {
	st := gobreaker.Settings{
		Name:        "tournament-store",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		// ErrNotFound is an expected outcome of a legitimate lookup (an
		// unknown or already-evicted tournament id), not a backend fault,
		// so it must not count toward ConsecutiveFailures or spuriously
		// trip the breaker for every other caller.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
	}
	return &ResilientLoader{
		store:   store,
		breaker: gobreaker.NewCircuitBreaker(st),
	}
}

// Load satisfies registry.Loader.
func (l *ResilientLoader) Load(ctx context.Context, tournamentID string) (model.TournamentData, error) {
	data, err := backoff.Retry(ctx, func() (model.TournamentData, error) {
		v, err := l.breaker.Execute(func() (any, error) {
			return l.store.Find(ctx, tournamentID)
		})
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return model.TournamentData{}, backoff.Permanent(err)
			}
			return model.TournamentData{}, err
		}
		return v.(model.TournamentData), nil
	}, backoff.WithMaxTries(3), backoff.WithBackOff(backoff.NewExponentialBackOff()))
	if err != nil {
		return model.TournamentData{}, err
	}
	return data, nil
}

var _ registry.Loader = (*ResilientLoader)(nil).Load
