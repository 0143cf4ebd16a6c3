// Package registry implements the process-wide mapping from tournament id
// to a shared-lifetime Manager handle (spec.md §4.6, component C6). It
// generalizes the teacher's single sync.Map Hub into N xxhash-sharded maps
// for lower contention, and its sync.Map.LoadOrStore registration idiom
// into a singleflight-deduped get_or_create so concurrent callers for the
// same tournament id trigger exactly one loader invocation.
package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"github.com/webitel/typing-tournament/internal/clock"
	"github.com/webitel/typing-tournament/internal/domain/model"
	"github.com/webitel/typing-tournament/internal/domain/tournament"
)

// Loader consults the persistence layer for a tournament's metadata. It is
// supplied per-call so different callers can plug in different resilience
// wrapping (internal/adapter/persistence composes gobreaker+backoff around
// one of these).
type Loader func(ctx context.Context, tournamentID string) (model.TournamentData, error)

// ManagerFactory constructs the Manager for a freshly loaded tournament.
// onEvictable is wired through to the Manager unchanged; the Manager calls
// it once its own eviction grace period elapses.
type ManagerFactory func(id string, data model.TournamentData, onEvictable func(tournamentID string)) *tournament.Manager

// NewManagerFactory closes over the collaborators every Manager needs
// (clock, text generator, broadcaster, result publisher, config, logger)
// so the registry itself never has to know about them — it only ever
// calls the resulting ManagerFactory with the two things that vary per
// tournament: the id and its freshly loaded data. cfg is called once per
// manager creation rather than captured by value, so a config reload
// (config.TournamentConfigSource) takes effect for every tournament
// created after the reload; a tournament already running keeps the
// thresholds it was created with.
func NewManagerFactory(clk clock.Clock, gen tournament.TextGenerator, bc tournament.Broadcaster, rp tournament.ResultPublisher, cfg func() tournament.Config, logger *slog.Logger) ManagerFactory {
	return func(id string, data model.TournamentData, onEvictable func(tournamentID string)) *tournament.Manager {
		return tournament.New(id, data, clk, gen, bc, rp, cfg(), onEvictable, logger)
	}
}

// Registrar is the external API for the registry system.
type Registrar interface {
	GetOrCreate(ctx context.Context, tournamentID string, load Loader) (*tournament.Manager, error)
	Lookup(tournamentID string) (*tournament.Manager, bool)
	Evict(tournamentID string, handle *tournament.Manager)
	Stats() model.RegistryStats
	Shutdown()
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*tournament.Manager
}

// Registry implements [Registrar] using N lock-striped shards plus a
// singleflight group that collapses concurrent get_or_create calls for the
// same id into a single loader invocation (spec.md §4.6, §8 "Registry:
// concurrent get_or_create with N callers calls loader exactly once").
type Registry struct {
	shards  []*shard
	group   singleflight.Group
	factory ManagerFactory
	started time.Time
}

const defaultShardCount = 32

// New constructs a Registry. factory is called at most once per tournament
// id between a successful loader call and the next eviction.
func New(factory ManagerFactory, opts ...Option) *Registry {
	cfg := config{shardCount: defaultShardCount}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Registry{
		shards:  make([]*shard, cfg.shardCount),
		factory: factory,
		started: time.Now(),
	}
	for i := range r.shards {
		r.shards[i] = &shard{entries: make(map[string]*tournament.Manager)}
	}
	return r
}

func (r *Registry) shardFor(tournamentID string) *shard {
	h := xxhash.Sum64String(tournamentID)
	return r.shards[h%uint64(len(r.shards))]
}

// GetOrCreate returns the live manager for tournamentID, creating it via
// load+factory if none is currently installed. A manager already present
// in the shard map is, by construction, not past its eviction deadline:
// the manager removes itself (via onEvictable -> Evict) at exactly that
// moment, so map presence alone answers "is a live manager installed".
func (r *Registry) GetOrCreate(ctx context.Context, tournamentID string, load Loader) (*tournament.Manager, error) {
	sh := r.shardFor(tournamentID)

	sh.mu.Lock()
	if m, ok := sh.entries[tournamentID]; ok {
		sh.mu.Unlock()
		return m, nil
	}
	sh.mu.Unlock()

	v, err, _ := r.group.Do(tournamentID, func() (any, error) {
		// Re-check: another caller may have installed the manager between
		// our fast-path miss above and acquiring the singleflight slot.
		sh.mu.Lock()
		if m, ok := sh.entries[tournamentID]; ok {
			sh.mu.Unlock()
			return m, nil
		}
		sh.mu.Unlock()

		data, err := load(ctx, tournamentID)
		if err != nil {
			return nil, err
		}

		var m *tournament.Manager
		m = r.factory(tournamentID, data, func(evicted string) {
			r.Evict(evicted, m)
		})

		sh.mu.Lock()
		sh.entries[tournamentID] = m
		sh.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*tournament.Manager), nil
}

// Lookup returns the live manager for tournamentID without creating one,
// for callers that must act only on an already-joined room (e.g. the
// administrative force-end command).
func (r *Registry) Lookup(tournamentID string) (*tournament.Manager, bool) {
	sh := r.shardFor(tournamentID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	m, ok := sh.entries[tournamentID]
	return m, ok
}

// Evict removes tournamentID's entry if it still matches handle — a
// late-firing eviction timer for a manager that has since been replaced
// (evicted and lazily recreated) must not evict the newer instance
// (spec.md §4.6: "removes the entry if still matching the handle that
// requested it").
func (r *Registry) Evict(tournamentID string, handle *tournament.Manager) {
	sh := r.shardFor(tournamentID)
	sh.mu.Lock()
	cur, ok := sh.entries[tournamentID]
	if ok && cur == handle {
		delete(sh.entries, tournamentID)
	}
	sh.mu.Unlock()
	if ok && cur == handle {
		cur.Close()
	}
}

// Stats aggregates per-shard and process-wide counts for the tui dashboard
// and /debug/registry route.
func (r *Registry) Stats() model.RegistryStats {
	out := model.RegistryStats{
		Uptime: time.Since(r.started),
		Shards: make([]model.ShardStats, len(r.shards)),
	}
	for i, sh := range r.shards {
		sh.mu.Lock()
		managers := make([]*tournament.Manager, 0, len(sh.entries))
		for _, m := range sh.entries {
			managers = append(managers, m)
		}
		tournamentCount := len(sh.entries)
		sh.mu.Unlock()

		participantCount := 0
		for _, m := range managers {
			p, s := m.Stats()
			participantCount += p
			out.TotalSpectators += s
		}
		out.TotalTournaments += tournamentCount
		out.TotalParticipants += participantCount
		out.Shards[i] = model.ShardStats{
			ShardID:          i,
			TournamentCount:  tournamentCount,
			ParticipantCount: participantCount,
		}
	}
	return out
}

// Shutdown closes every live manager, flushing pending debouncers and
// stopping every timer/monitor, without removing entries from the shard
// maps (the process is exiting; there is nothing left to look them up).
func (r *Registry) Shutdown() {
	for _, sh := range r.shards {
		sh.mu.Lock()
		managers := make([]*tournament.Manager, 0, len(sh.entries))
		for _, m := range sh.entries {
			managers = append(managers, m)
		}
		sh.mu.Unlock()
		for _, m := range managers {
			m.Close()
		}
	}
}
