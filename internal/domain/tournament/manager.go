// Package tournament implements the per-room state machine (spec.md §4.5,
// component C5): the largest piece of the core, owning a tournament's
// metadata, participant map, inactivity monitors, self and room debouncers,
// and the start/end/eviction timers.
package tournament

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/webitel/typing-tournament/internal/clock"
	"github.com/webitel/typing-tournament/internal/domain/debounce"
	"github.com/webitel/typing-tournament/internal/domain/model"
	"github.com/webitel/typing-tournament/internal/domain/timeout"
	"github.com/webitel/typing-tournament/internal/domain/typing"
)

// TextGenerator produces a tournament's revealed text. It must be pure and
// deterministic given opts, since a manager can be recreated by the
// registry (e.g. after eviction and a late late-arriving request) and must
// reproduce the same text every time.
type TextGenerator interface {
	GenerateText(opts model.TextOptions) ([]byte, error)
}

// Broadcaster emits events to sockets. Implementations must swallow their
// own transport errors and log (spec.md §4.5/§7): a manager's critical
// sections never hold its lock across these calls, and never treat a
// broadcast failure as fatal to the caller's request.
type Broadcaster interface {
	ToRoom(tournamentID, event string, payload any)
	ToMember(tournamentID, memberID, event string, payload any)
}

// ResultPublisher exports a tournament's final standings once it reaches
// Ended (SPEC_FULL.md "Result export event"). Like Broadcaster, it must
// swallow its own transport errors: a publish failure never unwinds into
// the caller that triggered the end transition.
type ResultPublisher interface {
	PublishResult(export *model.ResultExport)
}

// JoinSnapshot is the initial payload a socket receives on join:success.
type JoinSnapshot struct {
	Data         model.TournamentDataResponse
	Member       model.MemberData
	Participants []model.ParticipantData
}

// Manager owns one tournament room's full lifecycle. All public methods are
// safe for concurrent use; a caller never needs to serialize calls
// externally.
type Manager struct {
	id          string
	clock       clock.Clock
	gen         TextGenerator
	broadcaster Broadcaster
	results     ResultPublisher
	cfg         Config
	logger      *slog.Logger
	onEvictable func(tournamentID string)

	mu                sync.RWMutex
	data              model.TournamentData
	participants      map[string]model.ParticipantState
	spectators        map[string]struct{}
	selfDebouncers    map[string]*debounce.Debouncer[model.ParticipantUpdate]
	inactivity        map[string]*timeout.Monitor
	roomDebouncer     *debounce.Debouncer[model.RoomDelta]
	startTimer        clock.Timer
	endTimer          clock.Timer
	evictionTimer     clock.Timer
	evictionScheduled bool
}

// New constructs a Manager for an already-loaded tournament record and
// arms its start timer (or starts it immediately if ScheduledFor is
// already due). onEvictable, if non-nil, is invoked exactly once, from a
// background goroutine, once the room's eviction grace period elapses.
func New(id string, data model.TournamentData, clk clock.Clock, gen TextGenerator, bc Broadcaster, rp ResultPublisher, cfg Config, onEvictable func(tournamentID string), logger *slog.Logger) *Manager {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		id:             id,
		clock:          clk,
		gen:            gen,
		broadcaster:    bc,
		results:        rp,
		cfg:            cfg,
		logger:         logger,
		onEvictable:    onEvictable,
		data:           data,
		participants:   make(map[string]model.ParticipantState),
		spectators:     make(map[string]struct{}),
		selfDebouncers: make(map[string]*debounce.Debouncer[model.ParticipantUpdate]),
		inactivity:     make(map[string]*timeout.Monitor),
	}
	m.roomDebouncer = debounce.New(cfg.RoomDebounce, clk, m.flushRoomBatch)
	m.armStart()
	return m
}

// ID is the tournament id this manager owns.
func (m *Manager) ID() string { return m.id }

// Join admits member with the given role. Rejoining with an id already
// present in the participant map returns the existing ParticipantState
// instead of resetting it (spec.md §8 scenario 6, noauth continuity).
func (m *Manager) Join(member model.Member, role model.Role) (JoinSnapshot, error) {
	m.mu.Lock()
	now := m.clock.Now()

	switch m.data.Status() {
	case model.StatusEnded:
		m.mu.Unlock()
		return JoinSnapshot{}, model.NewFault(model.FaultAlreadyEnded, "tournament has already ended")
	case model.StatusStarted:
		m.mu.Unlock()
		return JoinSnapshot{}, model.NewFault(model.FaultJoinClosed, "tournament is no longer accepting joins")
	}
	if !now.Before(m.data.ScheduledFor.Add(-m.cfg.JoinDeadline)) {
		m.mu.Unlock()
		return JoinSnapshot{}, model.NewFault(model.FaultJoinClosed, "join window has closed")
	}

	var joined *model.ParticipantState
	if role == model.RoleParticipant {
		if _, exists := m.participants[member.ID]; !exists {
			state := model.ParticipantState{MemberID: member.ID}
			m.participants[member.ID] = state
			m.selfDebouncers[member.ID] = m.newSelfDebouncer(member.ID)
			joined = &state
		}
	} else {
		m.spectators[member.ID] = struct{}{}
	}

	data := m.data.Response(len(m.spectators))
	participants := m.snapshotParticipantsLocked()
	m.mu.Unlock()

	if joined != nil {
		m.broadcaster.ToRoom(m.id, "participant:joined", map[string]any{"participant": joined.Data()})
	}

	return JoinSnapshot{Data: data, Member: member.Data(), Participants: participants}, nil
}

// Leave removes member from the room. It is idempotent: leaving when not
// present succeeds silently.
func (m *Manager) Leave(memberID string) {
	m.mu.Lock()
	_, wasParticipant := m.participants[memberID]
	delete(m.participants, memberID)
	delete(m.spectators, memberID)
	mon := m.inactivity[memberID]
	delete(m.inactivity, memberID)
	selfDeb := m.selfDebouncers[memberID]
	delete(m.selfDebouncers, memberID)
	m.mu.Unlock()

	if mon != nil {
		mon.Stop()
	}
	if selfDeb != nil {
		selfDeb.Shutdown()
	}
	if wasParticipant {
		m.broadcaster.ToRoom(m.id, "participant:left", map[string]any{"memberId": memberID})
		m.checkAllFinished()
	}
}

// HandleType feeds one keystroke through the typing engine (C4), updates
// both debouncers, touches the inactivity monitor, and handles the
// finish-line transition.
func (m *Manager) HandleType(memberID string, character byte, rid string) error {
	m.mu.Lock()
	before, ok := m.participants[memberID]
	if !ok {
		m.mu.Unlock()
		return model.NewFault(model.FaultNotRegistered, "member is not a registered participant")
	}
	if before.EndedAt != nil {
		m.mu.Unlock()
		return model.NewFault(model.FaultSessionEnded, "participant session has already ended")
	}

	now := m.clock.Now()
	after := typing.Step(before, character, m.data.Text, now)
	finished := typing.Finished(after, m.data.Text)
	if finished {
		after.EndedAt = &now
	}
	m.participants[memberID] = after

	delta := model.DiffParticipant(before, after)
	delta.Rid = rid

	selfDeb := m.selfDebouncers[memberID]
	roomDeb := m.roomDebouncer
	mon := m.inactivity[memberID]
	m.mu.Unlock()

	if mon != nil {
		mon.Touch()
	}
	if selfDeb != nil {
		selfDeb.Push(delta)
	}
	if roomDeb != nil {
		roomDeb.Push(model.RoomDelta{MemberID: memberID, Update: delta})
	}

	if finished {
		if mon != nil {
			mon.Disarm()
		}
		if selfDeb != nil {
			selfDeb.FlushNow()
		}
		m.checkAllFinished()
	}
	return nil
}

// HandleCheck returns the tournament's coarse status.
func (m *Manager) HandleCheck() model.Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.Status()
}

// HandleMe returns memberID's current participant state.
func (m *Manager) HandleMe(memberID string) (model.ParticipantData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.participants[memberID]
	if !ok {
		return model.ParticipantData{}, model.NewFault(model.FaultParticipantUnavailable, "participant data unavailable")
	}
	return state.Data(), nil
}

// HandleAll returns a snapshot of every participant's current state.
func (m *Manager) HandleAll() []model.ParticipantData {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotParticipantsLocked()
}

// HandleData returns the tournament's metadata snapshot.
func (m *Manager) HandleData() model.TournamentDataResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.Response(len(m.spectators))
}

// Stats reports the counts the registry aggregates for its introspection
// snapshot (SPEC_FULL.md §4 "Registry introspection").
func (m *Manager) Stats() (participants, spectators int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.participants), len(m.spectators)
}

// Close tears the manager down: cancels every timer, stops every monitor,
// and shuts down every debouncer. It is called by the registry once a room
// is evicted.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.startTimer != nil {
		m.startTimer.Stop()
	}
	if m.endTimer != nil {
		m.endTimer.Stop()
	}
	if m.evictionTimer != nil {
		m.evictionTimer.Stop()
	}
	monitors := make([]*timeout.Monitor, 0, len(m.inactivity))
	for _, mon := range m.inactivity {
		monitors = append(monitors, mon)
	}
	debs := make([]*debounce.Debouncer[model.ParticipantUpdate], 0, len(m.selfDebouncers))
	for _, d := range m.selfDebouncers {
		debs = append(debs, d)
	}
	roomDeb := m.roomDebouncer
	m.mu.Unlock()

	for _, mon := range monitors {
		mon.Stop()
	}
	for _, d := range debs {
		d.Shutdown()
	}
	if roomDeb != nil {
		roomDeb.Shutdown()
	}
}

func (m *Manager) newSelfDebouncer(memberID string) *debounce.Debouncer[model.ParticipantUpdate] {
	return debounce.New(m.cfg.SelfDebounce, m.clock, func(batch []model.ParticipantUpdate) {
		merged := model.MergeParticipantUpdates(batch)
		m.broadcaster.ToMember(m.id, memberID, "update:me", map[string]any{
			"updates": merged,
			"rid":     merged.Rid,
		})
	})
}

func (m *Manager) flushRoomBatch(batch []model.RoomDelta) {
	updates := model.MergeRoomDeltas(batch)
	m.broadcaster.ToRoom(m.id, "update:all", map[string]any{"updates": updates})
}

func (m *Manager) broadcastData() {
	m.mu.RLock()
	update := model.TournamentDataUpdate{
		StartedAt:    model.MillisPtr(m.data.StartedAt),
		ScheduledEnd: model.MillisPtr(m.data.ScheduledEnd),
		EndedAt:      model.MillisPtr(m.data.EndedAt),
	}
	if m.data.Text != nil {
		s := string(m.data.Text)
		update.Text = &s
	}
	m.mu.RUnlock()
	m.broadcaster.ToRoom(m.id, "update:data", map[string]any{"updates": update})
}

// publishResult exports the room's final standings. It is a no-op if no
// ResultPublisher was supplied, and safe to call once the EndedAt
// transition has already happened (it only reads state).
func (m *Manager) publishResult() {
	if m.results == nil {
		return
	}
	m.mu.RLock()
	startedAt := m.data.StartedAt
	endedAt := m.data.EndedAt
	standings := m.snapshotParticipantsLocked()
	m.mu.RUnlock()
	if startedAt == nil || endedAt == nil {
		return
	}
	sort.Slice(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.CorrectPosition != b.CorrectPosition {
			return a.CorrectPosition > b.CorrectPosition
		}
		return a.CurrentSpeed > b.CurrentSpeed
	})
	m.results.PublishResult(model.NewResultExport(m.id, *startedAt, *endedAt, standings))
}

func (m *Manager) snapshotParticipantsLocked() []model.ParticipantData {
	out := make([]model.ParticipantData, 0, len(m.participants))
	for _, p := range m.participants {
		out = append(out, p.Data())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MemberID < out[j].MemberID })
	return out
}

func (m *Manager) armStart() {
	now := m.clock.Now()
	if !now.Before(m.data.ScheduledFor) {
		m.onScheduledStart()
		return
	}
	t := m.clock.NewTimer(m.data.ScheduledFor.Sub(now))
	m.mu.Lock()
	m.startTimer = t
	m.mu.Unlock()
	go func() {
		<-t.C()
		m.onScheduledStart()
	}()
}

// onScheduledStart runs the Upcoming -> Starting -> {Active, Ended}
// transition exactly once, whether triggered by a fired timer or (for a
// manager lazily recreated after its scheduled time already passed) run
// synchronously from the constructor.
func (m *Manager) onScheduledStart() {
	m.mu.Lock()
	if m.data.StartedAt != nil {
		m.mu.Unlock()
		return
	}
	now := m.clock.Now()

	if len(m.participants) == 0 {
		m.data.StartedAt = &now
		m.data.EndedAt = &now
		m.mu.Unlock()
		m.broadcastData()
		m.publishResult()
		m.scheduleEviction()
		return
	}

	text, err := m.gen.GenerateText(m.data.TextOptions)
	if err != nil {
		m.logger.Error("challenge text generation failed", "tournament_id", m.id, "err", err)
		text = nil
	}
	m.data.Text = text
	m.data.StartedAt = &now
	scheduledEnd := now.Add(textDuration(text))
	m.data.ScheduledEnd = &scheduledEnd

	for memberID := range m.participants {
		mon := timeout.New(m.clock)
		id := memberID
		mon.SetAfterTimeout(func() {
			m.logger.Debug("keystroke observed after inactivity timeout", "tournament_id", m.id, "member_id", id)
		})
		mon.Arm(m.cfg.InactivityTimeout, m.onParticipantTimeout(id))
		m.inactivity[memberID] = mon
	}
	m.mu.Unlock()

	m.broadcastData()
	m.armEndTimer(scheduledEnd)
}

func (m *Manager) armEndTimer(at time.Time) {
	d := at.Sub(m.clock.Now())
	if d < 0 {
		d = 0
	}
	t := m.clock.NewTimer(d)
	m.mu.Lock()
	m.endTimer = t
	m.mu.Unlock()
	go func() {
		<-t.C()
		m.onScheduledEnd()
	}()
}

// onScheduledEnd fires when scheduled_end is reached with participants
// still unfinished: it force-ends every participant still running.
func (m *Manager) onScheduledEnd() {
	m.mu.Lock()
	if m.data.EndedAt != nil {
		m.mu.Unlock()
		return
	}
	now := m.clock.Now()
	for id, p := range m.participants {
		if p.EndedAt == nil {
			p.EndedAt = &now
			m.participants[id] = p
		}
	}
	m.data.EndedAt = &now

	monitors := make([]*timeout.Monitor, 0, len(m.inactivity))
	for _, mon := range m.inactivity {
		monitors = append(monitors, mon)
	}
	debs := make([]*debounce.Debouncer[model.ParticipantUpdate], 0, len(m.selfDebouncers))
	for _, d := range m.selfDebouncers {
		debs = append(debs, d)
	}
	m.mu.Unlock()

	for _, mon := range monitors {
		mon.Disarm()
	}
	for _, d := range debs {
		d.FlushNow()
	}
	m.roomDebouncer.FlushNow()
	m.broadcastData()
	m.publishResult()
	m.scheduleEviction()
}

// onParticipantTimeout is the inactivity monitor callback for memberID: it
// marks that single participant ended and sends them an update:me carrying
// endedAt, per DESIGN.md's §9 open-question resolution. The room itself
// ends only if that leaves every participant finished (checkAllFinished).
func (m *Manager) onParticipantTimeout(memberID string) func() {
	return func() {
		m.mu.Lock()
		state, ok := m.participants[memberID]
		if !ok || state.EndedAt != nil {
			m.mu.Unlock()
			return
		}
		now := m.clock.Now()
		before := state
		state.EndedAt = &now
		m.participants[memberID] = state
		selfDeb := m.selfDebouncers[memberID]
		m.mu.Unlock()

		if selfDeb != nil {
			delta := model.DiffParticipant(before, state)
			selfDeb.Push(delta)
			selfDeb.FlushNow()
		}
		m.checkAllFinished()
	}
}

// checkAllFinished transitions the room to Ended once every current
// participant has EndedAt set. A room with zero participants never
// auto-ends here; that only happens via onScheduledStart/onScheduledEnd.
func (m *Manager) checkAllFinished() {
	m.mu.Lock()
	if m.data.EndedAt != nil || len(m.participants) == 0 {
		m.mu.Unlock()
		return
	}
	for _, p := range m.participants {
		if p.EndedAt == nil {
			m.mu.Unlock()
			return
		}
	}
	now := m.clock.Now()
	m.data.EndedAt = &now
	m.mu.Unlock()

	m.cancelEndTimer()
	m.roomDebouncer.FlushNow()
	m.broadcastData()
	m.publishResult()
	m.scheduleEviction()
}

// ForceEnd ends the tournament immediately regardless of scheduled_end, for
// the administrative force-end command (internal/handler/amqp): it reuses
// the same force-finish path the scheduled end timer takes, so a manually
// ended tournament is indistinguishable downstream from one that reached
// its scheduled end.
func (m *Manager) ForceEnd() {
	m.cancelEndTimer()
	m.onScheduledEnd()
}

func (m *Manager) cancelEndTimer() {
	m.mu.Lock()
	t := m.endTimer
	m.endTimer = nil
	m.mu.Unlock()
	if t != nil {
		t.Stop()
	}
}

func (m *Manager) scheduleEviction() {
	m.mu.Lock()
	if m.evictionScheduled {
		m.mu.Unlock()
		return
	}
	m.evictionScheduled = true
	m.mu.Unlock()

	t := m.clock.NewTimer(m.cfg.EvictionGrace)
	m.mu.Lock()
	m.evictionTimer = t
	m.mu.Unlock()
	go func() {
		<-t.C()
		if m.onEvictable != nil {
			m.onEvictable(m.id)
		}
	}()
}
