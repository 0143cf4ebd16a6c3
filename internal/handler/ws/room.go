package ws

import (
	"sync"

	"github.com/google/uuid"
)

// Room fans broadcasts out to every socket currently subscribed to one
// tournament. This collapses the teacher's two-level Hub/Cell split (one
// actor goroutine per user) into a single concurrent-safe registry, since
// here the tournament.Manager already serializes all state mutation under
// its own lock — Room only needs to know who to Send to, not to own a
// mailbox-draining goroutine per member.
type Room struct {
	mu       sync.RWMutex
	sessions map[string]map[uuid.UUID]*Session // memberID -> connID -> session
}

func newRoom() *Room {
	return &Room{sessions: make(map[string]map[uuid.UUID]*Session)}
}

func (r *Room) add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byConn := r.sessions[s.memberID]
	if byConn == nil {
		byConn = make(map[uuid.UUID]*Session)
		r.sessions[s.memberID] = byConn
	}
	byConn[s.id] = s
}

// remove drops s from the room and reports whether the room is now empty.
func (r *Room) remove(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	byConn := r.sessions[s.memberID]
	if byConn != nil {
		delete(byConn, s.id)
		if len(byConn) == 0 {
			delete(r.sessions, s.memberID)
		}
	}
	return len(r.sessions) == 0
}

func (r *Room) broadcast(event string, payload any) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, byConn := range r.sessions {
		for _, s := range byConn {
			s.Send(event, payload)
		}
	}
}

func (r *Room) sendTo(memberID, event string, payload any) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions[memberID] {
		s.Send(event, payload)
	}
}

// Rooms is the process-wide registry of Room instances, one per currently
// subscribed tournament, keyed by tournament id. It implements
// tournament.Broadcaster.
type Rooms struct {
	mu   sync.Mutex
	byID map[string]*Room
}

func NewRooms() *Rooms {
	return &Rooms{byID: make(map[string]*Room)}
}

func (rs *Rooms) join(tournamentID string, s *Session) {
	rs.mu.Lock()
	r, ok := rs.byID[tournamentID]
	if !ok {
		r = newRoom()
		rs.byID[tournamentID] = r
	}
	rs.mu.Unlock()
	r.add(s)
}

func (rs *Rooms) leave(tournamentID string, s *Session) {
	rs.mu.Lock()
	r, ok := rs.byID[tournamentID]
	rs.mu.Unlock()
	if !ok {
		return
	}
	if empty := r.remove(s); empty {
		rs.mu.Lock()
		if cur, ok := rs.byID[tournamentID]; ok && cur == r {
			delete(rs.byID, tournamentID)
		}
		rs.mu.Unlock()
	}
}

// ToRoom implements tournament.Broadcaster.
func (rs *Rooms) ToRoom(tournamentID, event string, payload any) {
	rs.mu.Lock()
	r, ok := rs.byID[tournamentID]
	rs.mu.Unlock()
	if ok {
		r.broadcast(event, payload)
	}
}

// ToMember implements tournament.Broadcaster.
func (rs *Rooms) ToMember(tournamentID, memberID, event string, payload any) {
	rs.mu.Lock()
	r, ok := rs.byID[tournamentID]
	rs.mu.Unlock()
	if ok {
		r.sendTo(memberID, event, payload)
	}
}
