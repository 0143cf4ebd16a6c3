package ws

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Session is one socket's outbound mailbox: it decouples a manager's
// broadcast path (which must never block on a slow reader, spec.md §5)
// from the underlying connection, which gorilla/websocket forbids writing
// to concurrently. Adapted from the teacher's pooled Connector/connect:
// the backpressure strategy here is simpler (the teacher's priority-aware
// eviction collapses to plain drop-oldest, since C5 events carry no
// priority and a stale intermediate update is always safe to lose).
type Session struct {
	id       uuid.UUID
	memberID string
	conn     *websocket.Conn

	outbox chan outboundEnvelope
	done   chan struct{}

	closeOnce    sync.Once
	droppedCount uint64
}

const defaultMailboxSize = 64

func newSession(memberID string, conn *websocket.Conn) *Session {
	return &Session{
		id:       uuid.New(),
		memberID: memberID,
		conn:     conn,
		outbox:   make(chan outboundEnvelope, defaultMailboxSize),
		done:     make(chan struct{}),
	}
}

func (s *Session) ID() uuid.UUID { return s.id }

// Send enqueues event for delivery to this socket. It never blocks: if the
// mailbox is full, the oldest pending event is dropped to make room for the
// newest one (spec.md §5: broadcasts are advisory and fire-and-forget).
func (s *Session) Send(event string, payload any) bool {
	env := outboundEnvelope{Event: event, Payload: payload}
	select {
	case <-s.done:
		return false
	case s.outbox <- env:
		return true
	default:
	}
	select {
	case <-s.outbox:
		atomic.AddUint64(&s.droppedCount, 1)
	default:
	}
	select {
	case s.outbox <- env:
		return true
	default:
		return false
	}
}

// writePump drains the mailbox and is the socket's sole writer goroutine.
func (s *Session) writePump() {
	for {
		select {
		case <-s.done:
			return
		case env := <-s.outbox:
			_ = s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := s.conn.WriteJSON(env); err != nil {
				s.Close()
				return
			}
		}
	}
}

// Close terminates the session exactly once, safe to call from the read
// pump, the write pump, or room cleanup racing each other.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}
