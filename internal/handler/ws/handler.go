// Package ws implements the bidirectional socket surface (spec.md §4.7,
// component C7): handshake parsing, identity resolution, registry lookup,
// per-room session fan-out, and the inbound event dispatch table.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/webitel/typing-tournament/internal/adapter/persistence"
	"github.com/webitel/typing-tournament/internal/domain/model"
	"github.com/webitel/typing-tournament/internal/domain/registry"
	"github.com/webitel/typing-tournament/internal/domain/tournament"
	"github.com/webitel/typing-tournament/internal/service/identity"
)

// Handler upgrades incoming HTTP requests to websockets and runs the full
// connect sequence from spec.md §4.7: parse handshake, resolve identity,
// get_or_create the manager, join, then pump inbound/outbound events until
// the socket closes.
type Handler struct {
	logger   *slog.Logger
	resolver *identity.Resolver
	registry registry.Registrar
	loader   registry.Loader
	rooms    *Rooms
	upgrader websocket.Upgrader
}

func NewHandler(logger *slog.Logger, resolver *identity.Resolver, reg registry.Registrar, loader registry.Loader, rooms *Rooms) *Handler {
	return &Handler{
		logger:   logger,
		resolver: resolver,
		registry: reg,
		loader:   loader,
		rooms:    rooms,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict to configured origins in production
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tournamentID := q.Get("id")
	spectator, _ := strconv.ParseBool(q.Get("spectator"))
	anonymous, _ := strconv.ParseBool(q.Get("anonymous"))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	if tournamentID == "" {
		writeFailure(conn, "join:failure", model.FaultMissingID, "tournament id is required")
		return
	}

	auth := authContextFromRequest(r)
	auth.Anonymous = anonymous
	result, err := h.resolver.Resolve(r.Context(), identity.Request{
		Auth:         auth,
		Spectator:    spectator,
		NoauthUnique: r.Header.Get("x-noauth-unique"),
	})
	if err != nil {
		h.logger.Error("identity resolution failed", "tournament_id", tournamentID, "err", err)
		writeFailure(conn, "join:failure", model.FaultMissingID, "could not establish identity")
		return
	}

	mgr, err := h.registry.GetOrCreate(r.Context(), tournamentID, h.loader)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			writeFailure(conn, "join:failure", model.FaultUnknownTournament, "tournament not found")
		} else {
			h.logger.Error("tournament lookup failed", "tournament_id", tournamentID, "err", err)
			writeFailure(conn, "join:failure", model.FaultUnknownTournament, "tournament unavailable")
		}
		return
	}

	role := model.RoleParticipant
	if spectator {
		role = model.RoleSpectator
	}
	snapshot, err := mgr.Join(result.Member, role)
	if err != nil {
		writeFailure(conn, "join:failure", faultEnvelope(err).Code, faultEnvelope(err).Message)
		return
	}

	sess := newSession(result.Member.ID, conn)
	h.rooms.join(tournamentID, sess)
	defer func() {
		h.rooms.leave(tournamentID, sess)
		mgr.Leave(result.Member.ID)
		sess.Close()
	}()

	go sess.writePump()

	sess.Send("join:success", joinSuccessPayload{
		Data:         snapshot.Data,
		Member:       snapshot.Member,
		Participants: snapshot.Participants,
		Noauth:       result.NoauthToken,
	})

	h.readPump(r.Context(), conn, mgr, sess)
}

func (h *Handler) readPump(ctx context.Context, conn *websocket.Conn, mgr *tournament.Manager, sess *Session) {
	for {
		if ctx.Err() != nil {
			return
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var env inboundEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}
		if h.dispatch(env, mgr, sess) {
			return
		}
	}
}

// dispatch handles one inbound event and reports whether the socket should
// close (an explicit leave).
func (h *Handler) dispatch(env inboundEnvelope, mgr *tournament.Manager, sess *Session) bool {
	switch env.Event {
	case "type":
		var p typePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return false
		}
		// Character may be multi-byte UTF-8; the engine steps one byte at a
		// time, so feed it through byte by byte and stop at the first
		// rejection (e.g. the participant just finished mid-sequence).
		for _, b := range p.bytes() {
			if err := mgr.HandleType(sess.memberID, b, p.Rid); err != nil {
				sess.Send("type:failure", faultEnvelope(err))
				break
			}
		}

	case "leave":
		mgr.Leave(sess.memberID)
		sess.Send("leave:success", leaveSuccessPayload{Message: "left"})
		return true

	case "me":
		data, err := mgr.HandleMe(sess.memberID)
		if err != nil {
			sess.Send("me:failure", faultEnvelope(err))
		} else {
			sess.Send("me:success", data)
		}

	case "all":
		sess.Send("all:success", mgr.HandleAll())

	case "data":
		sess.Send("data:success", mgr.HandleData())

	case "check":
		sess.Send("check:success", checkSuccessPayload{Status: string(mgr.HandleCheck())})
	}
	return false
}

func writeFailure(conn *websocket.Conn, event string, code model.FaultCode, message string) {
	env := outboundEnvelope{Event: event, Payload: model.FaultEnvelope{Code: code, Message: message}}
	_ = conn.WriteJSON(env)
}

func faultEnvelope(err error) model.FaultEnvelope {
	var f *model.Fault
	if errors.As(err, &f) {
		return f.Envelope()
	}
	return model.FaultEnvelope{Code: model.FaultParticipantUnavailable, Message: "internal error"}
}

type authUserIDKey struct{}

// authContextFromRequest builds the AuthContext from a user id stored on the
// request context under authUserIDKey. It does not read or validate the
// bearer token itself, and nothing in this service stores a value under
// that key, so every upgrade request resolves as unauthenticated.
func authContextFromRequest(r *http.Request) identity.AuthContext {
	if uid, ok := r.Context().Value(authUserIDKey{}).(string); ok && uid != "" {
		return identity.AuthContext{UserID: uid}
	}
	return identity.AuthContext{}
}
