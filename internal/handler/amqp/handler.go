// Package amqp implements the administrative force-end command (SPEC_FULL.md
// §4 "Administrative force-end"): an operator-issued, AMQP-ingested
// tournament.force_end message that lets a stuck or abusive tournament be
// ended out-of-band, bound by the same per-tournament lock the manager's own
// timers use. Adapted from the teacher's MessageHandler/bind pair in
// internal/handler/amqp, generalized from per-user chat delivery routing to
// per-tournament administrative commands.
package amqp

import (
	"encoding/json"
	"log/slog"
	"runtime/debug"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/webitel/typing-tournament/internal/domain/registry"
)

// ForceEndTopic is the routing key operators publish to.
const ForceEndTopic = "tournament.force_end"

// ForceEndCommand is the decoded payload of a force-end message.
type ForceEndCommand struct {
	TournamentID string `json:"tournamentId"`
	Reason       string `json:"reason"`
}

// CommandHandler consumes administrative commands against the live
// registry. Unlike the teacher's per-user MessageHandler, it never creates
// a tournament.Manager on demand: a command for a tournament with no
// currently-live manager is a no-op (there is nothing running to end).
type CommandHandler struct {
	registry registry.Registrar
	logger   *slog.Logger
}

func NewCommandHandler(reg registry.Registrar, logger *slog.Logger) *CommandHandler {
	return &CommandHandler{registry: reg, logger: logger}
}

// HandleForceEnd is bound to ForceEndTopic. It recovers from panics in the
// same spirit as the teacher's Bind wrapper, logging and acking rather than
// taking the consumer down.
func (h *CommandHandler) HandleForceEnd(msg *message.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("force-end handler panic", "err", r, "stack", string(debug.Stack()), "msg_id", msg.UUID)
		}
	}()

	var cmd ForceEndCommand
	if err := json.Unmarshal(msg.Payload, &cmd); err != nil {
		h.logger.Error("force-end decode failed", "err", err, "msg_id", msg.UUID)
		return nil // ack: poison-pill protection, retrying a malformed command never succeeds
	}
	if cmd.TournamentID == "" {
		h.logger.Warn("force-end missing tournament id", "msg_id", msg.UUID)
		return nil
	}

	mgr, ok := h.registry.Lookup(cmd.TournamentID)
	if !ok {
		h.logger.Info("force-end: no live manager for tournament, ignoring", "tournament_id", cmd.TournamentID)
		return nil
	}

	h.logger.Info("force-ending tournament", "tournament_id", cmd.TournamentID, "reason", cmd.Reason)
	mgr.ForceEnd()
	return nil
}
