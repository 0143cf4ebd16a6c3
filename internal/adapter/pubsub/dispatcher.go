package pubsub

import (
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/webitel/typing-tournament/internal/domain/model"
	"github.com/webitel/typing-tournament/internal/domain/tournament"
)

// ResultDispatcher publishes a tournament's ResultExport to the message
// bus, adapted from the teacher's EventDispatcher. It implements
// tournament.ResultPublisher, so a Manager can call it directly without
// knowing it runs over AMQP.
type ResultDispatcher struct {
	publisher message.Publisher
	logger    *slog.Logger
}

func NewResultDispatcher(pub message.Publisher, logger *slog.Logger) *ResultDispatcher {
	return &ResultDispatcher{publisher: pub, logger: logger}
}

// PublishResult implements tournament.ResultPublisher. A publish failure is
// logged, never propagated: the manager's end transition has already
// happened and must not be undone by a transport hiccup.
func (d *ResultDispatcher) PublishResult(export *model.ResultExport) {
	payload, err := export.ToJSON()
	if err != nil {
		d.logger.Error("result export: marshal failed", "tournament_id", export.TournamentID, "err", err)
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := d.publisher.Publish(export.GetRoutingKey(), msg); err != nil {
		d.logger.Error("result export: publish failed", "tournament_id", export.TournamentID, "err", err)
	}
}

var _ tournament.ResultPublisher = (*ResultDispatcher)(nil)
