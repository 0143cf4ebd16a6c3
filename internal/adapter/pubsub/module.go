package pubsub

import (
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/fx"

	"github.com/webitel/typing-tournament/internal/domain/tournament"
)

var Module = fx.Module("pubsub",
	fx.Provide(
		func(uri BrokerURI, logger *slog.Logger) (message.Publisher, error) {
			return NewPublisher(uri, watermill.NewSlogLogger(logger))
		},
		NewResultDispatcher,
		fx.Annotate(
			func(d *ResultDispatcher) tournament.ResultPublisher { return d },
			fx.As(new(tournament.ResultPublisher)),
		),
	),
)
