package amqp

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/fx"

	"github.com/webitel/typing-tournament/internal/adapter/pubsub"
)

const forceEndQueue = "typing-tournament.force_end"

var Module = fx.Module("amqp-handler",
	fx.Provide(NewCommandHandler, NewForceEndSubscriber),

	fx.Invoke(func(
		lc fx.Lifecycle,
		h *CommandHandler,
		sub message.Subscriber,
		logger *slog.Logger,
	) error {
		router, err := message.NewRouter(message.RouterConfig{}, watermill.NewSlogLogger(logger))
		if err != nil {
			return err
		}

		router.AddNoPublisherHandler(
			"force_end_executor",
			ForceEndTopic,
			sub,
			func(msg *message.Message) error { return h.HandleForceEnd(msg) },
		)

		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				go func() {
					if err := router.Run(context.Background()); err != nil {
						logger.Error("amqp router run error", "err", err)
					}
				}()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return router.Close()
			},
		})
		return nil
	}),
)

// NewForceEndSubscriber builds the subscriber the force-end router binds
// to, consuming from its own durable queue against the configured broker.
func NewForceEndSubscriber(uri pubsub.BrokerURI, logger *slog.Logger) (message.Subscriber, error) {
	return pubsub.NewSubscriber(uri, forceEndQueue, watermill.NewSlogLogger(logger))
}
