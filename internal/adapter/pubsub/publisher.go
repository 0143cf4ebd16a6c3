// Package pubsub wires the message-bus side of the "Result export event"
// and "Administrative force-end" supplemented features onto Watermill's
// AMQP binding, adapted from the teacher's PublisherProvider/EventDispatcher
// pair in internal/adapter/pubsub.
package pubsub

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
)

// BrokerURI is the AMQP connection string, its own type so fx can resolve
// it unambiguously among every other plain string in the dependency graph.
type BrokerURI string

// NewPublisher builds a durable topic-exchange publisher against the given
// AMQP broker URI.
func NewPublisher(uri BrokerURI, logger watermill.LoggerAdapter) (message.Publisher, error) {
	cfg := amqp.NewDurablePubSubConfig(string(uri), nil)
	return amqp.NewPublisher(cfg, logger)
}

// NewSubscriber builds a subscriber bound to its own durable queue,
// consuming messages published under matching routing keys on the same
// exchange NewPublisher targets.
func NewSubscriber(uri BrokerURI, queueName string, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	cfg := amqp.NewDurablePubSubConfig(string(uri), amqp.GenerateQueueNameConstant(queueName))
	return amqp.NewSubscriber(cfg, logger)
}
