// Package eventbus connects the bot to NATS: a watermill publisher and
// subscriber for domain events plus the raw connection used for
// request/reply with the Discord gateway.
package eventbus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"
	"github.com/nats-io/nkeys"
	"github.com/wukrit/fightrise-bot-sub001/pkg/attr"
)

// Config holds connection settings.
type Config struct {
	URL        string
	NKeySeed   string
	QueueGroup string
	ClientName string
}

// EventBus bundles a watermill publisher and subscriber over NATS core.
type EventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	conn       *nc.Conn
	logger     *slog.Logger
}

// NewEventBus connects to NATS and builds the watermill publisher and
// subscriber.
func NewEventBus(ctx context.Context, cfg Config, logger *slog.Logger) (*EventBus, error) {
	opts, err := connectOptions(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := nc.Connect(cfg.URL, opts...)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to connect to NATS", attr.Error(err))
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	wmLogger := watermill.NewSlogLogger(logger)
	marshaler := &nats.NATSMarshaler{}
	jsConfig := nats.JetStreamConfig{Disabled: true}

	publisher, err := nats.NewPublisher(
		nats.PublisherConfig{
			URL:         cfg.URL,
			Marshaler:   marshaler,
			NatsOptions: opts,
			JetStream:   jsConfig,
		},
		wmLogger,
	)
	if err != nil {
		conn.Close()
		logger.ErrorContext(ctx, "Failed to create watermill publisher", attr.Error(err))
		return nil, fmt.Errorf("failed to create watermill publisher: %w", err)
	}

	subscriber, err := nats.NewSubscriber(
		nats.SubscriberConfig{
			URL:              cfg.URL,
			QueueGroupPrefix: cfg.QueueGroup,
			Unmarshaler:      marshaler,
			NatsOptions:      opts,
			JetStream:        jsConfig,
		},
		wmLogger,
	)
	if err != nil {
		conn.Close()
		_ = publisher.Close()
		logger.ErrorContext(ctx, "Failed to create watermill subscriber", attr.Error(err))
		return nil, fmt.Errorf("failed to create watermill subscriber: %w", err)
	}

	logger.InfoContext(ctx, "Event bus connected", attr.String("url", cfg.URL))

	return &EventBus{
		publisher:  publisher,
		subscriber: subscriber,
		conn:       conn,
		logger:     logger,
	}, nil
}

// connectOptions builds the NATS options shared by every connection. A
// configured nkey seed switches on nkey challenge authentication.
func connectOptions(cfg Config) ([]nc.Option, error) {
	opts := []nc.Option{nc.RetryOnFailedConnect(true)}
	if cfg.ClientName != "" {
		opts = append(opts, nc.Name(cfg.ClientName))
	}
	if cfg.NKeySeed == "" {
		return opts, nil
	}

	kp, err := nkeys.FromSeed([]byte(cfg.NKeySeed))
	if err != nil {
		return nil, fmt.Errorf("invalid NATS nkey seed: %w", err)
	}
	pub, err := kp.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("failed to derive NATS nkey public key: %w", err)
	}
	return append(opts, nc.Nkey(pub, kp.Sign)), nil
}

// Publish implements message.Publisher.
func (eb *EventBus) Publish(topic string, msgs ...*message.Message) error {
	return eb.publisher.Publish(topic, msgs...)
}

// Subscribe implements message.Subscriber.
func (eb *EventBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return eb.subscriber.Subscribe(ctx, topic)
}

// Conn exposes the raw connection for request/reply traffic.
func (eb *EventBus) Conn() *nc.Conn {
	return eb.conn
}

// Close shuts down the subscriber, the publisher and the raw connection.
func (eb *EventBus) Close() error {
	var firstErr error
	if err := eb.subscriber.Close(); err != nil {
		firstErr = fmt.Errorf("failed to close subscriber: %w", err)
	}
	if err := eb.publisher.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to close publisher: %w", err)
	}
	eb.conn.Close()
	return firstErr
}
