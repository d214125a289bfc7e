// Package handlerwrapper adapts typed handlers to watermill handler funcs.
package handlerwrapper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/bytedance/sonic"
	"github.com/wukrit/fightrise-bot-sub001/pkg/attr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// MetadataTopic names the metadata key that carries an outgoing message's
// destination topic.
const MetadataTopic = "topic"

// MetadataGuildID names the metadata key used for guild scoped publishing.
const MetadataGuildID = "guild_id"

// Result is one outgoing message produced by a typed handler.
type Result struct {
	Topic    string
	Payload  any
	Metadata map[string]string
}

// WrapTransformingTyped decodes the incoming payload into T, runs handler and
// encodes every Result into a message whose "topic" metadata names where it
// should be published.
//
// Undecodable payloads are logged and acked; retrying them cannot succeed.
func WrapTransformingTyped[T any](
	handlerName string,
	logger *slog.Logger,
	tracer trace.Tracer,
	handler func(context.Context, *T) ([]Result, error),
) message.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("handlerwrapper")
	}

	return func(msg *message.Message) ([]*message.Message, error) {
		ctx := attr.WithCorrelationID(msg.Context(), middleware.MessageCorrelationID(msg))
		ctx, span := tracer.Start(ctx, handlerName, trace.WithAttributes(
			attribute.String("messaging.message.id", msg.UUID),
		))
		defer span.End()

		payload := new(T)
		if err := sonic.Unmarshal(msg.Payload, payload); err != nil {
			logger.ErrorContext(ctx, "Dropping undecodable message",
				attr.ExtractCorrelationID(ctx),
				attr.String("handler", handlerName),
				attr.String("message_id", msg.UUID),
				attr.Error(err),
			)
			span.RecordError(err)
			return nil, nil
		}

		out, err := handler(ctx, payload)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		msgs := make([]*message.Message, 0, len(out))
		for _, r := range out {
			m, err := NewMessage(ctx, r)
			if err != nil {
				span.RecordError(err)
				return nil, err
			}
			msgs = append(msgs, m)
		}
		return msgs, nil
	}
}

// NewMessage encodes a Result into a watermill message, carrying over the
// context correlation id.
func NewMessage(ctx context.Context, r Result) (*message.Message, error) {
	data, err := sonic.Marshal(r.Payload)
	if err != nil {
		return nil, fmt.Errorf("handlerwrapper.NewMessage: %w", err)
	}

	m := message.NewMessage(watermill.NewUUID(), data)
	m.Metadata.Set(MetadataTopic, r.Topic)
	if id := attr.CorrelationID(ctx); id != "" {
		middleware.SetCorrelationID(id, m)
	}
	for k, v := range r.Metadata {
		m.Metadata.Set(k, v)
	}
	return m, nil
}
