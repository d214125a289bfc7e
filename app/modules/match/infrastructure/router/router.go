package matchrouter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	matchhandlers "github.com/wukrit/fightrise-bot-sub001/app/modules/match/infrastructure/handlers"
	"github.com/wukrit/fightrise-bot-sub001/pkg/attr"
	"github.com/wukrit/fightrise-bot-sub001/pkg/eventbus"
	matchevents "github.com/wukrit/fightrise-bot-sub001/pkg/events/match"
	"github.com/wukrit/fightrise-bot-sub001/pkg/handlerwrapper"
	"go.opentelemetry.io/otel/trace"
)

// MatchRouter handles routing for match interaction events.
type MatchRouter struct {
	logger     *slog.Logger
	Router     *message.Router
	subscriber message.Subscriber
	publisher  message.Publisher
	tracer     trace.Tracer
}

// NewMatchRouter creates a new MatchRouter.
func NewMatchRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber message.Subscriber,
	publisher message.Publisher,
	tracer trace.Tracer,
) *MatchRouter {
	return &MatchRouter{
		logger:     logger,
		Router:     router,
		subscriber: subscriber,
		publisher:  publisher,
		tracer:     tracer,
	}
}

// Configure registers the match handlers on the router.
func (r *MatchRouter) Configure(handlers matchhandlers.Handlers) error {
	if err := r.RegisterHandlers(handlers); err != nil {
		return fmt.Errorf("failed to register handlers: %w", err)
	}
	return nil
}

type handlerDeps struct {
	router     *message.Router
	subscriber message.Subscriber
	publisher  message.Publisher
	logger     *slog.Logger
	tracer     trace.Tracer
}

// registerHandler registers a transformation-pattern handler with a typed
// payload. Produced messages go to the topic in their metadata, scoped by
// guild.
func registerHandler[T any](
	deps handlerDeps,
	topic string,
	handler func(context.Context, *T) ([]handlerwrapper.Result, error),
) {
	handlerName := "match." + topic
	wrapped := handlerwrapper.WrapTransformingTyped(handlerName, deps.logger, deps.tracer, handler)

	deps.router.AddHandler(
		handlerName,
		topic,
		deps.subscriber,
		"",
		nil,
		func(msg *message.Message) ([]*message.Message, error) {
			out, err := wrapped(msg)
			if err != nil {
				return nil, err
			}
			for _, m := range out {
				if err := eventbus.PublishResolved(deps.publisher, m); err != nil {
					deps.logger.ErrorContext(msg.Context(), "Failed to publish handler result",
						attr.String("handler", handlerName),
						attr.String("topic", m.Metadata.Get(handlerwrapper.MetadataTopic)),
						attr.Error(err),
					)
					return nil, err
				}
			}
			return nil, nil
		},
	)
}

// RegisterHandlers registers the match interaction handlers.
func (r *MatchRouter) RegisterHandlers(handlers matchhandlers.Handlers) error {
	deps := handlerDeps{
		router:     r.Router,
		subscriber: r.subscriber,
		publisher:  r.publisher,
		logger:     r.logger,
		tracer:     r.tracer,
	}

	registerHandler(deps, matchevents.CheckInRequestedV1, handlers.HandleCheckInRequested)
	registerHandler(deps, matchevents.ScoreReportRequestedV1, handlers.HandleScoreReportRequested)
	registerHandler(deps, matchevents.ResultConfirmationRequestedV1, handlers.HandleResultConfirmationRequested)

	return nil
}
