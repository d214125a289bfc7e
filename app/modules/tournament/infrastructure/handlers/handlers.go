package tournamenthandlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	tournamentservice "github.com/wukrit/fightrise-bot-sub001/app/modules/tournament/application"
	"github.com/wukrit/fightrise-bot-sub001/pkg/attr"
	tournamentevents "github.com/wukrit/fightrise-bot-sub001/pkg/events/tournament"
	"github.com/wukrit/fightrise-bot-sub001/pkg/handlerwrapper"
)

// TournamentHandlers implements the Handlers interface.
type TournamentHandlers struct {
	service tournamentservice.Service
	logger  *slog.Logger
}

var _ Handlers = (*TournamentHandlers)(nil)

// NewTournamentHandlers creates a new TournamentHandlers instance.
func NewTournamentHandlers(service tournamentservice.Service, logger *slog.Logger) *TournamentHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &TournamentHandlers{service: service, logger: logger}
}

func guildScoped(guildID string) map[string]string {
	return map[string]string{handlerwrapper.MetadataGuildID: guildID}
}

// HandleSetupRequested links a start.gg tournament to a Discord channel.
func (h *TournamentHandlers) HandleSetupRequested(ctx context.Context, payload *tournamentevents.SetupRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	if payload == nil {
		return nil, errors.New("payload cannot be nil")
	}

	result, err := h.service.SetupTournament(ctx, payload.Slug, payload.GuildID, payload.ChannelID)
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		return []handlerwrapper.Result{{
			Topic: tournamentevents.SetupFailedV1,
			Payload: tournamentevents.SetupFailedPayloadV1{
				GuildID:   payload.GuildID,
				ChannelID: payload.ChannelID,
				Slug:      payload.Slug,
				Reason:    (*result.Failure).Error(),
			},
			Metadata: guildScoped(payload.GuildID),
		}}, nil
	}

	res := result.Success
	return []handlerwrapper.Result{{
		Topic: tournamentevents.SetupSucceededV1,
		Payload: tournamentevents.SetupSucceededPayloadV1{
			GuildID:       payload.GuildID,
			ChannelID:     payload.ChannelID,
			TournamentID:  res.TournamentID.String(),
			Name:          res.Name,
			Phase:         string(res.Phase),
			EventCount:    res.EventCount,
			PollScheduled: res.PollScheduled,
		},
		Metadata: guildScoped(payload.GuildID),
	}}, nil
}

// HandlePollRequested schedules an immediate poll. It produces no messages.
func (h *TournamentHandlers) HandlePollRequested(ctx context.Context, payload *tournamentevents.PollRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	if payload == nil {
		return nil, errors.New("payload cannot be nil")
	}

	id, err := uuid.Parse(payload.TournamentID)
	if err != nil {
		h.logger.WarnContext(ctx, "Ignoring poll request with malformed tournament id",
			attr.ExtractCorrelationID(ctx),
			attr.String("tournament_id", payload.TournamentID),
		)
		return nil, nil
	}

	result, err := h.service.RequestPoll(ctx, id)
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		h.logger.WarnContext(ctx, "Poll request refused",
			attr.ExtractCorrelationID(ctx),
			attr.TournamentID(id),
			attr.Error(*result.Failure),
		)
	}
	return nil, nil
}

// HandleCancelRequested stops tracking a tournament.
func (h *TournamentHandlers) HandleCancelRequested(ctx context.Context, payload *tournamentevents.CancelRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	if payload == nil {
		return nil, errors.New("payload cannot be nil")
	}

	fail := func(reason string) []handlerwrapper.Result {
		return []handlerwrapper.Result{{
			Topic: tournamentevents.CancelFailedV1,
			Payload: tournamentevents.CancelFailedPayloadV1{
				GuildID:      payload.GuildID,
				TournamentID: payload.TournamentID,
				Reason:       reason,
			},
			Metadata: guildScoped(payload.GuildID),
		}}
	}

	id, err := uuid.Parse(payload.TournamentID)
	if err != nil {
		return fail(tournamentservice.ErrTournamentNotFound.Error()), nil
	}

	result, err := h.service.CancelTournament(ctx, id)
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		return fail((*result.Failure).Error()), nil
	}
	return []handlerwrapper.Result{{
		Topic: tournamentevents.CancelledV1,
		Payload: tournamentevents.CancelledPayloadV1{
			GuildID:      payload.GuildID,
			TournamentID: payload.TournamentID,
		},
		Metadata: guildScoped(payload.GuildID),
	}}, nil
}
