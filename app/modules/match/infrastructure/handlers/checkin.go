package matchhandlers

import (
	"context"
	"errors"

	matchevents "github.com/wukrit/fightrise-bot-sub001/pkg/events/match"
	"github.com/wukrit/fightrise-bot-sub001/pkg/handlerwrapper"
)

// HandleCheckInRequested handles a check-in button press.
func (h *MatchHandlers) HandleCheckInRequested(ctx context.Context, payload *matchevents.CheckInRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	if payload == nil {
		return nil, errors.New("payload cannot be nil")
	}

	id, err := parseMatchID(payload.MatchID)
	if err != nil {
		return failed(matchevents.CheckInFailedV1, payload.InteractionMeta, payload.MatchID, payload.DiscordID, err), nil
	}

	result, err := h.service.CheckInPlayer(ctx, id, payload.DiscordID)
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		return failed(matchevents.CheckInFailedV1, payload.InteractionMeta, payload.MatchID, payload.DiscordID, *result.Failure), nil
	}

	res := result.Success
	return []handlerwrapper.Result{scoped(matchevents.CheckInSucceededV1, payload.InteractionMeta, matchevents.CheckInSucceededPayloadV1{
		InteractionMeta: payload.InteractionMeta,
		MatchID:         payload.MatchID,
		DiscordID:       payload.DiscordID,
		Slot:            res.Slot,
		BothCheckedIn:   res.BothCheckedIn,
	})}, nil
}
