package matchhandlers

import (
	"context"
	"errors"

	matchevents "github.com/wukrit/fightrise-bot-sub001/pkg/events/match"
	"github.com/wukrit/fightrise-bot-sub001/pkg/handlerwrapper"
)

// HandleResultConfirmationRequested handles the opponent confirming or
// disputing a pending result.
func (h *MatchHandlers) HandleResultConfirmationRequested(ctx context.Context, payload *matchevents.ResultConfirmationRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	if payload == nil {
		return nil, errors.New("payload cannot be nil")
	}

	id, err := parseMatchID(payload.MatchID)
	if err != nil {
		return failed(matchevents.ResultConfirmFailedV1, payload.InteractionMeta, payload.MatchID, payload.DiscordID, err), nil
	}

	result, err := h.service.ConfirmResult(ctx, id, payload.DiscordID, payload.Confirmed)
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		return failed(matchevents.ResultConfirmFailedV1, payload.InteractionMeta, payload.MatchID, payload.DiscordID, *result.Failure), nil
	}

	res := result.Success
	if !res.Confirmed {
		return []handlerwrapper.Result{scoped(matchevents.ResultDisputedV1, payload.InteractionMeta, matchevents.ResultDisputedPayloadV1{
			InteractionMeta: payload.InteractionMeta,
			MatchID:         payload.MatchID,
			DiscordID:       payload.DiscordID,
		})}, nil
	}
	return []handlerwrapper.Result{scoped(matchevents.ResultConfirmedV1, payload.InteractionMeta, matchevents.ResultConfirmedPayloadV1{
		InteractionMeta: payload.InteractionMeta,
		MatchID:         payload.MatchID,
		WinnerSlot:      res.WinnerSlot,
		RemoteReported:  res.RemoteReported,
	})}, nil
}
