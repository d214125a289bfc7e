package matchhandlers

import (
	"context"
	"errors"

	matchevents "github.com/wukrit/fightrise-bot-sub001/pkg/events/match"
	"github.com/wukrit/fightrise-bot-sub001/pkg/handlerwrapper"
)

// HandleScoreReportRequested handles a player declaring the winner.
func (h *MatchHandlers) HandleScoreReportRequested(ctx context.Context, payload *matchevents.ScoreReportRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	if payload == nil {
		return nil, errors.New("payload cannot be nil")
	}

	id, err := parseMatchID(payload.MatchID)
	if err != nil {
		return failed(matchevents.ScoreReportFailedV1, payload.InteractionMeta, payload.MatchID, payload.DiscordID, err), nil
	}

	result, err := h.service.ReportScore(ctx, id, payload.DiscordID, payload.WinnerSlot)
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		return failed(matchevents.ScoreReportFailedV1, payload.InteractionMeta, payload.MatchID, payload.DiscordID, *result.Failure), nil
	}

	res := result.Success
	return []handlerwrapper.Result{scoped(matchevents.ScoreReportedV1, payload.InteractionMeta, matchevents.ScoreReportedPayloadV1{
		InteractionMeta: payload.InteractionMeta,
		MatchID:         payload.MatchID,
		DiscordID:       payload.DiscordID,
		WinnerSlot:      res.WinnerSlot,
		AutoCompleted:   res.AutoCompleted,
		RemoteReported:  res.RemoteReported,
	})}, nil
}
