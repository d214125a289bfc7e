package matchhandlers

import (
	"context"

	matchevents "github.com/wukrit/fightrise-bot-sub001/pkg/events/match"
	"github.com/wukrit/fightrise-bot-sub001/pkg/handlerwrapper"
)

// Handlers defines the contract for match interaction handlers.
type Handlers interface {
	HandleCheckInRequested(ctx context.Context, payload *matchevents.CheckInRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandleScoreReportRequested(ctx context.Context, payload *matchevents.ScoreReportRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandleResultConfirmationRequested(ctx context.Context, payload *matchevents.ResultConfirmationRequestedPayloadV1) ([]handlerwrapper.Result, error)
}
