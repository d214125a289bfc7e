package tournamenthandlers

import (
	"context"

	tournamentevents "github.com/wukrit/fightrise-bot-sub001/pkg/events/tournament"
	"github.com/wukrit/fightrise-bot-sub001/pkg/handlerwrapper"
)

// Handlers defines the contract for tournament administration handlers.
type Handlers interface {
	HandleSetupRequested(ctx context.Context, payload *tournamentevents.SetupRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandlePollRequested(ctx context.Context, payload *tournamentevents.PollRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandleCancelRequested(ctx context.Context, payload *tournamentevents.CancelRequestedPayloadV1) ([]handlerwrapper.Result, error)
}
