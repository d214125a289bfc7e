package matchhandlers

import (
	"log/slog"

	"github.com/google/uuid"
	matchservice "github.com/wukrit/fightrise-bot-sub001/app/modules/match/application"
	matchevents "github.com/wukrit/fightrise-bot-sub001/pkg/events/match"
	"github.com/wukrit/fightrise-bot-sub001/pkg/handlerwrapper"
)

// MatchHandlers implements the Handlers interface for match interactions.
type MatchHandlers struct {
	service matchservice.Service
	logger  *slog.Logger
}

var _ Handlers = (*MatchHandlers)(nil)

// NewMatchHandlers creates a new MatchHandlers instance.
func NewMatchHandlers(service matchservice.Service, logger *slog.Logger) *MatchHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &MatchHandlers{service: service, logger: logger}
}

// scoped builds a Result published under the guild of the interaction.
func scoped(topic string, meta matchevents.InteractionMeta, payload any) handlerwrapper.Result {
	return handlerwrapper.Result{
		Topic:    topic,
		Payload:  payload,
		Metadata: map[string]string{handlerwrapper.MetadataGuildID: meta.GuildID},
	}
}

func failed(topic string, meta matchevents.InteractionMeta, matchID, discordID string, err error) []handlerwrapper.Result {
	return []handlerwrapper.Result{scoped(topic, meta, matchevents.ActionFailedPayloadV1{
		InteractionMeta: meta,
		MatchID:         matchID,
		DiscordID:       discordID,
		Reason:          matchservice.FailureReason(err),
		Message:         err.Error(),
	})}
}

// parseMatchID treats a malformed id the same as an unknown match.
func parseMatchID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, matchservice.ErrMatchNotFound
	}
	return id, nil
}
