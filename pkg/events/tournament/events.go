// Package tournamentevents defines tournament administration topics.
package tournamentevents

const (
	SetupRequestedV1 = "tournament.setup.requested.v1"
	SetupSucceededV1 = "tournament.setup.succeeded.v1"
	SetupFailedV1    = "tournament.setup.failed.v1"

	PollRequestedV1 = "tournament.poll.requested.v1"

	CancelRequestedV1 = "tournament.cancel.requested.v1"
	CancelledV1       = "tournament.cancelled.v1"
	CancelFailedV1    = "tournament.cancel.failed.v1"
)

// SetupRequestedPayloadV1 links a start.gg tournament to a Discord channel.
type SetupRequestedPayloadV1 struct {
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id"`
	Slug      string `json:"slug"`
}

// SetupSucceededPayloadV1 is published once the tournament is stored and its
// first poll is queued.
type SetupSucceededPayloadV1 struct {
	GuildID       string `json:"guild_id"`
	ChannelID     string `json:"channel_id"`
	TournamentID  string `json:"tournament_id"`
	Name          string `json:"name"`
	Phase         string `json:"phase"`
	EventCount    int    `json:"event_count"`
	PollScheduled bool   `json:"poll_scheduled"`
}

// SetupFailedPayloadV1 reports why setup was refused.
type SetupFailedPayloadV1 struct {
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id"`
	Slug      string `json:"slug"`
	Reason    string `json:"reason"`
}

// PollRequestedPayloadV1 asks for an immediate poll.
type PollRequestedPayloadV1 struct {
	TournamentID string `json:"tournament_id"`
}

// CancelRequestedPayloadV1 stops a tournament's polling for good.
type CancelRequestedPayloadV1 struct {
	GuildID      string `json:"guild_id"`
	TournamentID string `json:"tournament_id"`
}

// CancelledPayloadV1 confirms a cancellation.
type CancelledPayloadV1 struct {
	GuildID      string `json:"guild_id"`
	TournamentID string `json:"tournament_id"`
}

// CancelFailedPayloadV1 reports why a cancellation was refused.
type CancelFailedPayloadV1 struct {
	GuildID      string `json:"guild_id"`
	TournamentID string `json:"tournament_id"`
	Reason       string `json:"reason"`
}
