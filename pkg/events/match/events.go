// Package matchevents defines the NATS topics and payloads exchanged with the
// Discord gateway for match interactions.
package matchevents

// Inbound requests, published by the gateway when a player presses a button.
const (
	CheckInRequestedV1            = "match.checkin.requested.v1"
	ScoreReportRequestedV1        = "match.score.report.requested.v1"
	ResultConfirmationRequestedV1 = "match.result.confirm.requested.v1"
)

// Outbound outcomes. Each is published with a guild scope suffix.
const (
	CheckInSucceededV1    = "match.checkin.succeeded.v1"
	CheckInFailedV1       = "match.checkin.failed.v1"
	ScoreReportedV1       = "match.score.reported.v1"
	ScoreReportFailedV1   = "match.score.report.failed.v1"
	ResultConfirmedV1     = "match.result.confirmed.v1"
	ResultDisputedV1      = "match.result.disputed.v1"
	ResultConfirmFailedV1 = "match.result.confirm.failed.v1"
)

// InteractionMeta identifies the Discord interaction a request came from so
// the gateway can answer it.
type InteractionMeta struct {
	GuildID       string `json:"guild_id"`
	ChannelID     string `json:"channel_id,omitempty"`
	InteractionID string `json:"interaction_id,omitempty"`
}

// CheckInRequestedPayloadV1 is sent when a player presses the check-in button.
type CheckInRequestedPayloadV1 struct {
	InteractionMeta
	MatchID   string `json:"match_id"`
	DiscordID string `json:"discord_id"`
}

// CheckInSucceededPayloadV1 reports a successful check-in.
type CheckInSucceededPayloadV1 struct {
	InteractionMeta
	MatchID       string `json:"match_id"`
	DiscordID     string `json:"discord_id"`
	Slot          int    `json:"slot"`
	BothCheckedIn bool   `json:"both_checked_in"`
}

// ScoreReportRequestedPayloadV1 is sent when a player declares a winner.
type ScoreReportRequestedPayloadV1 struct {
	InteractionMeta
	MatchID    string `json:"match_id"`
	DiscordID  string `json:"discord_id"`
	WinnerSlot int    `json:"winner_slot"`
}

// ScoreReportedPayloadV1 reports an accepted score report.
type ScoreReportedPayloadV1 struct {
	InteractionMeta
	MatchID        string `json:"match_id"`
	DiscordID      string `json:"discord_id"`
	WinnerSlot     int    `json:"winner_slot"`
	AutoCompleted  bool   `json:"auto_completed"`
	RemoteReported bool   `json:"remote_reported"`
}

// ResultConfirmationRequestedPayloadV1 is sent when the opponent confirms or
// disputes a pending result.
type ResultConfirmationRequestedPayloadV1 struct {
	InteractionMeta
	MatchID   string `json:"match_id"`
	DiscordID string `json:"discord_id"`
	Confirmed bool   `json:"confirmed"`
}

// ResultConfirmedPayloadV1 reports a confirmed result.
type ResultConfirmedPayloadV1 struct {
	InteractionMeta
	MatchID        string `json:"match_id"`
	WinnerSlot     int    `json:"winner_slot"`
	RemoteReported bool   `json:"remote_reported"`
}

// ResultDisputedPayloadV1 reports a dispute that reopened reporting.
type ResultDisputedPayloadV1 struct {
	InteractionMeta
	MatchID   string `json:"match_id"`
	DiscordID string `json:"discord_id"`
}

// ActionFailedPayloadV1 is shared by every *.failed topic. Reason is a stable
// machine-readable code and Message is safe to show to the player.
type ActionFailedPayloadV1 struct {
	InteractionMeta
	MatchID   string `json:"match_id"`
	DiscordID string `json:"discord_id"`
	Reason    string `json:"reason"`
	Message   string `json:"message"`
}
