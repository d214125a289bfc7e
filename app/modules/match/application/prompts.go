package matchservice

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	matchdb "github.com/wukrit/fightrise-bot-sub001/app/modules/match/infrastructure/repositories"
	"github.com/wukrit/fightrise-bot-sub001/internal/notify"
)

// Component custom ids understood by the Discord gateway.
const (
	ActionCheckIn = "checkin"
	ActionReport  = "report"
	ActionConfirm = "confirm"
	ActionDispute = "dispute"
)

// maxThreadName is Discord's limit on thread names.
const maxThreadName = 100

// CustomID builds a component id such as "report:<match>:1".
func CustomID(action string, matchID uuid.UUID, extra ...string) string {
	parts := append([]string{action, matchID.String()}, extra...)
	return strings.Join(parts, ":")
}

func mention(p *matchdb.MatchPlayer) string {
	if p == nil {
		return "TBD"
	}
	if p.DiscordID != nil && *p.DiscordID != "" {
		return fmt.Sprintf("<@%s>", *p.DiscordID)
	}
	return p.PlayerName
}

func playerName(p *matchdb.MatchPlayer) string {
	if p == nil {
		return "TBD"
	}
	return p.PlayerName
}

func threadName(m *matchdb.Match) string {
	name := fmt.Sprintf("%s: %s vs %s", m.RoundText, playerName(m.PlayerBySlot(1)), playerName(m.PlayerBySlot(2)))
	if m.RoundText == "" {
		name = fmt.Sprintf("%s vs %s", playerName(m.PlayerBySlot(1)), playerName(m.PlayerBySlot(2)))
	}
	if r := []rune(name); len(r) > maxThreadName {
		name = string(r[:maxThreadName])
	}
	return name
}

func checkInPrompt(m *matchdb.Match) notify.Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n%s vs %s\n", m.RoundText, mention(m.PlayerBySlot(1)), mention(m.PlayerBySlot(2)))
	if m.CheckInDeadline != nil {
		fmt.Fprintf(&b, "Your match is ready. Check in <t:%d:R>.", m.CheckInDeadline.Unix())
	} else {
		b.WriteString("Your match is ready. Check in to start.")
	}
	return notify.Prompt{
		Content: b.String(),
		Buttons: []notify.Button{
			{CustomID: CustomID(ActionCheckIn, m.ID), Label: "Check in", Style: notify.ButtonPrimary},
		},
	}
}

func reportPrompt(m *matchdb.Match) notify.Prompt {
	p1, p2 := m.PlayerBySlot(1), m.PlayerBySlot(2)
	return notify.Prompt{
		Content: "Both players are checked in. Play your set, then report the winner.",
		Buttons: []notify.Button{
			{CustomID: CustomID(ActionReport, m.ID, "1"), Label: playerName(p1) + " won", Style: notify.ButtonSecondary},
			{CustomID: CustomID(ActionReport, m.ID, "2"), Label: playerName(p2) + " won", Style: notify.ButtonSecondary},
		},
	}
}

func confirmPrompt(m *matchdb.Match, winner *matchdb.MatchPlayer) notify.Prompt {
	var opponent *matchdb.MatchPlayer
	if winner != nil {
		opponent = m.Opponent(winner)
	}
	return notify.Prompt{
		Content: fmt.Sprintf("%s reported a win. %s, please confirm or dispute.", mention(winner), mention(opponent)),
		Buttons: []notify.Button{
			{CustomID: CustomID(ActionConfirm, m.ID), Label: "Confirm", Style: notify.ButtonSuccess},
			{CustomID: CustomID(ActionDispute, m.ID), Label: "Dispute", Style: notify.ButtonDanger},
		},
	}
}

func disputePrompt(m *matchdb.Match) notify.Prompt {
	p := reportPrompt(m)
	p.Content = "The reported result was disputed. Report the winner again."
	return p
}

func resultPrompt(m *matchdb.Match, winner *matchdb.MatchPlayer) notify.Prompt {
	content := fmt.Sprintf("Result recorded: **%s** wins.", playerName(winner))
	p1, p2 := m.PlayerBySlot(1), m.PlayerBySlot(2)
	if p1 != nil && p2 != nil && p1.ReportedScore != nil && p2.ReportedScore != nil {
		content = fmt.Sprintf("Result recorded: **%s** wins (%d-%d).", playerName(winner), *p1.ReportedScore, *p2.ReportedScore)
	}
	return notify.Prompt{Content: content}
}

func deadlineFrom(now time.Time, window time.Duration) *time.Time {
	d := now.Add(window)
	return &d
}
