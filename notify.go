package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/slack-go/slack"
)

// SlackNotifier posts ward escalation messages when the live poll first sees
// residents at the two highest severity levels.
type SlackNotifier struct {
	api       *slack.Client
	channelID string
	wardName  string
}

// NewSlackNotifier returns nil when Slack is not configured; a nil notifier
// simply means no escalation hook is installed.
func NewSlackNotifier(cfg Config) *SlackNotifier {
	if !cfg.SlackConfigured() {
		return nil
	}
	return &SlackNotifier{
		api:       slack.New(cfg.SlackBotToken),
		channelID: cfg.SlackAlertChannelID,
		wardName:  cfg.WardName,
	}
}

// NotifyUrgent posts the escalation message. Failures are logged and
// swallowed: a Slack outage must never affect the dashboard itself.
func (n *SlackNotifier) NotifyUrgent(count int, rows []Summary) {
	msg := FormatUrgentAlert(n.wardName, count, rows)
	_, _, err := n.api.PostMessage(n.channelID, slack.MsgOptionText(msg, false))
	if err != nil {
		log.Printf("slack alert post error: %v", err)
		return
	}
	log.Printf("slack alert posted channel=%s urgent=%d", n.channelID, count)
}

// maxAlertLines bounds the per-resident detail in one escalation message.
const maxAlertLines = 5

// FormatUrgentAlert builds the escalation text: a headline plus one line per
// flagged resident, riskiest first, truncated past maxAlertLines.
func FormatUrgentAlert(wardName string, count int, rows []Summary) string {
	noun := "residents"
	if count == 1 {
		noun = "resident"
	}
	var out []string
	out = append(out, fmt.Sprintf(":rotating_light: %s: %d %s at high or urgent risk", wardName, count, noun))

	listed := 0
	for _, row := range SortRows(rows, SortByScore) {
		level := row.Level()
		if level != AlertHigh && level != AlertUrgent {
			continue
		}
		if listed == maxAlertLines {
			out = append(out, fmt.Sprintf("…and %d more", count-maxAlertLines))
			break
		}
		out = append(out, fmt.Sprintf("• %s — %.0f%% (%s)", row.DisplayID(), row.RiskScore*100, StyleFor(level).Label))
		listed++
	}
	return strings.Join(out, "\n")
}
