package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/slack-go/slack"
)

// StartBatchScheduler runs the configured folder batch on a cron schedule
// and records each run in the assessment history. The schedule is a standard
// 5-field cron expression (minute hour day-of-month month day-of-week).
// Examples: "0 7 * * *" (daily 7am), "0 7 * * 1-5" (weekday mornings).
func StartBatchScheduler(cfg Config, remote *RemoteClient, db *sql.DB) {
	schedule := strings.TrimSpace(cfg.BatchSchedule)
	if schedule == "" {
		log.Println("Scheduled batch disabled (batch_schedule not set)")
		return
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		log.Printf("Invalid batch_schedule '%s': %v, scheduled batch disabled", schedule, err)
		return
	}

	log.Printf("Scheduled batch enabled (cron: %s) folder=%s threshold=%.2f", schedule, cfg.BatchFolderPath, cfg.BatchThreshold)

	go func() {
		for {
			now := time.Now()
			next := sched.Next(now)
			wait := next.Sub(now)
			log.Printf("Next scheduled batch at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

			time.Sleep(wait)

			runID := uuid.NewString()
			result, runErr := remote.PredictFolder(context.Background(), cfg.BatchFolderPath, cfg.BatchThreshold)
			if runErr != nil {
				log.Printf("Scheduled batch error run=%s: %v", runID, runErr)
				continue
			}

			summary := FormatBatchSummary(result)
			log.Printf("Scheduled batch complete run=%s: %s", runID, summary)

			if err := InsertAssessmentRecord(db, batchHistoryRecord(runID, cfg.BatchFolderPath, result)); err != nil {
				log.Printf("Scheduled batch history insert error run=%s: %v", runID, err)
			}

			if cfg.SlackConfigured() {
				api := slack.New(cfg.SlackBotToken)
				_, _, postErr := api.PostMessage(cfg.SlackAlertChannelID, slack.MsgOptionText(
					fmt.Sprintf("Scheduled batch complete: %s", summary), false))
				if postErr != nil {
					log.Printf("Scheduled batch post error: %v", postErr)
				}
			}
		}
	}()
}

func batchHistoryRecord(runID, source string, result BatchResult) AssessmentRecord {
	top := AlertNone
	topScore := 0.0
	for _, row := range result.Flagged {
		if row.RiskScore > topScore || top == AlertNone {
			topScore = row.RiskScore
			top = row.Level()
		}
	}
	return AssessmentRecord{
		RunID:      runID,
		Kind:       "batch",
		Payload:    source,
		RiskScore:  topScore,
		AlertLevel: string(top),
		Action:     fmt.Sprintf("%d assessed, %d flagged", result.Total, len(result.Flagged)),
	}
}

// FormatBatchSummary returns a human-readable one-liner for a batch result.
func FormatBatchSummary(result BatchResult) string {
	if result.Total == 0 {
		return "0 residents assessed."
	}
	var parts []string
	for _, level := range AllAlertLevels {
		if count := result.CountFor(level); count > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", count, strings.ToLower(string(level))))
		}
	}
	breakdown := "no level breakdown"
	if len(parts) > 0 {
		breakdown = strings.Join(parts, ", ")
	}
	return fmt.Sprintf("%d residents assessed (%s), %d flagged above %.2f",
		result.Total, breakdown, len(result.Flagged), result.Threshold)
}
