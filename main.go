package main

import (
	"context"
	"log"
	"net/http"
)

func main() {
	cfg := LoadConfig()
	appliedTimeout := ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
	log.Printf("Config loaded. Ward=%s Listen=%s DefaultServer=%s Refresh=%s ExternalHTTPTimeout=%s Slack=%t Explain=%t",
		cfg.WardName, cfg.ListenAddr, cfg.DefaultServerURL, cfg.RefreshInterval(), appliedTimeout,
		cfg.SlackConfigured(), cfg.ExplainConfigured())

	db, err := InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	defer db.Close()
	log.Printf("Database initialized at %s", cfg.DBPath)

	remote := NewRemoteClient(db, cfg.DefaultServerURL)
	poller := NewPoller(remote.CurrentAlerts)
	if notifier := NewSlackNotifier(cfg); notifier != nil {
		poller.SetUrgentHook(notifier.NotifyUrgent)
		log.Printf("Slack escalation enabled channel=%s", cfg.SlackAlertChannelID)
	}

	// Startup triggers exactly one alerts fetch; a failure here just means
	// the live view starts empty until the next refresh.
	ctx, cancel := context.WithTimeout(context.Background(), externalHTTPClient.Timeout)
	if err := poller.Refresh(ctx); err != nil {
		log.Printf("initial alerts fetch error: %v", err)
	}
	cancel()

	StartBatchScheduler(cfg, remote, db)

	srv := NewServer(cfg, db, remote, poller)
	log.Printf("Starting ward dashboard on %s", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, srv.Router()); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
