// Command report sends the daily per-line email digest of today's SMS
// reports. Intended to run once per day from cron, after the same-day cutoff.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/donsalieri1930/school-bus-api/internal/config"
	"github.com/donsalieri1930/school-bus-api/internal/report"
	"github.com/donsalieri1930/school-bus-api/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	if cfg.SMTPHost == "" || cfg.EmailFrom == "" {
		slog.Error("SMTP_HOST and EMAIL_FROM are required")
		os.Exit(1)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		slog.Error("invalid timezone", "timezone", cfg.Timezone, "error", err)
		os.Exit(1)
	}

	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	recipients, err := db.LineEmails(ctx)
	if err != nil {
		slog.Error("failed to load line recipients", "error", err)
		os.Exit(1)
	}
	rows, err := db.TodaysReports(ctx)
	if err != nil {
		slog.Error("failed to load todays reports", "error", err)
		os.Exit(1)
	}
	slog.Info("report data loaded", "lines", len(recipients), "rows", len(rows))

	sender := report.NewSender(report.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		From:     cfg.EmailFrom,
		Password: cfg.EmailPassword,
	}, slog.Default())

	if err := sender.SendDigests(recipients, rows, time.Now().In(loc)); err != nil {
		slog.Error("digest delivery incomplete", "error", err)
		os.Exit(1)
	}
	slog.Info("daily digests sent")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
