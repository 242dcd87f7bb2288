package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/donsalieri1930/school-bus-api/internal/api"
	"github.com/donsalieri1930/school-bus-api/internal/config"
	"github.com/donsalieri1930/school-bus-api/internal/dates"
	"github.com/donsalieri1930/school-bus-api/internal/events"
	"github.com/donsalieri1930/school-bus-api/internal/processor"
	"github.com/donsalieri1930/school-bus-api/internal/smsapi"
	"github.com/donsalieri1930/school-bus-api/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("busapi starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		slog.Error("invalid timezone", "timezone", cfg.Timezone, "error", err)
		os.Exit(1)
	}

	// Database
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database connected")

	// SMS gateway
	if cfg.SMSAPIToken == "" {
		slog.Error("SMSAPI_TOKEN is required")
		os.Exit(1)
	}
	sender := smsapi.NewClient(cfg.SMSAPIToken, cfg.SMSAPIURL, slog.Default())

	// Outcome events (optional — the service runs without a bus)
	var bus processor.Publisher
	if cfg.NatsURL != "" {
		evc, err := events.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer evc.Close()
		bus = evc
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS not configured — running without outcome events")
	}

	// Date pipeline
	extractor := dates.NewExtractor(loc, nil)
	validator := dates.NewValidator(dates.Rules{
		FutureLimitDays: cfg.FutureLimitDays,
		MaxRangeDays:    cfg.MaxRangeDays,
		CutoffHour:      cfg.CutoffHour,
		EnforceCutoff:   cfg.EnforceCutoff,
	}, loc, nil)

	proc := processor.New(db, sender, bus, extractor, validator, processor.Messages{
		ConfirmationFormat: cfg.ConfirmationFormat,
		SystemFailure:      cfg.SystemFailureText,
	}, nil, slog.Default())

	// HTTP boundary
	srv := api.NewServer(api.Config{
		Port:             cfg.Port,
		WhitelistEnabled: cfg.WhitelistEnabled,
		IPWhitelist:      cfg.IPWhitelist,
		AdminUsername:    cfg.AdminUsername,
		AdminPassword:    cfg.AdminPassword,
	}, proc, db, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("busapi ready", "port", cfg.Port, "timezone", cfg.Timezone)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("busapi stopped")
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
