package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port        int
	DatabaseURL string
	LogLevel    string

	// SMS provider
	SMSAPIToken string
	SMSAPIURL   string

	// Inbound webhook IP whitelist
	WhitelistEnabled bool
	IPWhitelist      []string

	// Admin view credentials
	AdminUsername string
	AdminPassword string

	// Business rules
	Timezone        string
	MaxRangeDays    int
	FutureLimitDays int
	EnforceCutoff   bool
	CutoffHour      int

	// Message templates
	ConfirmationFormat string
	SystemFailureText  string

	// Outcome events (optional)
	NatsURL   string
	NatsToken string

	// Daily report mail
	SMTPHost      string
	SMTPPort      int
	EmailFrom     string
	EmailPassword string
}

func Load() Config {
	return Config{
		Port:        envInt("BUSAPI_PORT", 8640),
		DatabaseURL: envStr("DATABASE_URL", ""),
		LogLevel:    envStr("LOG_LEVEL", "info"),

		SMSAPIToken: envStr("SMSAPI_TOKEN", ""),
		SMSAPIURL:   envStr("SMSAPI_URL", "https://api.smsapi.pl/sms.do"),

		WhitelistEnabled: envBool("WHITELIST_REQUESTS", true),
		IPWhitelist:      envList("IP_WHITELIST", nil),

		AdminUsername: envStr("ADMIN_USERNAME", ""),
		AdminPassword: envStr("ADMIN_PASSWORD", ""),

		Timezone:        envStr("TIMEZONE", "Europe/Warsaw"),
		MaxRangeDays:    envInt("MAX_RANGE_DAYS", 30),
		FutureLimitDays: envInt("FUTURE_LIMIT_DAYS", 30),
		EnforceCutoff:   envBool("ENFORCE_CUTOFF_TIME", true),
		CutoffHour:      envInt("CUTOFF_HOUR", 13),

		ConfirmationFormat: envStr("CONFIRMATION_FORMAT", "Zgłoszenie dla %s na %s zostało przyjęte."),
		SystemFailureText: envStr("SYSTEM_FAILURE_TEXT",
			"Zgłoszenie nie zostało przyjęte z powodu awarii systemu. Prosimy o kontakt z administracją."),

		NatsURL:   envStr("NATS_URL", ""),
		NatsToken: envStr("NATS_TOKEN", ""),

		SMTPHost:      envStr("SMTP_HOST", ""),
		SMTPPort:      envInt("SMTP_PORT", 587),
		EmailFrom:     envStr("EMAIL_FROM", ""),
		EmailPassword: envStr("EMAIL_PASSWORD", ""),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// envList parses a comma-separated env var, trimming whitespace around items.
func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
