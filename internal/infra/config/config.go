package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	Platform      string // "discord" or "telegram"
	DiscordToken  string
	TelegramToken string
	DatabaseURL   string
	RedisURL      string // Optional; empty means in-process session cache
	LogLevel      string
	Environment   string

	CronSpecStandupTick  string // Per-minute schedule evaluation
	CronSpecDeliveryTick string // Due delivery job scan
	CronSpecCleanup      string // Retention sweep

	ExportDir   string // Directory for CSV exports
	SheetsToken string // OAuth bearer token for the Sheets API; empty disables
	NotionToken string // Integration token for the Notion API; empty disables
}

const (
	PlatformDiscord  = "discord"
	PlatformTelegram = "telegram"
)

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.Platform = strings.ToLower(os.Getenv("PLATFORM"))
	if cfg.Platform == "" {
		cfg.Platform = PlatformDiscord
	}
	if cfg.Platform != PlatformDiscord && cfg.Platform != PlatformTelegram {
		return nil, fmt.Errorf("invalid PLATFORM %q: must be %q or %q", cfg.Platform, PlatformDiscord, PlatformTelegram)
	}

	cfg.DiscordToken = os.Getenv("DISCORD_TOKEN")
	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	switch cfg.Platform {
	case PlatformDiscord:
		if cfg.DiscordToken == "" {
			return nil, fmt.Errorf("DISCORD_TOKEN is not set")
		}
	case PlatformTelegram:
		if cfg.TelegramToken == "" {
			return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
		}
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.RedisURL = os.Getenv("REDIS_URL")

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	cfg.CronSpecStandupTick = os.Getenv("CRON_SPEC_STANDUP_TICK")
	if cfg.CronSpecStandupTick == "" {
		cfg.CronSpecStandupTick = "* * * * *" // Default: every minute
	}

	cfg.CronSpecDeliveryTick = os.Getenv("CRON_SPEC_DELIVERY_TICK")
	if cfg.CronSpecDeliveryTick == "" {
		cfg.CronSpecDeliveryTick = "* * * * *" // Default: every minute
	}

	cfg.CronSpecCleanup = os.Getenv("CRON_SPEC_CLEANUP")
	if cfg.CronSpecCleanup == "" {
		cfg.CronSpecCleanup = "0 2 * * *" // Default: 2 AM daily
	}

	cfg.ExportDir = os.Getenv("EXPORT_DIR")
	if cfg.ExportDir == "" {
		cfg.ExportDir = "exports"
	}

	cfg.SheetsToken = os.Getenv("GOOGLE_SHEETS_TOKEN")
	cfg.NotionToken = os.Getenv("NOTION_TOKEN")

	return cfg, nil
}
