package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the bot.
type Config struct {
	Debug    bool   `env:"DEBUG" envDefault:"false"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8000"`

	Telegram struct {
		Token       string  `env:"TELEGRAM_TOKEN,required,notEmpty"`
		WebhookURL  string  `env:"WEBHOOK_URL,required,notEmpty"`
		AdminChatID int64   `env:"ADMIN_CHAT_ID,required"`
		RateLimit   float64 `env:"TELEGRAM_RATE_LIMIT" envDefault:"25"`
	}

	OpenAI struct {
		Endpoint   string `env:"AZURE_OPENAI_ENDPOINT,required,notEmpty"`
		Key        string `env:"AZURE_OPENAI_KEY,required,notEmpty"`
		Deployment string `env:"AZURE_OPENAI_DEPLOYMENT_NAME,required,notEmpty"`
		APIVersion string `env:"AZURE_OPENAI_API_VERSION" envDefault:"2023-12-01-preview"`
	}

	Ledger struct {
		CredentialsJSON string `env:"GOOGLE_CREDENTIALS_JSON"`
		SpreadsheetName string `env:"SPREADSHEET_NAME"`
		EmailColumn     int    `env:"LEDGER_EMAIL_COLUMN" envDefault:"2"`
		StatusColumn    int    `env:"LEDGER_STATUS_COLUMN" envDefault:"5"`
	}

	Flow struct {
		EmailGate     bool          `env:"EMAIL_GATE" envDefault:"true"`
		UsernameStep  bool          `env:"USERNAME_STEP" envDefault:"true"`
		TestLinks     []string      `env:"TEST_LINKS,required" envSeparator:","`
		GuidePDFPath  string        `env:"GUIDE_PDF_PATH" envDefault:"Official_Guide.pdf"`
		ReminderAfter time.Duration `env:"REMINDER_AFTER" envDefault:"23h"`
		ExpireAfter   time.Duration `env:"EXPIRE_AFTER" envDefault:"24h"`
		SweepInterval time.Duration `env:"TIMER_SWEEP_INTERVAL" envDefault:"30s"`
	}

	// DigestAt is the local HH:MM the operator digest goes out; empty disables it.
	DigestAt    string `env:"DIGEST_AT"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"onboarding.db"`
}

// Load reads configuration from the environment, optionally seeded by a .env file.
func Load() (Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	cfg.Flow.TestLinks = cleanLinks(cfg.Flow.TestLinks)
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if len(c.Flow.TestLinks) == 0 {
		return fmt.Errorf("TEST_LINKS must contain at least one link")
	}
	if c.Flow.ReminderAfter <= 0 || c.Flow.ExpireAfter <= 0 {
		return fmt.Errorf("REMINDER_AFTER and EXPIRE_AFTER must be positive")
	}
	if c.Flow.ReminderAfter >= c.Flow.ExpireAfter {
		return fmt.Errorf("REMINDER_AFTER (%s) must be shorter than EXPIRE_AFTER (%s)", c.Flow.ReminderAfter, c.Flow.ExpireAfter)
	}
	if c.Flow.SweepInterval <= 0 {
		return fmt.Errorf("TIMER_SWEEP_INTERVAL must be positive")
	}
	if c.Flow.EmailGate && (c.Ledger.CredentialsJSON == "" || c.Ledger.SpreadsheetName == "") {
		return fmt.Errorf("GOOGLE_CREDENTIALS_JSON and SPREADSHEET_NAME are required while EMAIL_GATE is on")
	}
	if c.DigestAt != "" {
		if _, err := time.Parse("15:04", c.DigestAt); err != nil {
			return fmt.Errorf("DIGEST_AT must be HH:MM: %w", err)
		}
	}
	if c.Ledger.EmailColumn < 1 || c.Ledger.StatusColumn < 1 {
		return fmt.Errorf("ledger columns are 1-based")
	}
	return nil
}

// WebhookEndpoint is the URL Telegram posts updates to.
func (c Config) WebhookEndpoint() string {
	return strings.TrimRight(c.Telegram.WebhookURL, "/") + "/webhook/" + c.Telegram.Token
}

func cleanLinks(raw []string) []string {
	links := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			links = append(links, l)
		}
	}
	return links
}
