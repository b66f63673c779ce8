/*
Package config loads the service configuration from a YAML file with
environment-variable overrides for secrets. Validation is strict: a config
that cannot drive every enabled channel refuses to start the process.
*/
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultNSEAnnouncementsURL is the corporate announcements feed.
	DefaultNSEAnnouncementsURL = "https://www.nseindia.com/api/corporate-announcements?index=equities"

	defaultGeminiModel = "gemini-2.5-flash"
)

type Config struct {
	Logging  Logging  `yaml:"logging"`
	Server   Server   `yaml:"server"`
	Storage  Storage  `yaml:"storage"`
	Monitor  Monitor  `yaml:"monitor"`
	NSE      NSE      `yaml:"nse"`
	AI       AI       `yaml:"ai"`
	Telegram Telegram `yaml:"telegram"`
	WhatsApp WhatsApp `yaml:"whatsapp"`
	Email    Email    `yaml:"email"`
}

type Logging struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type Server struct {
	Listen string `yaml:"listen"`
}

type Storage struct {
	Path        string        `yaml:"path"`
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

type Monitor struct {
	// CheckIntervalMinutes drives the poll cron. Must be within 1..59 so the
	// */N minute spec stays well-formed.
	CheckIntervalMinutes int `yaml:"check_interval_minutes"`
}

type NSE struct {
	AnnouncementsURL string        `yaml:"announcements_url"`
	Timeout          time.Duration `yaml:"timeout"`
	SymbolCachePath  string        `yaml:"symbol_cache_path"`
}

type AI struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

type Telegram struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
}

type WhatsApp struct {
	Enabled    bool   `yaml:"enabled"`
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	FromNumber string `yaml:"from_number"`
}

type Email struct {
	Enabled    bool   `yaml:"enabled"`
	SMTPServer string `yaml:"smtp_server"`
	SMTPPort   int    `yaml:"smtp_port"`
	SMTPUser   string `yaml:"smtp_user"`
	SMTPPass   string `yaml:"smtp_pass"`
	FromEmail  string `yaml:"from_email"`
}

// Load reads the YAML file at path, applies environment overrides and
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Logging: Logging{Level: "info"},
		Server:  Server{Listen: ":8080"},
		Storage: Storage{Path: "./data/stockflow.db", BusyTimeout: 5 * time.Second},
		Monitor: Monitor{CheckIntervalMinutes: 15},
		NSE: NSE{
			AnnouncementsURL: DefaultNSEAnnouncementsURL,
			Timeout:          10 * time.Second,
			SymbolCachePath:  "./data/stocks-cache.json",
		},
		AI: AI{Model: defaultGeminiModel, Timeout: 15 * time.Second},
		Email: Email{
			SMTPServer: "smtp.gmail.com",
			SMTPPort:   587,
		},
	}
}

// applyEnv overrides secret-bearing fields from the environment so they can
// stay out of the config file.
func (c *Config) applyEnv() {
	setIfEnv(&c.AI.APIKey, "STOCKFLOW_GEMINI_API_KEY")
	setIfEnv(&c.Telegram.BotToken, "STOCKFLOW_TELEGRAM_BOT_TOKEN")
	setIfEnv(&c.WhatsApp.AccountSID, "STOCKFLOW_TWILIO_ACCOUNT_SID")
	setIfEnv(&c.WhatsApp.AuthToken, "STOCKFLOW_TWILIO_AUTH_TOKEN")
	setIfEnv(&c.WhatsApp.FromNumber, "STOCKFLOW_TWILIO_WHATSAPP_NUMBER")
	setIfEnv(&c.Email.SMTPPass, "STOCKFLOW_SMTP_PASS")
}

func setIfEnv(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func (c *Config) applyDefaults() {
	if c.AI.Model == "" {
		c.AI.Model = defaultGeminiModel
	}
	if c.NSE.AnnouncementsURL == "" {
		c.NSE.AnnouncementsURL = DefaultNSEAnnouncementsURL
	}
	if c.NSE.Timeout <= 0 {
		c.NSE.Timeout = 10 * time.Second
	}
	if c.AI.Timeout <= 0 {
		c.AI.Timeout = 15 * time.Second
	}
	if c.Email.FromEmail == "" {
		c.Email.FromEmail = c.Email.SMTPUser
	}
}

// Validate fails fast on configuration the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Monitor.CheckIntervalMinutes < 1 || c.Monitor.CheckIntervalMinutes > 59 {
		return fmt.Errorf("monitor.check_interval_minutes must be between 1 and 59, got %d", c.Monitor.CheckIntervalMinutes)
	}
	if strings.TrimSpace(c.Server.Listen) == "" {
		return fmt.Errorf("server.listen is required")
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		return fmt.Errorf("storage.path is required")
	}
	if c.Telegram.Enabled && strings.TrimSpace(c.Telegram.BotToken) == "" {
		return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
	}
	if c.WhatsApp.Enabled {
		if c.WhatsApp.AccountSID == "" || c.WhatsApp.AuthToken == "" {
			return fmt.Errorf("whatsapp.account_sid and whatsapp.auth_token are required when whatsapp is enabled")
		}
		if !strings.HasPrefix(c.WhatsApp.AccountSID, "AC") {
			return fmt.Errorf("whatsapp.account_sid must start with AC")
		}
		if c.WhatsApp.FromNumber == "" {
			return fmt.Errorf("whatsapp.from_number is required when whatsapp is enabled")
		}
	}
	if c.Email.Enabled {
		if c.Email.SMTPServer == "" || c.Email.SMTPUser == "" || c.Email.SMTPPass == "" {
			return fmt.Errorf("email.smtp_server, email.smtp_user and email.smtp_pass are required when email is enabled")
		}
	}
	return nil
}
