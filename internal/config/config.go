package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"quizbot/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Telegram struct {
		Token       string `yaml:"token" validate:"required"`
		PublicURL   string `yaml:"public_url" validate:"omitempty,url"`
		WebhookPath string `yaml:"webhook_path"`
		SecretToken string `yaml:"secret_token"`
		PollTimeout string `yaml:"poll_timeout"`
	} `yaml:"telegram"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Monitor struct {
		Token string `yaml:"token"`
	} `yaml:"monitor"`
	Quiz Quiz `yaml:"quiz"`
}

// Quiz holds the test definition and who receives the admin reports.
type Quiz struct {
	AdminChatID int64  `yaml:"admin_chat_id"`
	BankID      string `yaml:"bank_id"`
	Greeting    string `yaml:"greeting"`

	domain.QuestionBank `yaml:",inline"`
}

const (
	DefaultPort        = "8080"
	DefaultWebhookPath = "/webhook"
	DefaultBankID      = "default"
)

var validate = validator.New()

// Load reads YAML config from path, then applies environment overrides. A .env file in the
// working directory is loaded first if present.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Telegram.Token, "TELEGRAM_BOT_TOKEN")
	setString(&c.Telegram.PublicURL, "RAILWAY_STATIC_URL")
	setString(&c.Telegram.PublicURL, "RAILWAY_PUBLIC_URL")
	setString(&c.Telegram.PublicURL, "PUBLIC_URL")
	setString(&c.Telegram.SecretToken, "TELEGRAM_SECRET_TOKEN")
	setString(&c.Server.Port, "PORT")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Postgres.URL, "POSTGRES_URL")
	setString(&c.Monitor.Token, "MONITOR_TOKEN")

	if raw := os.Getenv("ADMIN_CHAT_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("ADMIN_CHAT_ID: %w", err)
		}
		c.Quiz.AdminChatID = id
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = DefaultPort
	}
	if c.Telegram.WebhookPath == "" {
		c.Telegram.WebhookPath = DefaultWebhookPath
	}
	if c.Quiz.BankID == "" {
		c.Quiz.BankID = DefaultBankID
	}
	if c.Telegram.PublicURL != "" && !strings.Contains(c.Telegram.PublicURL, "://") {
		c.Telegram.PublicURL = "https://" + c.Telegram.PublicURL
	}
	c.Telegram.PublicURL = strings.TrimSuffix(c.Telegram.PublicURL, "/")
}

// Validate reports missing or malformed settings. The inline question bank is only checked
// when no Postgres source is configured.
func (c Config) Validate() error {
	if err := validate.Struct(c.Telegram); err != nil {
		return fmt.Errorf("telegram config: %w", err)
	}
	if err := validate.Var(c.Quiz.AdminChatID, "required"); err != nil {
		return fmt.Errorf("quiz.admin_chat_id: %w", err)
	}
	if c.Postgres.URL == "" {
		if err := c.Quiz.QuestionBank.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// WebhookURL is the public endpoint Telegram posts updates to, or "" for long polling.
func (c Config) WebhookURL() string {
	if c.Telegram.PublicURL == "" {
		return ""
	}
	return c.Telegram.PublicURL + c.Telegram.WebhookPath
}

// DurationOr parses a duration string or returns the fallback if empty or invalid.
func DurationOr(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
