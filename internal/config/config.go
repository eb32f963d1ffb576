package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"
	configPathEnv   = "NEWSDIGEST_CONFIG"

	logLevelEnv       = "LOG_LEVEL"
	databaseDriverEnv = "DATABASE_DRIVER"
	databaseDSNEnv    = "DATABASE_DSN"
	httpBindEnv       = "HTTP_BIND"
	siteBaseURLEnv    = "SITE_BASE_URL"
	completionKeyEnv  = "COMPLETION_API_KEY"
	perplexityKeyEnv  = "PERPLEXITY_API_KEY"
	completionModel   = "COMPLETION_MODEL"
	emailKeyEnv       = "EMAIL_API_KEY"
	resendKeyEnv      = "RESEND_API_KEY"
	fromEmailEnv      = "NEWSLETTER_FROM_EMAIL"
	webhookURLEnv     = "NEWSLETTER_WEBHOOK_URL"
	adminTokenEnv     = "ADMIN_API_TOKEN"
	serviceTokenEnv   = "SERVICE_API_TOKEN"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging      LoggingConfig      `yaml:"logging"`
	Database     DatabaseConfig     `yaml:"database"`
	HTTP         HTTPConfig         `yaml:"http"`
	Site         SiteConfig         `yaml:"site"`
	Completion   CompletionConfig   `yaml:"completion"`
	Email        EmailConfig        `yaml:"email"`
	Webhook      WebhookConfig      `yaml:"webhook"`
	Auth         AuthConfig         `yaml:"auth"`
	Schedule     ScheduleConfig     `yaml:"schedule"`
	Ingestion    IngestionConfig    `yaml:"ingestion"`
	Summarizer   SummarizerConfig   `yaml:"summarizer"`
	Distribution DistributionConfig `yaml:"distribution"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig describes the content store connection. The DSN carries both the
// location and the privileged credential.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// HTTPConfig holds the API listener settings.
type HTTPConfig struct {
	Bind string `yaml:"bind"`
}

// SiteConfig describes the public site that hosts confirmation and unsubscribe pages.
type SiteConfig struct {
	Name    string `yaml:"name"`
	BaseURL string `yaml:"baseUrl"`
}

// CompletionConfig defines how to contact the search/completion API.
type CompletionConfig struct {
	Endpoint       string `yaml:"endpoint"`
	Model          string `yaml:"model"`
	APIKey         string `yaml:"apiKey"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

// EmailConfig wires the transactional email provider.
type EmailConfig struct {
	Endpoint       string `yaml:"endpoint"`
	APIKey         string `yaml:"apiKey"`
	From           string `yaml:"from"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

// WebhookConfig holds the optional automation webhook.
type WebhookConfig struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

// AuthConfig lists the bearer tokens accepted by the API.
type AuthConfig struct {
	Tokens []TokenConfig `yaml:"tokens"`
}

// TokenConfig binds a bearer token to a subject and its roles.
type TokenConfig struct {
	Token   string   `yaml:"token"`
	Subject string   `yaml:"subject"`
	Roles   []string `yaml:"roles"`
}

// ScheduleConfig defines the weekly send cadence.
type ScheduleConfig struct {
	SendDays []string       `yaml:"sendDays"`
	RunAt    string         `yaml:"runAt"`
	Timezone string         `yaml:"timezone"`
	LockFile string         `yaml:"lockFile"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s ScheduleConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// Weekdays parses SendDays into time.Weekday values.
func (s ScheduleConfig) Weekdays() ([]time.Weekday, error) {
	days := make([]time.Weekday, 0, len(s.SendDays))
	for _, raw := range s.SendDays {
		day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(raw))]
		if !ok {
			return nil, fmt.Errorf("unknown send day %q", raw)
		}
		days = append(days, day)
	}
	return days, nil
}

// RunAtClock returns the hour and minute of the daily trigger.
func (s ScheduleConfig) RunAtClock() (int, int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s.RunAt))
	if err != nil {
		return 0, 0, fmt.Errorf("parse runAt %q: %w", s.RunAt, err)
	}
	return t.Hour(), t.Minute(), nil
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// IngestionConfig tunes the ingestion worker.
type IngestionConfig struct {
	DefaultMaxArticles int    `yaml:"defaultMaxArticles"`
	RecencyFilter      string `yaml:"recencyFilter"`
}

// SummarizerConfig tunes the summarizer.
type SummarizerConfig struct {
	DaysBack    int `yaml:"daysBack"`
	MaxArticles int `yaml:"maxArticles"`
}

// DistributionConfig tunes batching.
type DistributionConfig struct {
	BatchSize  int           `yaml:"batchSize"`
	BatchDelay time.Duration `yaml:"batchDelay"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg, err := LoadPath("")
	if err != nil {
		log.Printf("config: %v (falling back to defaults)", err)
	}
	return cfg
}

// LoadPath is Load with an explicit file path; an empty path falls back to NEWSDIGEST_CONFIG.
// On a file error the returned config still carries defaults and environment overrides.
func LoadPath(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		path = os.Getenv(configPathEnv)
	}

	var fileErr error
	if path != "" {
		loaded, err := LoadFile(cfg, path)
		if err != nil {
			fileErr = err
		} else {
			cfg = loaded
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()
	return cfg, fileErr
}

// LoadFile merges the YAML file at path over base.
func LoadFile(base Config, path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("cannot read %s: %w", path, err)
	}
	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return base, fmt.Errorf("cannot parse %s: %w", path, err)
	}
	return mergeConfig(base, fileCfg), nil
}

func (c *Config) applyEnvOverrides() {
	setIf(&c.Logging.Level, os.Getenv(logLevelEnv))
	setIf(&c.Database.Driver, os.Getenv(databaseDriverEnv))
	setIf(&c.Database.DSN, os.Getenv(databaseDSNEnv))
	setIf(&c.HTTP.Bind, os.Getenv(httpBindEnv))
	setIf(&c.Site.BaseURL, os.Getenv(siteBaseURLEnv))
	setIf(&c.Completion.APIKey, os.Getenv(perplexityKeyEnv))
	setIf(&c.Completion.APIKey, os.Getenv(completionKeyEnv))
	setIf(&c.Completion.Model, os.Getenv(completionModel))
	setIf(&c.Email.APIKey, os.Getenv(resendKeyEnv))
	setIf(&c.Email.APIKey, os.Getenv(emailKeyEnv))
	setIf(&c.Email.From, os.Getenv(fromEmailEnv))
	setIf(&c.Webhook.URL, os.Getenv(webhookURLEnv))

	if v := strings.TrimSpace(os.Getenv(adminTokenEnv)); v != "" {
		c.Auth.Tokens = append(c.Auth.Tokens, TokenConfig{Token: v, Subject: "admin", Roles: []string{"admin"}})
	}
	if v := strings.TrimSpace(os.Getenv(serviceTokenEnv)); v != "" {
		c.Auth.Tokens = append(c.Auth.Tokens, TokenConfig{Token: v, Subject: "service", Roles: []string{"service"}})
	}
}

func setIf(dst *string, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*dst = value
	}
}

func (c *Config) bindTimezone() {
	tz := c.Schedule.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Schedule.location = loc
}

func mergeConfig(base, override Config) Config {
	setIf(&base.Logging.Level, override.Logging.Level)

	if override.Database.DSN != "" {
		base.Database = override.Database
		if base.Database.Driver == "" {
			base.Database.Driver = "postgres"
		}
	}

	setIf(&base.HTTP.Bind, override.HTTP.Bind)
	setIf(&base.Site.Name, override.Site.Name)
	setIf(&base.Site.BaseURL, override.Site.BaseURL)

	setIf(&base.Completion.Endpoint, override.Completion.Endpoint)
	setIf(&base.Completion.Model, override.Completion.Model)
	setIf(&base.Completion.APIKey, override.Completion.APIKey)
	if override.Completion.TimeoutSeconds > 0 {
		base.Completion.TimeoutSeconds = override.Completion.TimeoutSeconds
	}

	setIf(&base.Email.Endpoint, override.Email.Endpoint)
	setIf(&base.Email.APIKey, override.Email.APIKey)
	setIf(&base.Email.From, override.Email.From)
	if override.Email.TimeoutSeconds > 0 {
		base.Email.TimeoutSeconds = override.Email.TimeoutSeconds
	}

	setIf(&base.Webhook.URL, override.Webhook.URL)
	if override.Webhook.TimeoutSeconds > 0 {
		base.Webhook.TimeoutSeconds = override.Webhook.TimeoutSeconds
	}

	if len(override.Auth.Tokens) > 0 {
		base.Auth.Tokens = override.Auth.Tokens
	}

	if len(override.Schedule.SendDays) > 0 {
		base.Schedule.SendDays = override.Schedule.SendDays
	}
	setIf(&base.Schedule.RunAt, override.Schedule.RunAt)
	setIf(&base.Schedule.Timezone, override.Schedule.Timezone)
	setIf(&base.Schedule.LockFile, override.Schedule.LockFile)

	if override.Ingestion.DefaultMaxArticles > 0 {
		base.Ingestion.DefaultMaxArticles = override.Ingestion.DefaultMaxArticles
	}
	setIf(&base.Ingestion.RecencyFilter, override.Ingestion.RecencyFilter)

	if override.Summarizer.DaysBack > 0 {
		base.Summarizer.DaysBack = override.Summarizer.DaysBack
	}
	if override.Summarizer.MaxArticles > 0 {
		base.Summarizer.MaxArticles = override.Summarizer.MaxArticles
	}

	if override.Distribution.BatchSize > 0 {
		base.Distribution.BatchSize = override.Distribution.BatchSize
	}
	if override.Distribution.BatchDelay > 0 {
		base.Distribution.BatchDelay = override.Distribution.BatchDelay
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:  LoggingConfig{Level: "info"},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "newsdigest.db"},
		HTTP:     HTTPConfig{Bind: ":8080"},
		Site:     SiteConfig{Name: "AI Weekly Digest", BaseURL: "http://localhost:8080"},
		Completion: CompletionConfig{
			Endpoint:       "https://api.perplexity.ai/chat/completions",
			Model:          "sonar",
			TimeoutSeconds: 60,
		},
		Email: EmailConfig{
			Endpoint:       "https://api.resend.com/emails",
			From:           "AI Weekly Digest <newsletter@example.com>",
			TimeoutSeconds: 15,
		},
		Webhook: WebhookConfig{TimeoutSeconds: 10},
		Schedule: ScheduleConfig{
			SendDays: []string{"tuesday", "friday"},
			RunAt:    "09:00",
			Timezone: defaultTimezone,
			LockFile: os.TempDir() + "/newsdigest-schedule.lock",
			location: tz,
		},
		Ingestion:    IngestionConfig{DefaultMaxArticles: 5, RecencyFilter: "week"},
		Summarizer:   SummarizerConfig{DaysBack: 4, MaxArticles: 20},
		Distribution: DistributionConfig{BatchSize: 50, BatchDelay: time.Second},
	}
}
