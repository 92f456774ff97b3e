// Package config loads the on-call service's YAML configuration file and
// overlays a small set of environment-controlled secrets and log file paths.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// ServerConfig controls the HTTP ingress.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DBConfig describes the relational store connection.
// Driver is explicit (postgres or sqlite) and never probed at runtime.
type DBConfig struct {
	Driver   string `yaml:"driver"`
	ConnStr  string `yaml:"conn_str"`
	MaxConns int    `yaml:"max_conns"`
}

// AuthConfig controls session, SSO, and debug-principal behavior.
type AuthConfig struct {
	Module      string        `yaml:"module"`
	SSOModule   string        `yaml:"sso_module"`
	Debug       bool          `yaml:"debug"`
	RequireAuth bool          `yaml:"require_auth"`
	SessionTTL  time.Duration `yaml:"session_ttl"`
	SSO         SSOConfig     `yaml:"sso"`
}

// SSOConfig carries the OAuth2 identity-provider endpoints used when
// sso_module is "oauth2".
type SSOConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	AuthURL      string `yaml:"auth_url"`
	TokenURL     string `yaml:"token_url"`
	UserinfoURL  string `yaml:"userinfo_url"`
	RedirectURL  string `yaml:"redirect_url"`
}

// NotifierConfig holds the notifier's default timezone and the switch
// that skips actual sends.
type NotifierConfig struct {
	DefaultTimezone string `yaml:"default_timezone"`
	Skipsend        bool   `yaml:"skipsend"`
}

// ReminderConfig toggles the pre-shift reminder sweeper.
type ReminderConfig struct {
	Activated bool `yaml:"activated"`
}

// UserValidatorConfig controls the periodic contact-method validation sweep.
type UserValidatorConfig struct {
	Activated bool          `yaml:"activated"`
	Interval  time.Duration `yaml:"interval"`
	Subject   string        `yaml:"subject"`
	Body      string        `yaml:"body"`
}

// MessengerConfig describes one outbound notification transport.
type MessengerConfig struct {
	Mode string `yaml:"mode"` // email, slack, sms, call, im, hipchat, rocketchat
	Name string `yaml:"name"`

	// Transport-specific settings; which apply depends on Mode.
	SMTPAddr string `yaml:"smtp_addr,omitempty"` // email
	From     string `yaml:"from,omitempty"`      // email
	Token    string `yaml:"token,omitempty"`     // slack
	URL      string `yaml:"url,omitempty"`       // webhook gateways
}

// IrisPlanIntegrationConfig is the escalation-plan collaborator integration
// (out of scope for this service, carried as a passthrough config block).
type IrisPlanIntegrationConfig struct {
	Enabled string `yaml:"enabled"`
	APIHost string `yaml:"api_host"`
}

// Config is the fully bound application configuration.
type Config struct {
	Server              ServerConfig              `yaml:"server"`
	DB                  DBConfig                  `yaml:"db"`
	Auth                AuthConfig                `yaml:"auth"`
	HealthcheckPath     string                    `yaml:"healthcheck_path"`
	SchedulerCycleTime  time.Duration             `yaml:"scheduler_cycle_time"`
	Notifier            NotifierConfig            `yaml:"notifier"`
	Reminder            ReminderConfig            `yaml:"reminder"`
	UserValidator       UserValidatorConfig       `yaml:"user_validator"`
	Messengers          []MessengerConfig         `yaml:"messengers"`
	IrisPlanIntegration IrisPlanIntegrationConfig `yaml:"iris_plan_integration"`

	RedisURL    string `yaml:"redis_url"`
	RabbitMQURL string `yaml:"rabbitmq_url"`

	// Outbox tuning, not named in §6 but required to run the notifier
	// loop's transactional outbox processor.
	OutboxPollInterval    time.Duration `yaml:"outbox_poll_interval"`
	OutboxBatchSize       int           `yaml:"outbox_batch_size"`
	OutboxMaxRetries      int           `yaml:"outbox_max_retries"`
	OutboxRetentionDays   int           `yaml:"outbox_retention_days"`
	OutboxCleanupInterval time.Duration `yaml:"outbox_cleanup_interval"`

	// Env overlays, never present in the YAML file.
	SchedulerLogFile string `envconfig:"SCHEDULER_LOG_FILE"`
	NotifierLogFile  string `envconfig:"NOTIFIER_LOG_FILE"`
}

// Default returns the configuration used when no file is supplied, suitable
// for local development against SQLite.
func Default() Config {
	return Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		DB: DBConfig{
			Driver:   "sqlite",
			ConnStr:  "",
			MaxConns: 10,
		},
		Auth: AuthConfig{
			Module:      "debug",
			Debug:       true,
			RequireAuth: false,
			SessionTTL:  24 * time.Hour,
		},
		HealthcheckPath:    "/healthcheck",
		SchedulerCycleTime: time.Hour,
		Notifier: NotifierConfig{
			DefaultTimezone: "UTC",
			Skipsend:        false,
		},
		Reminder: ReminderConfig{Activated: true},
		UserValidator: UserValidatorConfig{
			Activated: false,
			Interval:  24 * time.Hour,
			Subject:   "Please verify your on-call contact methods",
			Body:      "One or more of your contact methods has not been validated.",
		},
		// Local mode runs without external services: sessions fall back
		// to the in-memory store and the outbox publisher is the in-process
		// event bus, which dispatches to registered consumers synchronously.
		RedisURL:    "",
		RabbitMQURL: "",

		OutboxPollInterval:    100 * time.Millisecond,
		OutboxBatchSize:       100,
		OutboxMaxRetries:      5,
		OutboxRetentionDays:   14,
		OutboxCleanupInterval: 24 * time.Hour,
	}
}

// Load reads a YAML config file at path, falling back to Default for any
// field the file omits, then overlays env-var-only secrets/log paths.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env overlay: %w", err)
	}

	return &cfg, nil
}

// IsSQLite returns true if the configured driver is SQLite.
func (c *Config) IsSQLite() bool {
	return c.DB.Driver == "sqlite"
}

// IsPostgres returns true if the configured driver is PostgreSQL.
func (c *Config) IsPostgres() bool {
	return c.DB.Driver == "postgres"
}
