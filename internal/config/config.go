package config

import (
	_ "embed"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// defaultYAML is used when no config file exists. Every secret comes from
// the environment.
//
//go:embed default.yaml
var defaultYAML string

// Config is the root configuration for jobsync.
type Config struct {
	Schedule     string        // cron spec or descriptor, e.g. "@every 6h"
	PastDueGrace time.Duration // a firing later than this is logged as past due
	API          APIConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Notification NotificationConfig
}

// APIConfig describes the JSearch endpoint.
type APIConfig struct {
	BaseURL  string
	Host     string // x-rapidapi-host header
	Key      string // x-rapidapi-key header, expanded from env by Load
	Country  string
	Timeout  time.Duration
	MinDelay time.Duration // minimum gap between two search calls
}

// DatabaseConfig selects the driver and connection. DSN wins over the
// individual fields when both are set.
type DatabaseConfig struct {
	Driver   string // "postgres" or "sqlite"
	DSN      string
	Server   string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}

// RedisConfig enables the cross-process run lock when URL is set.
type RedisConfig struct {
	URL     string
	LockKey string
	LockTTL time.Duration
}

// NotificationConfig controls where run reports go.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log" or "slack"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
}

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	Schedule     string             `yaml:"schedule"`
	PastDueGrace string             `yaml:"past_due_grace"`
	API          rawAPIConfig       `yaml:"api"`
	Database     rawDatabaseConfig  `yaml:"database"`
	Redis        rawRedisConfig     `yaml:"redis"`
	Notification NotificationConfig `yaml:"notification"`
}

type rawAPIConfig struct {
	BaseURL  string `yaml:"base_url"`
	Host     string `yaml:"host"`
	Key      string `yaml:"key"`
	Country  string `yaml:"country"`
	Timeout  string `yaml:"timeout"`
	MinDelay string `yaml:"min_delay"`
}

type rawDatabaseConfig struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Server   string `yaml:"server"`
	Port     string `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type rawRedisConfig struct {
	URL     string `yaml:"url"`
	LockKey string `yaml:"lock_key"`
	LockTTL string `yaml:"lock_ttl"`
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Default returns the built-in configuration, filled from the environment.
func Default() (*Config, error) {
	return Parse([]byte(defaultYAML))
}

// Parse expands ${VAR} references, applies defaults and validates.
// Expansion happens after the YAML is parsed, so values from the environment
// are taken literally even when they contain YAML syntax such as " #" or "@".
func Parse(data []byte) (*Config, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	var raw rawConfig
	if doc.Kind != 0 {
		expandEnv(&doc)
		if err := doc.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	schedule := raw.Schedule
	if schedule == "" {
		schedule = "@every 6h"
	}

	pastDueGrace, err := parseDuration("past_due_grace", raw.PastDueGrace, time.Minute)
	if err != nil {
		return nil, err
	}
	timeout, err := parseDuration("api.timeout", raw.API.Timeout, 30*time.Second)
	if err != nil {
		return nil, err
	}
	minDelay, err := parseDuration("api.min_delay", raw.API.MinDelay, 0)
	if err != nil {
		return nil, err
	}
	lockTTL, err := parseDuration("redis.lock_ttl", raw.Redis.LockTTL, time.Hour)
	if err != nil {
		return nil, err
	}

	driver := strings.ToLower(raw.Database.Driver)
	switch driver {
	case "", "postgresql", "pgx":
		driver = "postgres"
	}

	cfg := &Config{
		Schedule:     schedule,
		PastDueGrace: pastDueGrace,
		API: APIConfig{
			BaseURL:  defaultString(raw.API.BaseURL, "https://jsearch.p.rapidapi.com"),
			Host:     defaultString(raw.API.Host, "jsearch.p.rapidapi.com"),
			Key:      raw.API.Key,
			Country:  defaultString(raw.API.Country, "us"),
			Timeout:  timeout,
			MinDelay: minDelay,
		},
		Database: DatabaseConfig{
			Driver:   driver,
			DSN:      raw.Database.DSN,
			Server:   raw.Database.Server,
			Port:     defaultString(raw.Database.Port, "5432"),
			Name:     raw.Database.Name,
			User:     raw.Database.User,
			Password: raw.Database.Password,
			SSLMode:  defaultString(raw.Database.SSLMode, "require"),
		},
		Redis: RedisConfig{
			URL:     raw.Redis.URL,
			LockKey: raw.Redis.LockKey,
			LockTTL: lockTTL,
		},
		Notification: raw.Notification,
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ConnString returns the DSN handed to the database driver. For PostgreSQL
// without an explicit DSN it is assembled from the individual fields; missing
// credentials are not an error here and surface when connecting.
func (d DatabaseConfig) ConnString() string {
	if d.DSN != "" || d.Driver != "postgres" {
		return d.DSN
	}
	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(d.Server, d.Port),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	if d.User != "" {
		u.User = url.UserPassword(d.User, d.Password)
	}
	return u.String()
}

func validate(cfg *Config) error {
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return fmt.Errorf("schedule %q: %w", cfg.Schedule, err)
	}

	switch cfg.Database.Driver {
	case "postgres":
	case "sqlite":
		if cfg.Database.DSN == "" {
			return fmt.Errorf("database.dsn (a file path) is required when driver is \"sqlite\"")
		}
	default:
		return fmt.Errorf("database.driver must be \"postgres\" or \"sqlite\", got %q", cfg.Database.Driver)
	}

	if cfg.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %v", cfg.API.Timeout)
	}
	if cfg.API.MinDelay < 0 {
		return fmt.Errorf("api.min_delay must not be negative, got %v", cfg.API.MinDelay)
	}
	if cfg.Redis.URL != "" && cfg.Redis.LockTTL <= 0 {
		return fmt.Errorf("redis.lock_ttl must be positive, got %v", cfg.Redis.LockTTL)
	}

	switch cfg.Notification.Type {
	case "", "log":
	case "slack":
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, "https://hooks.slack.com/") {
			return fmt.Errorf("notification.webhook_url must start with https://hooks.slack.com/")
		}
	default:
		return fmt.Errorf("notification.type must be \"log\" or \"slack\", got %q", cfg.Notification.Type)
	}

	return nil
}

// expandEnv replaces ${VAR} and $VAR in every scalar of the document.
func expandEnv(n *yaml.Node) {
	if n.Kind == yaml.ScalarNode {
		n.Value = os.ExpandEnv(n.Value)
	}
	for _, c := range n.Content {
		expandEnv(c)
	}
}

func parseDuration(field, value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, value, err)
	}
	return d, nil
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
