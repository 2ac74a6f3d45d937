package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Discord      Discord      `yaml:"discord" validate:"required"`
	Storage      Storage      `yaml:"storage" validate:"required"`
	HabitAPI     HabitAPI     `yaml:"habit_api" validate:"required"`
	Mail         Mail         `yaml:"mail" validate:"required"`
	Scheduler    Scheduler    `yaml:"scheduler" validate:"required"`
	Conversation Conversation `yaml:"conversation" validate:"required"`
	Meta         Meta         `yaml:"meta" validate:"required"`
}

type Discord struct {
	Token            string `yaml:"token" comment:"Discord bot token" validate:"required"`
	RegisterCommands bool   `yaml:"register_commands" default:"true" comment:"Overwrite the slash commands on startup"`
}

type Storage struct {
	PostgresURL string        `yaml:"postgres_url" default:"postgresql:///habitbot" comment:"Postgres URL, holds reminder jobs" validate:"required"`
	RedisURL    string        `yaml:"redis_url" default:"redis://localhost:6379" comment:"Redis URL, holds sessions and rate limits" validate:"required"`
	SessionTTL  time.Duration `yaml:"session_ttl" default:"720h" comment:"Idle sessions are dropped after this long, 0 keeps them forever" validate:"min=0"`
}

// MemoryURL runs the Account & Habit service in process
const MemoryURL = "memory"

type HabitAPI struct {
	URL          string        `yaml:"url" default:"memory" comment:"Account & Habit service base URL, memory runs an in-process service" validate:"required"`
	ServiceToken string        `yaml:"service_token" comment:"Service credential used by the scheduler and the ops server" required:"false" validate:"required_unless=URL memory"`
	Timeout      time.Duration `yaml:"timeout" default:"10s" comment:"Request timeout" validate:"required"`
}

type Mail struct {
	Host     string `yaml:"host" comment:"SMTP host, codes are only logged when empty" required:"false"`
	Port     int    `yaml:"port" default:"587" comment:"SMTP port" validate:"min=0,max=65535"`
	Username string `yaml:"username" comment:"SMTP username" required:"false"`
	Password string `yaml:"password" comment:"SMTP password" required:"false"`
	From     string `yaml:"from" default:"habits@habitbot.example.com" comment:"Sender address" validate:"required,email"`
}

type Scheduler struct {
	Timezone      string `yaml:"timezone" default:"UTC" comment:"IANA timezone reminders and the progress run are scheduled in" validate:"required"`
	ProgressRunAt string `yaml:"progress_run_at" default:"00:00" comment:"Daily progress advance time, HH:MM" validate:"required"`
}

type Conversation struct {
	PendingTTL        time.Duration `yaml:"pending_ttl" default:"5m" comment:"Lifetime of a pending password" validate:"required"`
	CodeTTL           time.Duration `yaml:"code_ttl" default:"10m" comment:"Lifetime of an email verification code" validate:"required"`
	DraftTTL          time.Duration `yaml:"draft_ttl" default:"30m" comment:"Lifetime of each new target wizard field" validate:"required"`
	RateLimitRequests int           `yaml:"rate_limit_requests" default:"20" comment:"Events a user may send per window, 0 disables the limit" validate:"min=0"`
	RateLimitWindow   time.Duration `yaml:"rate_limit_window" default:"10s" comment:"Rate limit window" validate:"required"`
}

type Meta struct {
	Addr        string `yaml:"addr" default:"localhost:8081" comment:"Listen address of the ops server" validate:"required"`
	SentryDSN   string `yaml:"sentry_dsn" comment:"Sentry DSN" required:"false"`
	Environment string `yaml:"environment" default:"prod" comment:"Environment reported to sentry" validate:"required"`
	Debug       bool   `yaml:"debug" default:"false" comment:"Debug logging"`
}

var v = validator.New()

// Load reads path over the defaults and validates the result
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)

	if err != nil {
		return nil, err
	}

	return Parse(b)
}

func Parse(b []byte) (*Config, error) {
	var cfg Config

	if err := yaml.Unmarshal([]byte(Sample()), &cfg); err != nil {
		return nil, fmt.Errorf("defaults: %w", err)
	}

	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := v.Struct(cfg); err != nil {
		return nil, fmt.Errorf("configError: %w", err)
	}

	if _, err := time.LoadLocation(cfg.Scheduler.Timezone); err != nil {
		return nil, fmt.Errorf("configError: scheduler.timezone: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)

	if err != nil {
		return time.UTC
	}

	return loc
}

func (c *Config) Memory() bool {
	return c.HabitAPI.URL == MemoryURL
}
