package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	LeetCode LeetCodeConfig `yaml:"leetcode"`
	Harvest  HarvestConfig  `yaml:"harvest"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Redis    RedisConfig    `yaml:"redis"`
	LogLevel string         `yaml:"log_level" validate:"oneof=debug info warn error"`
}

// RabbitMQConfig is optional; an empty URL disables event publishing.
type RabbitMQConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
	QueueName  string `yaml:"queue_name"`
}

// RedisConfig is optional; an empty Addr disables the run lock.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db" validate:"gte=0"`
	LockKey  string        `yaml:"lock_key"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

type DatabaseConfig struct {
	Driver      string `yaml:"driver" validate:"oneof=postgres pgx"`
	Host        string `yaml:"host" validate:"required"`
	Port        int    `yaml:"port" validate:"gt=0,lt=65536"`
	User        string `yaml:"user" validate:"required"`
	Password    string `yaml:"password"`
	DBName      string `yaml:"dbname" validate:"required"`
	SSLMode     string `yaml:"sslmode"`
	MaxConns    int    `yaml:"max_conns" validate:"gte=0"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// LeetCodeConfig carries the remote endpoint and the session obtained by logging in
// through a browser. The session is usually injected as ${LEETCODE_SESSION}.
type LeetCodeConfig struct {
	BaseURL   string        `yaml:"base_url" validate:"required,url"`
	Session   string        `yaml:"session" validate:"required"`
	CSRFToken string        `yaml:"csrf_token" validate:"required"`
	Timeout   time.Duration `yaml:"timeout"`
	Retry     RetryConfig   `yaml:"retry"`
}

type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts" validate:"gte=1"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

type HarvestConfig struct {
	Workers         int           `yaml:"workers" validate:"gte=1,lte=64"`
	SubmissionLimit int           `yaml:"submission_limit" validate:"gte=1"`
	DelayMin        time.Duration `yaml:"delay_min" validate:"gte=0"`
	DelayMax        time.Duration `yaml:"delay_max" validate:"gtefield=DelayMin"`
	MaxRPS          float64       `yaml:"max_rps" validate:"gte=0"`
	MaxFailureRatio float64       `yaml:"max_failure_ratio" validate:"gte=0,lte=1"`
	Interval        time.Duration `yaml:"interval"`
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// OverrideWorkers replaces harvest.workers and re-validates the result.
// A non-positive n leaves the config untouched.
func (c *Config) OverrideWorkers(n int) error {
	if n <= 0 {
		return nil
	}
	prev := c.Harvest.Workers
	c.Harvest.Workers = n
	if err := c.Validate(); err != nil {
		c.Harvest.Workers = prev
		return fmt.Errorf("override workers: %w", err)
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.LeetCode.BaseURL == "" {
		c.LeetCode.BaseURL = "https://leetcode.com"
	}
	if c.LeetCode.Timeout == 0 {
		c.LeetCode.Timeout = 30 * time.Second
	}
	if c.LeetCode.Retry.MaxAttempts == 0 {
		c.LeetCode.Retry.MaxAttempts = 3
	}
	if c.LeetCode.Retry.InitialBackoff == 0 {
		c.LeetCode.Retry.InitialBackoff = 1 * time.Second
	}
	if c.LeetCode.Retry.MaxBackoff == 0 {
		c.LeetCode.Retry.MaxBackoff = 30 * time.Second
	}
	if c.Harvest.Workers == 0 {
		c.Harvest.Workers = 5
	}
	if c.Harvest.SubmissionLimit == 0 {
		c.Harvest.SubmissionLimit = 20
	}
	if c.Harvest.DelayMin == 0 && c.Harvest.DelayMax == 0 {
		c.Harvest.DelayMin = 1 * time.Second
		c.Harvest.DelayMax = 3 * time.Second
	}
	if c.Harvest.Interval == 0 {
		c.Harvest.Interval = 24 * time.Hour
	}
	if c.RabbitMQ.URL != "" {
		if c.RabbitMQ.Exchange == "" {
			c.RabbitMQ.Exchange = "leetcode_deck"
		}
		if c.RabbitMQ.RoutingKey == "" {
			c.RabbitMQ.RoutingKey = "harvest"
		}
		if c.RabbitMQ.QueueName == "" {
			c.RabbitMQ.QueueName = "deck_builder"
		}
	}
	if c.Redis.LockKey == "" {
		c.Redis.LockKey = "leetcode_deck:harvest_lock"
	}
	if c.Redis.LockTTL == 0 {
		c.Redis.LockTTL = 2 * time.Hour
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
