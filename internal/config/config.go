package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is assembled in three layers: built-in defaults, an optional YAML
// file, then environment variables. Environment always wins so container
// deployments can override a mounted file.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	TrustProxy bool   `yaml:"trust_proxy"`

	DB           DB           `yaml:"db"`
	Redis        Redis        `yaml:"redis"`
	Verification Verification `yaml:"verification"`
	Notify       Notify       `yaml:"notify"`

	// RetentionDays bounds how long raw check samples are kept.
	RetentionDays int `yaml:"retention_days"`
}

type DB struct {
	Type string `yaml:"type"` // sqlite | postgres
	Path string `yaml:"path"` // sqlite file path
	DSN  string `yaml:"dsn"`  // postgres connection string
}

type Redis struct {
	Addr     string `yaml:"addr"` // empty disables the durable event stream
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Stream   string `yaml:"stream"`
}

type Verification struct {
	BaseURL      string   `yaml:"base_url"` // empty disables remote verification
	TokenURL     string   `yaml:"token_url"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	Regions      []string `yaml:"regions"`
}

type Notify struct {
	WebhookURL      string `yaml:"webhook_url"`
	CooldownMinutes int    `yaml:"cooldown_minutes"`
}

func Default() Config {
	return Config{
		ListenAddr: ":9210",
		DB: DB{
			Type: "sqlite",
			Path: "vigil.db",
		},
		Redis: Redis{
			Stream: "vigil:transitions",
		},
		Notify: Notify{
			CooldownMinutes: 15,
		},
		RetentionDays: 90,
	}
}

// Load builds the effective configuration. path may be empty; a missing
// file at an explicitly provided path is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- operator-provided path
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if os.Getenv("TRUST_PROXY") == "true" {
		cfg.TrustProxy = true
	}
	if v := os.Getenv("DB_TYPE"); v != "" {
		cfg.DB.Type = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DB.Path = v
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		cfg.DB.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("REDIS_STREAM"); v != "" {
		cfg.Redis.Stream = v
	}
	if v := os.Getenv("VERIFY_BASE_URL"); v != "" {
		cfg.Verification.BaseURL = v
	}
	if v := os.Getenv("VERIFY_TOKEN_URL"); v != "" {
		cfg.Verification.TokenURL = v
	}
	if v := os.Getenv("VERIFY_CLIENT_ID"); v != "" {
		cfg.Verification.ClientID = v
	}
	if v := os.Getenv("VERIFY_CLIENT_SECRET"); v != "" {
		cfg.Verification.ClientSecret = v
	}
	if v := os.Getenv("NOTIFY_WEBHOOK_URL"); v != "" {
		cfg.Notify.WebhookURL = v
	}
	if v := os.Getenv("RETENTION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			cfg.RetentionDays = days
		}
	}
}

func (c *Config) Validate() error {
	switch c.DB.Type {
	case "sqlite":
		if c.DB.Path == "" {
			return fmt.Errorf("db.path is required for sqlite")
		}
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("unsupported db.type %q", c.DB.Type)
	}

	if c.Verification.BaseURL != "" {
		if c.Verification.TokenURL == "" || c.Verification.ClientID == "" {
			return fmt.Errorf("verification requires token_url and client_id when base_url is set")
		}
	}

	if c.RetentionDays < 1 {
		return fmt.Errorf("retention_days must be positive")
	}
	return nil
}
