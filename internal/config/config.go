package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage drivers for users and progress.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultPort is used when neither the config file nor PORT sets one.
const DefaultPort = "8080"

type Config struct {
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Storage  StorageConfig  `yaml:"storage" toml:"storage"`
	Redis    RedisConfig    `yaml:"redis" toml:"redis"`
	Postgres PostgresConfig `yaml:"postgres" toml:"postgres"`
	SQLite   SQLiteConfig   `yaml:"sqlite" toml:"sqlite"`
	Content  ContentConfig  `yaml:"content" toml:"content"`
	Auth     AuthConfig     `yaml:"auth" toml:"auth"`
	Progress ProgressConfig `yaml:"progress" toml:"progress"`
}

type ServerConfig struct {
	Port string `yaml:"port" toml:"port"`
}

type StorageConfig struct {
	Driver string `yaml:"driver" toml:"driver"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" toml:"addr"`
	Password string `yaml:"password" toml:"password"`
	DB       int    `yaml:"db" toml:"db"`
}

type PostgresConfig struct {
	URL string `yaml:"url" toml:"url"`
}

type SQLiteConfig struct {
	Path string `yaml:"path" toml:"path"`
}

type ContentConfig struct {
	// Dir holds words.json, verbs.json and idioms.json; the embedded datasets are used when empty.
	Dir    string `yaml:"dir" toml:"dir"`
	Source string `yaml:"source" toml:"source"` // "files" or "postgres"
	TTL    string `yaml:"ttl" toml:"ttl"`
}

type AuthConfig struct {
	SessionTTL   string `yaml:"session_ttl" toml:"session_ttl"`
	CookieName   string `yaml:"cookie_name" toml:"cookie_name"`
	SecureCookie bool   `yaml:"secure_cookie" toml:"secure_cookie"`
}

type ProgressConfig struct {
	Timezone               string `yaml:"timezone" toml:"timezone"`
	TrustClientCorrectness bool   `yaml:"trust_client_correctness" toml:"trust_client_correctness"`
}

// Load reads a YAML or TOML config from path, chosen by extension, then
// applies environment overrides. A .env file in the working directory is
// loaded first when present.
func Load(path string) (Config, error) {
	cfg := Config{}
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".toml":
			if _, err := toml.Decode(string(data), &cfg); err != nil {
				return cfg, fmt.Errorf("decode %s: %w", path, err)
			}
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("decode %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DriverMemory
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = DefaultPort
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	overrides := []struct {
		env    string
		target *string
	}{
		{env: "PORT", target: &cfg.Server.Port},
		{env: "STORAGE_DRIVER", target: &cfg.Storage.Driver},
		{env: "DATABASE_URL", target: &cfg.Postgres.URL},
		{env: "REDIS_ADDR", target: &cfg.Redis.Addr},
		{env: "REDIS_PASSWORD", target: &cfg.Redis.Password},
		{env: "SQLITE_PATH", target: &cfg.SQLite.Path},
		{env: "CONTENT_DIR", target: &cfg.Content.Dir},
		{env: "PROGRESS_TIMEZONE", target: &cfg.Progress.Timezone},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.env); ok && v != "" {
			*o.target = v
		}
	}
}

// Validate checks the settings that would otherwise fail late at startup.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("storage driver sqlite requires sqlite.path")
		}
	case DriverPostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("storage driver postgres requires postgres.url")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Content.Source == "postgres" && c.Postgres.URL == "" {
		return fmt.Errorf("content source postgres requires postgres.url")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves progress.timezone; empty means UTC.
func (c Config) Location() (*time.Location, error) {
	if c.Progress.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Progress.Timezone)
	if err != nil {
		return nil, fmt.Errorf("progress.timezone: %w", err)
	}
	return loc, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
