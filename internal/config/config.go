package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Cache     CacheConfig     `yaml:"cache"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Enabled reports whether a Redis server is configured.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

type AuthConfig struct {
	Mode            string        `yaml:"mode"`
	SessionTTL      time.Duration `yaml:"session_ttl"`
	BcryptCost      int           `yaml:"bcrypt_cost"`
	RateLimitPerMin int           `yaml:"rate_limit_per_min"`
	DevEmail        string        `yaml:"dev_email"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type CacheConfig struct {
	SizeMB int           `yaml:"size_mb"`
	TTL    time.Duration `yaml:"ttl"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Auth modes.
const (
	AuthToken     = "token"
	AuthTailscale = "tailscale"
	AuthDev       = "dev"
)

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Default returns the settings used for anything the file leaves out.
func Default() *Config {
	return &Config{
		Server:    ServerConfig{Host: "0.0.0.0", Port: 8080},
		Database:  DatabaseConfig{Driver: DriverPostgres, Port: 5432, SSLMode: "disable"},
		Auth:      AuthConfig{Mode: AuthToken, SessionTTL: 7 * 24 * time.Hour, BcryptCost: 12, RateLimitPerMin: 20, DevEmail: "dev@liftlog.local"},
		Tailscale: TailscaleConfig{Hostname: "liftlog", StateDir: "tsnet-state"},
		Cache:     CacheConfig{SizeMB: 8, TTL: 10 * time.Minute},
		Log:       LogConfig{Level: "info", Format: "text", MaxSizeMB: 50, MaxBackups: 5, MaxAgeDays: 28},
	}
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix LIFTLOG_ and underscore-separated paths:
//
//	LIFTLOG_SERVER_HOST, LIFTLOG_SERVER_PORT,
//	LIFTLOG_DB_DRIVER, LIFTLOG_DB_HOST, LIFTLOG_DB_PORT, LIFTLOG_DB_NAME,
//	LIFTLOG_DB_USER, LIFTLOG_DB_PASSWORD, LIFTLOG_DB_SSLMODE,
//	LIFTLOG_REDIS_ADDR, LIFTLOG_REDIS_PASSWORD,
//	LIFTLOG_AUTH_MODE, LIFTLOG_AUTH_SESSION_TTL,
//	LIFTLOG_TAILSCALE_ENABLED, LIFTLOG_TAILSCALE_HOSTNAME,
//	LIFTLOG_LOG_LEVEL, LIFTLOG_LOG_FORMAT, LIFTLOG_LOG_FILE
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str("LIFTLOG_SERVER_HOST", &cfg.Server.Host)
	num("LIFTLOG_SERVER_PORT", &cfg.Server.Port)

	str("LIFTLOG_DB_DRIVER", &cfg.Database.Driver)
	str("LIFTLOG_DB_HOST", &cfg.Database.Host)
	num("LIFTLOG_DB_PORT", &cfg.Database.Port)
	str("LIFTLOG_DB_NAME", &cfg.Database.Name)
	str("LIFTLOG_DB_USER", &cfg.Database.User)
	str("LIFTLOG_DB_PASSWORD", &cfg.Database.Password)
	str("LIFTLOG_DB_SSLMODE", &cfg.Database.SSLMode)

	str("LIFTLOG_REDIS_ADDR", &cfg.Redis.Addr)
	str("LIFTLOG_REDIS_PASSWORD", &cfg.Redis.Password)

	str("LIFTLOG_AUTH_MODE", &cfg.Auth.Mode)
	if v := os.Getenv("LIFTLOG_AUTH_SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Auth.SessionTTL = d
		}
	}

	if v := os.Getenv("LIFTLOG_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	str("LIFTLOG_TAILSCALE_HOSTNAME", &cfg.Tailscale.Hostname)

	str("LIFTLOG_LOG_LEVEL", &cfg.Log.Level)
	str("LIFTLOG_LOG_FORMAT", &cfg.Log.Format)
	str("LIFTLOG_LOG_FILE", &cfg.Log.File)
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}

	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required")
		}
		if c.Database.Port == 0 {
			return fmt.Errorf("database.port is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database.name is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required")
		}
	default:
		return fmt.Errorf("database.driver %q is not one of postgres, memory", c.Database.Driver)
	}

	switch c.Auth.Mode {
	case AuthToken, AuthDev:
	case AuthTailscale:
		if !c.Tailscale.Enabled {
			return fmt.Errorf("auth.mode tailscale requires tailscale.enabled")
		}
	default:
		return fmt.Errorf("auth.mode %q is not one of token, tailscale, dev", c.Auth.Mode)
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("auth.session_ttl must be positive")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("auth.bcrypt_cost must be between 4 and 31")
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q is not one of text, json", c.Log.Format)
	}
	return nil
}
