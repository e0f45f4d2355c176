// Package config loads the service configuration from .env, a YAML file and
// HANDWERK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"handwerk/internal/core/numerator"
	"handwerk/internal/domain/pricing"
)

// EnvPrefix is prepended to every environment override (HANDWERK_POSTGRES_DSN).
const EnvPrefix = "HANDWERK"

// File storage backends.
const (
	FilesPostgres = "postgres"
	FilesLocal    = "local"
)

type Config struct {
	App struct {
		Env     string `mapstructure:"env"`
		Name    string `mapstructure:"name"`
		Version string `mapstructure:"version"`
	} `mapstructure:"app"`

	HTTP struct {
		Addr            string        `mapstructure:"addr"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"http"`

	Postgres struct {
		DSN      string `mapstructure:"dsn"`
		MaxConns int32  `mapstructure:"max_conns"`
		MinConns int32  `mapstructure:"min_conns"`
		Migrate  bool   `mapstructure:"migrate"`
	} `mapstructure:"postgres"`

	Redis struct {
		Addr     string        `mapstructure:"addr"`
		Password string        `mapstructure:"password"`
		DB       int           `mapstructure:"db"`
		LockTTL  time.Duration `mapstructure:"lock_ttl"`
	} `mapstructure:"redis"`

	Files struct {
		Backend   string `mapstructure:"backend"`
		LocalRoot string `mapstructure:"local_root"`
		BaseURL   string `mapstructure:"base_url"`
	} `mapstructure:"files"`

	Numbering struct {
		Strategy string `mapstructure:"strategy"`
	} `mapstructure:"numbering"`

	Invoice struct {
		DueDays int `mapstructure:"due_days"`
	} `mapstructure:"invoice"`

	Pricing struct {
		GoodPercent float64 `mapstructure:"good_percent"`
		BadPercent  float64 `mapstructure:"bad_percent"`
	} `mapstructure:"pricing"`

	Metrics struct {
		Enabled bool   `mapstructure:"enabled"`
		Path    string `mapstructure:"path"`
	} `mapstructure:"metrics"`

	Telemetry struct {
		Endpoint string `mapstructure:"endpoint"`
		Insecure bool   `mapstructure:"insecure"`
	} `mapstructure:"telemetry"`

	Company struct {
		Name string `mapstructure:"name"`
		IBAN string `mapstructure:"iban"`
		BIC  string `mapstructure:"bic"`
	} `mapstructure:"company"`

	Log struct {
		Level       string `mapstructure:"level"`
		Development bool   `mapstructure:"development"`
	} `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.name", "handwerk")
	v.SetDefault("app.version", "dev")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.shutdown_timeout", 30*time.Second)

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.max_conns", 20)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.migrate", true)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", 30*time.Second)

	v.SetDefault("files.backend", FilesPostgres)
	v.SetDefault("files.local_root", "./data/files")
	v.SetDefault("files.base_url", "http://localhost:8080/files")

	v.SetDefault("numbering.strategy", "counter")
	v.SetDefault("invoice.due_days", 14)
	v.SetDefault("pricing.good_percent", 30)
	v.SetDefault("pricing.bad_percent", 10)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.insecure", true)

	v.SetDefault("company.name", "")
	v.SetDefault("company.iban", "")
	v.SetDefault("company.bic", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load reads .env (if present), then the YAML file at path, then environment
// overrides. An empty path looks for config.yaml in the working directory and
// /etc/handwerk and falls back to defaults when none exists.
func Load(path string) (*Config, *viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/handwerk")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	switch c.Files.Backend {
	case FilesPostgres, FilesLocal:
	default:
		return fmt.Errorf("files.backend must be %q or %q, got %q", FilesPostgres, FilesLocal, c.Files.Backend)
	}
	if c.Files.Backend == FilesLocal && c.Files.LocalRoot == "" {
		return errors.New("files.local_root is required for the local backend")
	}
	if _, err := numerator.ParseStrategy(c.Numbering.Strategy); err != nil {
		return fmt.Errorf("numbering.strategy: %w", err)
	}
	if c.Invoice.DueDays < 0 {
		return fmt.Errorf("invoice.due_days must not be negative, got %d", c.Invoice.DueDays)
	}
	if c.Pricing.BadPercent > c.Pricing.GoodPercent {
		return fmt.Errorf("pricing.bad_percent (%v) exceeds pricing.good_percent (%v)",
			c.Pricing.BadPercent, c.Pricing.GoodPercent)
	}
	return nil
}

// IsDevelopment reports whether app.env is "development".
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// NumberingOptions returns the configured numbering strategy.
func (c *Config) NumberingOptions() numerator.Options {
	s, _ := numerator.ParseStrategy(c.Numbering.Strategy)
	return numerator.Options{Strategy: s}
}

// Thresholds returns the calculation state thresholds for articles.
func (c *Config) Thresholds() pricing.Thresholds {
	return pricing.Thresholds{
		Good: decimal.NewFromFloat(c.Pricing.GoodPercent),
		Bad:  decimal.NewFromFloat(c.Pricing.BadPercent),
	}
}

// Watch re-reads the config file on change and hands the new config to
// onChange. Invalid files are reported through onError and otherwise ignored.
// Only pricing and invoice settings are meant to be applied at runtime.
func Watch(v *viper.Viper, onChange func(*Config), onError func(error)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := decode(v)
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("reload %s: %w", e.Name, err))
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}
