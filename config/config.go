/*
Package config loads the ledger's runtime configuration.

SOURCES (later wins):
  1. defaults set in code
  2. config file (yaml), "config.yaml" in the working directory when no path is given
  3. environment variables, prefixed LEDGER_ with dots as underscores
     (LEDGER_STORE_DRIVER=sqlite, LEDGER_LEDGER_READ_TIMEOUT=2s)
  4. command-line flags, applied by the binaries after Load

  A .env file, if present, is loaded into the environment first.

EXAMPLE config.yaml:
  server:
    port: 8080
    cors_origins: ["http://localhost:3000"]
  store:
    driver: sqlite
    path: ./data/ledger.db
  ledger:
    atomic_writes: true
    read_timeout: 5s
  log:
    level: debug
    format: json
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	// Demo mounts the scenario and reset endpoints. Never enable in production.
	Demo            bool          `mapstructure:"demo"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"` // memory | sqlite
	Path   string `mapstructure:"path"`
}

type LedgerConfig struct {
	AtomicWrites    bool          `mapstructure:"atomic_writes"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	DefaultCurrency string        `mapstructure:"default_currency"`
	ViewConcurrency int           `mapstructure:"view_concurrency"`
}

type AuditConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	BufferSize int  `mapstructure:"buffer_size"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text | json
}

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Store  StoreConfig  `mapstructure:"store"`
	Ledger LedgerConfig `mapstructure:"ledger"`
	Audit  AuditConfig  `mapstructure:"audit"`
	Log    LogConfig    `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("server.demo", false)

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "./data/ledger.db")

	v.SetDefault("ledger.atomic_writes", true)
	v.SetDefault("ledger.read_timeout", 5*time.Second)
	v.SetDefault("ledger.default_currency", "USD")
	v.SetDefault("ledger.view_concurrency", 8)

	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.buffer_size", 256)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration from path. An empty path looks for config.yaml
// in the working directory and is fine if there is none.
func Load(path string) (*Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadDotEnv loads KEY=value pairs into the environment. A missing file is
// not an error; variables already set are not overridden.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory":
	case "sqlite":
		if c.Store.Path == "" {
			return errors.New("config: store.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server.port %d", c.Server.Port)
	}
	if c.Ledger.ViewConcurrency <= 0 {
		return fmt.Errorf("config: ledger.view_concurrency must be positive")
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("config: unknown log.format %q", c.Log.Format)
	}
	return nil
}

// Logger builds the slog logger described by the log section.
func (c LogConfig) Logger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
