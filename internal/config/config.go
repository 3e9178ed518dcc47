// Package config loads qoracle settings. QORACLE_* environment variables
// override qoracle.yaml, which overrides the built-in defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/roach88/qoracle/internal/store"
)

// FileName is the config file looked up when no explicit path is given.
const FileName = "qoracle"

// Config holds every tunable of a check run.
type Config struct {
	// Driver is the SQLite driver: "sqlite3" (cgo) or "sqlite" (pure Go).
	Driver string `mapstructure:"driver"`

	// DSN is the database path; ":memory:" keeps it private to the process.
	DSN string `mapstructure:"dsn"`

	// Attempts is how many trials the concurrency and cancellation checks run.
	Attempts int `mapstructure:"attempts"`

	// Timeout bounds a single check.
	Timeout time.Duration `mapstructure:"timeout"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `mapstructure:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Driver:   store.DriverCGo,
		DSN:      store.MemoryDSN,
		Attempts: 10,
		Timeout:  30 * time.Second,
		LogLevel: "info",
	}
}

// Load reads configuration. With an explicit path the file must exist;
// otherwise qoracle.yaml is searched in dir and silently skipped if absent.
func Load(path, dir string) (Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("driver", def.Driver)
	v.SetDefault("dsn", def.DSN)
	v.SetDefault("attempts", def.Attempts)
	v.SetDefault("timeout", def.Timeout)
	v.SetDefault("log_level", def.LogLevel)

	v.SetEnvPrefix("QORACLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		if dir == "" {
			dir = "."
		}
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field ranges.
func (c Config) Validate() error {
	switch {
	case c.Driver != store.DriverCGo && c.Driver != store.DriverPureGo:
		return &ConfigError{Field: "driver", Message: fmt.Sprintf("unsupported driver %q", c.Driver)}
	case c.DSN == "":
		return &ConfigError{Field: "dsn", Message: "must not be empty"}
	case c.Attempts < 1:
		return &ConfigError{Field: "attempts", Message: "must be at least 1"}
	case c.Timeout <= 0:
		return &ConfigError{Field: "timeout", Message: "must be positive"}
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return &ConfigError{Field: "log_level", Message: err.Error()}
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", name)
	}
	return l, nil
}

// ConfigError represents an invalid setting.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Message)
}
