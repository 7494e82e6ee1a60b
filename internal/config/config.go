// Package config loads server settings: built-in defaults, then an optional
// YAML file, then a .env file, then HEXFLEET_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is everything cmd/hexfleet needs to start.
type Config struct {
	DBPath       string        `yaml:"db_path"`
	Port         int           `yaml:"port"`
	Seed         uint32        `yaml:"seed"`
	Radius       int           `yaml:"radius"`
	Density      float64       `yaml:"density"`
	TurnInterval time.Duration `yaml:"turn_interval"` // 0 disables the turn clock
	AdminSecret  string        `yaml:"admin_secret"`  // HS256 key for POST endpoints; empty disables them
	LogLevel     string        `yaml:"log_level"`
	RateLimit    float64       `yaml:"rate_limit"` // POST requests per second per client
	RateBurst    int           `yaml:"rate_burst"`
	TrustProxy   bool          `yaml:"trust_proxy"` // key rate limits on X-Forwarded-For
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		DBPath:    "data/hexfleet.db",
		Port:      8080,
		Seed:      42,
		Radius:    6,
		Density:   0.45,
		LogLevel:  "info",
		RateLimit: 2,
		RateBurst: 5,
	}
}

// Load builds the config. A missing YAML file or .env file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			slog.Debug("no config file", "path", path)
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	// Real environment variables win over .env entries.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("could not read .env", "error", err)
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// applyEnv overlays HEXFLEET_* variables. lookup is os.LookupEnv outside
// tests.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, set func(string) error) {
		if v, ok := lookup(key); ok && v != "" {
			if err := set(strings.TrimSpace(v)); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
			}
		}
	}

	str("HEXFLEET_DB_PATH", &cfg.DBPath)
	str("HEXFLEET_ADMIN_SECRET", &cfg.AdminSecret)
	str("HEXFLEET_LOG_LEVEL", &cfg.LogLevel)
	num("HEXFLEET_PORT", func(v string) (err error) { cfg.Port, err = strconv.Atoi(v); return })
	num("HEXFLEET_RADIUS", func(v string) (err error) { cfg.Radius, err = strconv.Atoi(v); return })
	num("HEXFLEET_RATE_BURST", func(v string) (err error) { cfg.RateBurst, err = strconv.Atoi(v); return })
	num("HEXFLEET_DENSITY", func(v string) (err error) { cfg.Density, err = strconv.ParseFloat(v, 64); return })
	num("HEXFLEET_RATE_LIMIT", func(v string) (err error) { cfg.RateLimit, err = strconv.ParseFloat(v, 64); return })
	num("HEXFLEET_TURN_INTERVAL", func(v string) (err error) { cfg.TurnInterval, err = time.ParseDuration(v); return })
	num("HEXFLEET_TRUST_PROXY", func(v string) (err error) { cfg.TrustProxy, err = strconv.ParseBool(v); return })
	num("HEXFLEET_SEED", func(v string) error {
		n, err := strconv.ParseUint(v, 10, 32)
		cfg.Seed = uint32(n)
		return err
	})
	return errors.Join(errs...)
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Radius < 0 {
		errs = append(errs, fmt.Errorf("radius must be >= 0, got %d", c.Radius))
	}
	if c.Density < 0 || c.Density > 1 {
		errs = append(errs, fmt.Errorf("density must be in [0,1], got %g", c.Density))
	}
	if c.TurnInterval < 0 {
		errs = append(errs, fmt.Errorf("turn_interval must be >= 0, got %s", c.TurnInterval))
	}
	if c.RateLimit <= 0 || c.RateBurst <= 0 {
		errs = append(errs, fmt.Errorf("rate_limit and rate_burst must be positive"))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}
