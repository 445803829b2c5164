// Package config loads server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"go.ngs.io/envreader/internal/reader/cfgeneric"
)

// Config is the server configuration.
type Config struct {
	Port               string   `env:"PORT"                 envDefault:"8080"`
	DataFiles          []string `env:"DATA_FILES"           envSeparator:","`
	DatasetBackend     string   `env:"DATASET_BACKEND"      envDefault:"netcdf"`
	LevelIndex         int      `env:"LEVEL_INDEX"          envDefault:"1"`
	LogLevel           string   `env:"LOG_LEVEL"            envDefault:"info"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

// Load reads optional .env files and then the environment. Variables already
// set in the environment take precedence over .env values.
func Load(dotenv ...string) (Config, error) {
	if err := godotenv.Load(dotenv...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.DataFiles = trim(cfg.DataFiles)
	cfg.CORSAllowedOrigins = trim(cfg.CORSAllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field values.
func (c Config) Validate() error {
	if _, err := c.Backend(); err != nil {
		return fmt.Errorf("DATASET_BACKEND: %w", err)
	}
	if c.LevelIndex < 0 {
		return fmt.Errorf("LEVEL_INDEX must be >= 0, got %d", c.LevelIndex)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}

// Backend returns the parsed dataset backend.
func (c Config) Backend() (cfgeneric.Backend, error) {
	return cfgeneric.ParseBackend(c.DatasetBackend)
}

// Level returns the parsed log level, defaulting to info.
func (c Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

func trim(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
