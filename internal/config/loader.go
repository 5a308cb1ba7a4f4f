package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/example/resource-calendar/internal/logging"
)

// EnvPrefix is prepended to every variable name.
const EnvPrefix = "CALENDAR_"

// Config captures environment driven configuration for the calendar tool.
type Config struct {
	DataDir      string `env:"DATA_DIR"      envDefault:"data"`
	LogLevel     string `env:"LOG_LEVEL"     envDefault:"info"`
	LogFormat    string `env:"LOG_FORMAT"    envDefault:"text"`
	UpcomingDays int    `env:"UPCOMING_DAYS" envDefault:"7"`
	RulesFile    string `env:"RULES_FILE"`
	ArchivePath  string `env:"ARCHIVE_PATH"`
}

// Load parses configuration values from the current process environment.
func Load() (Config, error) {
	return LoadFrom(nil)
}

// LoadFrom parses configuration from environ instead of the process
// environment when environ is not nil. Every invalid value is reported in one
// error.
func LoadFrom(environ map[string]string) (Config, error) {
	var cfg Config
	var problems []string

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix, Environment: environ}); err != nil {
		var agg env.AggregateError
		if errors.As(err, &agg) {
			for _, e := range agg.Errors {
				problems = append(problems, e.Error())
			}
		} else {
			problems = append(problems, err.Error())
		}
	}

	cfg.DataDir = strings.TrimSpace(cfg.DataDir)
	cfg.RulesFile = strings.TrimSpace(cfg.RulesFile)
	cfg.ArchivePath = strings.TrimSpace(cfg.ArchivePath)
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))

	if cfg.DataDir == "" {
		problems = append(problems, EnvPrefix+"DATA_DIR must not be empty")
	}
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		problems = append(problems, fmt.Sprintf("%sLOG_LEVEL: %v", EnvPrefix, err))
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		problems = append(problems, fmt.Sprintf("%sLOG_FORMAT must be text or json, got %q", EnvPrefix, cfg.LogFormat))
	}
	if cfg.UpcomingDays <= 0 {
		problems = append(problems, fmt.Sprintf("%sUPCOMING_DAYS must be positive, got %d", EnvPrefix, cfg.UpcomingDays))
	}

	if len(problems) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	if cfg.ArchivePath == "" {
		cfg.ArchivePath = filepath.Join(cfg.DataDir, "archive.db")
	}
	return cfg, nil
}
