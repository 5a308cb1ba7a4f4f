package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadFrom_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFrom(map[string]string{})
	if err != nil {
		t.Fatalf("LoadFrom returned error: %v", err)
	}
	if cfg.DataDir != "data" {
		t.Fatalf("expected default data dir, got %q", cfg.DataDir)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Fatalf("unexpected log defaults %q %q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.UpcomingDays != 7 {
		t.Fatalf("expected seven upcoming days, got %d", cfg.UpcomingDays)
	}
	if cfg.ArchivePath != filepath.Join("data", "archive.db") {
		t.Fatalf("archive must default inside the data dir, got %q", cfg.ArchivePath)
	}
	if cfg.RulesFile != "" {
		t.Fatalf("rules file must be optional, got %q", cfg.RulesFile)
	}
}

func TestLoadFrom_Overrides(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFrom(map[string]string{
		"CALENDAR_DATA_DIR":      "/srv/rome",
		"CALENDAR_LOG_LEVEL":     "debug",
		"CALENDAR_LOG_FORMAT":    "JSON",
		"CALENDAR_UPCOMING_DAYS": "30",
		"CALENDAR_RULES_FILE":    "rules.yaml",
	})
	if err != nil {
		t.Fatalf("LoadFrom returned error: %v", err)
	}
	if cfg.DataDir != "/srv/rome" || cfg.LogLevel != "debug" || cfg.LogFormat != "json" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.UpcomingDays != 30 || cfg.RulesFile != "rules.yaml" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.ArchivePath != filepath.Join("/srv/rome", "archive.db") {
		t.Fatalf("unexpected archive path %q", cfg.ArchivePath)
	}
}

func TestLoadFrom_ReportsEveryProblem(t *testing.T) {
	t.Parallel()

	_, err := LoadFrom(map[string]string{
		"CALENDAR_LOG_LEVEL":     "loud",
		"CALENDAR_LOG_FORMAT":    "xml",
		"CALENDAR_UPCOMING_DAYS": "-2",
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, key := range []string{"CALENDAR_LOG_LEVEL", "CALENDAR_LOG_FORMAT", "CALENDAR_UPCOMING_DAYS"} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("error %q does not mention %s", err, key)
		}
	}
}

func TestLoadFrom_RejectsMalformedNumber(t *testing.T) {
	t.Parallel()

	if _, err := LoadFrom(map[string]string{"CALENDAR_UPCOMING_DAYS": "week"}); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_UsesProcessEnvironment(t *testing.T) {
	t.Setenv("CALENDAR_DATA_DIR", "from-env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.DataDir != "from-env" {
		t.Fatalf("expected data dir from environment, got %q", cfg.DataDir)
	}
}
