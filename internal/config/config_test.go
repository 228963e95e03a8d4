package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if cfg.Services.Sentiment.BaseURL == "" {
		t.Error("expected sentiment base_url to be set")
	}
	if cfg.Services.Sentiment.TokenEnv != "SENTIBOARD_TOKEN" {
		t.Errorf("expected token_env SENTIBOARD_TOKEN, got %q", cfg.Services.Sentiment.TokenEnv)
	}
	if cfg.Limits.MaxCSVRows != 500 {
		t.Errorf("expected max_csv_rows 500, got %d", cfg.Limits.MaxCSVRows)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.Server.Port)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
services:
  sentiment:
    base_url: "https://api.example.com/v2"
server:
  port: 9000
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Services.Sentiment.BaseURL != "https://api.example.com/v2" {
		t.Errorf("base_url = %q", cfg.Services.Sentiment.BaseURL)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Services.Catalog.BaseURL == "" {
		t.Error("expected default catalog base_url")
	}
	if cfg.Limits.MaxCSVRows != 500 {
		t.Errorf("expected default max_csv_rows, got %d", cfg.Limits.MaxCSVRows)
	}
}

func TestServiceTimeout(t *testing.T) {
	cfg, _ := parse(DefaultConfigYAML)
	if got := cfg.Services.Sentiment.Timeout(); got != 60*time.Second {
		t.Errorf("timeout = %v", got)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
}

func TestResolveExplicitPathMissing(t *testing.T) {
	if _, err := ResolveConfigPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit path")
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	if cfg.GetDataDir() == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Output.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("data dir = %q", cfg.GetDataDir())
	}
}
