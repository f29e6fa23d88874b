package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.DatabasePath == "" {
		t.Error("database_path should be set")
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_matchingWeights(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
matching:
  areas_weight: 0.4
  strong_match_threshold: 0.85
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Matching.AreasWeight != 0.4 {
		t.Errorf("areas_weight = %v, want 0.4", cfg.Matching.AreasWeight)
	}
	if cfg.Matching.StrongMatchThreshold != 0.85 {
		t.Errorf("strong_match_threshold = %v, want 0.85", cfg.Matching.StrongMatchThreshold)
	}
	// Unset scoring weights keep their defaults.
	if cfg.Matching.KeywordsWeight != 0.20 {
		t.Errorf("keywords_weight = %v, want default 0.20", cfg.Matching.KeywordsWeight)
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  database_path: "./data/db/funders.db"
watch:
  dropbox: "./dev/dropbox"
  enabled: true
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	wantDB := filepath.Join(dir, "data", "db", "funders.db")
	if cfg.Storage.DatabasePath != wantDB {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, wantDB)
	}
	wantDropbox := filepath.Join(dir, "dev", "dropbox")
	if cfg.Watch.Dropbox != wantDropbox {
		t.Errorf("dropbox = %s, want %s", cfg.Watch.Dropbox, wantDropbox)
	}
	if !cfg.Watch.Enabled {
		t.Error("watch should be enabled")
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Embedding.Dimensions != 384 {
		t.Errorf("default dimensions: got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Engine.Workers != 4 || cfg.Engine.DefaultLimit != 20 {
		t.Errorf("engine defaults: %+v", cfg.Engine)
	}
	if cfg.Matching.AreasWeight != 0.20 || cfg.Matching.StrongMatchThreshold != 0.90 {
		t.Errorf("matching defaults: %+v", cfg.Matching)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Server.Port != 8080 || cfg.Matching.RPTopK != 10 {
		t.Errorf("Default() = %+v", cfg)
	}
}
