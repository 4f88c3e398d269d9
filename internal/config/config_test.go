package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.Sources.Pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(cfg.Sources.Pages))
	}
	if cfg.Sources.Pages[0].Name != "NIST" {
		t.Errorf("expected NIST first, got %q", cfg.Sources.Pages[0].Name)
	}
	if len(cfg.Sources.Pages[1].Selectors) != 3 {
		t.Errorf("expected explicit selectors for second page, got %v", cfg.Sources.Pages[1].Selectors)
	}

	fr := cfg.Sources.FederalRegister
	if !fr.Enabled || len(fr.Agencies) != 2 || fr.LookbackDays != 7 || fr.PerPage != 50 {
		t.Errorf("unexpected federal register config: %+v", fr)
	}

	if cfg.Fetch.TimeoutSeconds != 10 {
		t.Errorf("expected 10s fetch timeout, got %d", cfg.Fetch.TimeoutSeconds)
	}
	if cfg.Enrich.Enabled {
		t.Error("expected enrichment off by default")
	}
	if cfg.Output.Storage != "file" {
		t.Errorf("expected file storage, got %q", cfg.Output.Storage)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.Server.Port)
	}
}

func TestParseMinimalKeepsDefaults(t *testing.T) {
	cfg, err := parse([]byte("sources:\n  pages:\n    - name: NIST\n      url: https://csrc.nist.gov/news\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Fetch.TimeoutSeconds != 10 {
		t.Errorf("expected default fetch timeout, got %d", cfg.Fetch.TimeoutSeconds)
	}
	if !cfg.Sources.FederalRegister.Enabled {
		t.Error("expected federal register enabled by default")
	}
	if cfg.Output.Storage != "file" {
		t.Errorf("expected default storage, got %q", cfg.Output.Storage)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected default port, got %d", cfg.Server.Port)
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := parse([]byte("sources:\n  federal_register:\n    enabled: false\noutput:\n  storage: sqlite\nserver:\n  port: 9000\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Sources.FederalRegister.Enabled {
		t.Error("expected federal register disabled")
	}
	if cfg.Output.Storage != "sqlite" {
		t.Errorf("expected sqlite storage, got %q", cfg.Output.Storage)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
}

func TestParseRejectsUnknownStorage(t *testing.T) {
	_, err := parse([]byte("output:\n  storage: redis\n"))
	if err == nil {
		t.Fatal("expected error for unknown storage backend")
	}
	if !strings.Contains(err.Error(), "redis") {
		t.Errorf("expected backend named in error, got %v", err)
	}
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	if _, err := parse([]byte("sources: [")); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Sources.Pages) != 2 {
		t.Errorf("expected 2 pages, got %d", len(cfg.Sources.Pages))
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestResolveConfigPathExplicit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := ResolveConfigPath(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != path {
		t.Errorf("expected explicit path returned, got %q", got)
	}

	if _, err := ResolveConfigPath(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing explicit path")
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	cfg.Output.DataDir = "/tmp/compliance"
	if got := cfg.GetDataDir(); got != "/tmp/compliance" {
		t.Errorf("expected configured dir, got %q", got)
	}

	cfg.Output.DataDir = ""
	if got := cfg.GetDataDir(); got == "" {
		t.Error("expected XDG fallback, got empty string")
	}
}
