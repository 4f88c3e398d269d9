package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Sources Sources `yaml:"sources"`
	Fetch   Fetch   `yaml:"fetch"`
	Enrich  Enrich  `yaml:"enrich"`
	Output  Output  `yaml:"output"`
	Server  Server  `yaml:"server"`
}

type Sources struct {
	Pages           []Page          `yaml:"pages"`
	Feeds           []Feed          `yaml:"feeds"`
	FederalRegister FederalRegister `yaml:"federal_register"`
}

// Page configures one scraped HTML source. Selectors are tried in
// order; empty means the built-in defaults.
type Page struct {
	Name      string   `yaml:"name"`
	URL       string   `yaml:"url"`
	Selectors []string `yaml:"selectors"`
	MaxItems  int      `yaml:"max_items"`
	Disabled  bool     `yaml:"disabled"`
}

// Feed configures one RSS/Atom source.
type Feed struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	MaxItems int    `yaml:"max_items"`
	Disabled bool   `yaml:"disabled"`
}

// FederalRegister configures the Federal Register API source. Agency
// slugs from https://www.federalregister.gov/agencies.
type FederalRegister struct {
	Enabled      bool     `yaml:"enabled"`
	Agencies     []string `yaml:"agencies"`
	LookbackDays int      `yaml:"lookback_days"`
	PerPage      int      `yaml:"per_page"`
}

type Fetch struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

type Enrich struct {
	Enabled        bool `yaml:"enabled"`
	TimeoutSeconds int  `yaml:"timeout_seconds"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
	Storage string `yaml:"storage"` // "file" or "sqlite"
}

type Server struct {
	Port int `yaml:"port"`
}

// ConfigDir returns the XDG config directory for regwatch.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "regwatch")
}

// DataDir returns the XDG data directory for regwatch.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "regwatch")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/regwatch/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'regwatch init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Sources: Sources{
			FederalRegister: FederalRegister{
				Enabled: true,
				Agencies: []string{
					"labor-department",
					"animal-and-plant-health-inspection-service",
				},
				LookbackDays: 7,
				PerPage:      50,
			},
		},
		Fetch:  Fetch{TimeoutSeconds: 10},
		Enrich: Enrich{TimeoutSeconds: 15},
		Output: Output{Storage: "file"},
		Server: Server{Port: 8000},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Output.Storage != "file" && cfg.Output.Storage != "sqlite" {
		return nil, fmt.Errorf("unknown storage backend %q (want file or sqlite)", cfg.Output.Storage)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG
// default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
