package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Services Services `yaml:"services"`
	Limits   Limits   `yaml:"limits"`
	Sources  Sources  `yaml:"sources"`
	Output   Output   `yaml:"output"`
	Server   Server   `yaml:"server"`
	Logging  Logging  `yaml:"logging"`
}

// Services configures the two external backends.
type Services struct {
	Sentiment Service `yaml:"sentiment"`
	Catalog   Service `yaml:"catalog"`
}

type Service struct {
	BaseURL        string `yaml:"base_url"`
	TokenEnv       string `yaml:"token_env"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration.
func (s Service) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

type Limits struct {
	MaxCSVRows int `yaml:"max_csv_rows"`
}

type Sources struct {
	Feeds []Feed `yaml:"feeds"`
}

type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for sentiboard.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "sentiboard")
}

// DataDir returns the XDG data directory for sentiboard.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "sentiboard")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/sentiboard/config.yaml > ./config.yaml
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
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'sentiboard init' to create a default config",
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
		Services: Services{
			Sentiment: Service{
				BaseURL:        "http://localhost:8080/project/api/v2",
				TokenEnv:       "SENTIBOARD_TOKEN",
				TimeoutSeconds: 60,
			},
			Catalog: Service{
				BaseURL:        "http://localhost:8080/project/api/v2",
				TokenEnv:       "SENTIBOARD_TOKEN",
				TimeoutSeconds: 30,
			},
		},
		Limits:  Limits{MaxCSVRows: 500},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
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
