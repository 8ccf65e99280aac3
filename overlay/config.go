package overlay

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level devlens configuration, loaded from YAML with
// defaults applied after parse.
type Config struct {
	Browser   BrowserConfig   `yaml:"browser"`
	Storage   StorageConfig   `yaml:"storage"`
	Dashboard DashboardConfig `yaml:"dashboard"`
}

// BrowserConfig controls the Chrome connection.
type BrowserConfig struct {
	// Remote is the WebSocket URL of an external Chrome. Empty = launch.
	Remote string `yaml:"remote"`
	// Headless launches without a window; overlay sessions usually want
	// headful.
	Headless bool `yaml:"headless"`
	// Stealth applies the stealth profile for pages that refuse automation.
	Stealth bool `yaml:"stealth"`
}

// StorageConfig controls annotation persistence.
type StorageConfig struct {
	// Path of the SQLite database file.
	Path string `yaml:"path"`
	// Key the annotation mapping is stored under.
	Key string `yaml:"key"`
}

// DashboardConfig controls the HTTP dashboard.
type DashboardConfig struct {
	// Addr to listen on. Empty disables the HTTP dashboard.
	Addr string `yaml:"addr"`
	// Origins allowed by CORS; typically the host page's dev-server origin.
	Origins []string `yaml:"origins"`
	// AdminTokenHash is the bcrypt hash guarding destructive routes
	// (clear-all). Empty disables those routes.
	AdminTokenHash string `yaml:"admin_token_hash"`
}

// Defaults fills unset fields.
func (c *Config) Defaults() {
	if c.Storage.Path == "" {
		c.Storage.Path = "devlens.db"
	}
	if c.Storage.Key == "" {
		c.Storage.Key = "devlens:annotations"
	}
	if c.Dashboard.Addr == "" {
		c.Dashboard.Addr = "127.0.0.1:7342"
	}
}

// LoadConfigFile reads a YAML configuration file and applies defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("overlay: read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("overlay: parse config: %w", err)
	}
	cfg.Defaults()
	return &cfg, nil
}

// DefaultConfig returns a config with all defaults applied.
func DefaultConfig() *Config {
	var cfg Config
	cfg.Defaults()
	return &cfg
}
