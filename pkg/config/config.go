// Package config loads and saves the user configuration: which providers
// to talk to, keybinding overrides, and UI preferences.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kraitsura/lazyreview/pkg/model"
)

// RepoRef names one repository to list pull requests from.
type RepoRef struct {
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`
}

// ProviderConfig describes one configured code host.
type ProviderConfig struct {
	Type  model.ProviderType `yaml:"type"`
	Host  string             `yaml:"host,omitempty"`
	Repos []RepoRef          `yaml:"repos,omitempty"`
}

// EffectiveHost returns the configured host, or the provider's canonical
// public host when unset.
func (p ProviderConfig) EffectiveHost() string {
	if p.Host != "" {
		return p.Host
	}
	return p.Type.DefaultHost()
}

// UIConfig holds terminal UI preferences.
type UIConfig struct {
	Theme      string `yaml:"theme,omitempty"`
	ShowDrafts bool   `yaml:"show_drafts"`
}

// Config is the root of the user configuration file.
type Config struct {
	Providers         []ProviderConfig  `yaml:"providers"`
	Keybindings       map[string]string `yaml:"keybindings,omitempty"`
	UI                UIConfig          `yaml:"ui,omitempty"`
	ReplayConcurrency int               `yaml:"replay_concurrency,omitempty"`
}

// Default returns the configuration used when no file exists yet.
func Default() *Config {
	return &Config{
		UI: UIConfig{ShowDrafts: true},
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	for i, p := range c.Providers {
		if !p.Type.IsValid() {
			return fmt.Errorf("providers[%d]: unknown provider type %q", i, p.Type)
		}
		for j, r := range p.Repos {
			if r.Owner == "" || r.Repo == "" {
				return fmt.Errorf("providers[%d].repos[%d]: owner and repo are required", i, j)
			}
		}
	}
	if c.ReplayConcurrency < 0 {
		return fmt.Errorf("replay_concurrency cannot be negative")
	}
	return nil
}

// ProviderFor returns the configuration for a provider type, if present.
func (c *Config) ProviderFor(t model.ProviderType) (ProviderConfig, bool) {
	for _, p := range c.Providers {
		if p.Type == t {
			return p, true
		}
	}
	return ProviderConfig{}, false
}

// Load reads the configuration from path. A missing file yields the
// default configuration, not an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to path, creating parent directories as
// needed.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Dir returns the lazyreview configuration/profile directory.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config directory: %w", err)
	}
	return filepath.Join(base, "lazyreview"), nil
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yml"), nil
}

// QueuePath returns the default action queue database location.
func QueuePath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "queue.db"), nil
}

// SecretsDir returns the directory for the file-backed secret store.
func SecretsDir() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "secrets"), nil
}
