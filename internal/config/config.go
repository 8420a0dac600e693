// Package config loads the per-site configuration from <root>/_config.yml.
//
// The file is optional; every field has a default. Values may reference
// environment variables as ${VAR}, and <root>/.env is loaded first so those
// references can be kept next to the site.
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// FileName is the configuration file looked up in the site root.
const FileName = "_config.yml"

// Config is the site configuration.
type Config struct {
	Title string         `yaml:"title"`
	URL   string         `yaml:"url"`
	Vars  map[string]any `yaml:"vars,omitempty"` // Exposed to templates under site.vars

	LayoutsDir    string `yaml:"layouts_dir"`    // Relative to the site root
	PostsDir      string `yaml:"posts_dir"`      // Relative to the site root
	PrivatePrefix string `yaml:"private_prefix"` // Names with this prefix are never copied
	PageMarker    string `yaml:"page_marker"`    // Filename suffix marking a rendered page

	Concurrency int    `yaml:"concurrency"`
	Clean       bool   `yaml:"clean"` // Remove the deploy directory before building
	MetricsFile string `yaml:"metrics_file,omitempty"`
	HistoryDB   string `yaml:"history_db,omitempty"`

	Events EventsConfig `yaml:"events"`
	Deploy DeployConfig `yaml:"deploy"`
}

// EventsConfig controls build event publishing.
type EventsConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"` // Empty disables publishing
	Subject string `yaml:"subject"`

	// Retries is the number of extra publish attempts; 0 means the default
	// and a negative value disables retrying.
	Retries      int              `yaml:"retries,omitempty"`
	RetryBackoff RetryBackoffMode `yaml:"retry_backoff,omitempty"`
	RetryInitial time.Duration    `yaml:"retry_initial,omitempty"`
	RetryMax     time.Duration    `yaml:"retry_max,omitempty"`
}

// DeployConfig selects and configures the deployer run after generation.
type DeployConfig struct {
	Type        DeployType `yaml:"type"`
	AuthorName  string     `yaml:"author_name,omitempty"`
	AuthorEmail string     `yaml:"author_email,omitempty"`
	Message     string     `yaml:"message,omitempty"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	_ = applyDefaults(cfg)
	return cfg
}

// Load reads the configuration for the site rooted at root.
func Load(root string) (*Config, error) {
	if err := loadEnvFile(root); err != nil {
		return nil, err
	}

	cfg := &Config{}
	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(filepath.Clean(path))
	switch {
	case err == nil:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, errors.ConfigError("failed to parse site configuration").
				WithCause(err).
				WithContext("path", path).
				Build()
		}
	case os.IsNotExist(err):
	default:
		return nil, errors.FileSystemError("failed to read site configuration").
			WithCause(err).
			WithContext("path", path).
			Build()
	}

	if err := applyDefaults(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.ValidationError("invalid site configuration").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	return cfg, nil
}
