// Package config loads and validates the YAML project configuration that
// declares roots, pipelines, watch behavior, and the optional preview,
// notification, and pass-log integrations.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/conveyor/internal/foundation/errors"
)

// Config is the root project configuration.
type Config struct {
	Input     string          `yaml:"input"`
	Output    string          `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
	Pipelines []Pipeline      `yaml:"pipelines"`
	Metadata  MetadataConfig  `yaml:"metadata"`
	Watch     WatchConfig     `yaml:"watch"`
	Preview   PreviewConfig   `yaml:"preview"`
	Notify    NotifyConfig    `yaml:"notify"`
	PassLog   PassLogConfig   `yaml:"passlog"`
	Settings  map[string]any  `yaml:"settings,omitempty"`
}

// Pipeline declares one pipeline and the built-in modules it runs.
type Pipeline struct {
	Name         string   `yaml:"name"`
	Dependencies []string `yaml:"dependencies,omitempty"`
	Isolated     bool     `yaml:"isolated,omitempty"`
	AlwaysListed bool     `yaml:"always_listed,omitempty"`

	// Input holds glob patterns for file ingestion; patterns prefixed with
	// '!' exclude. An empty list means the pipeline reads no files itself.
	Input []string `yaml:"input,omitempty"`

	FrontMatter       bool `yaml:"front_matter,omitempty"`
	DirectoryMetadata bool `yaml:"directory_metadata,omitempty"`
	Markdown          bool `yaml:"markdown,omitempty"`
	Slug              bool `yaml:"slug,omitempty"`
	Write             bool `yaml:"write,omitempty"`
	LinkCheck         bool `yaml:"link_check,omitempty"`
}

// MetadataConfig controls the directory metadata merge.
type MetadataConfig struct {
	PreserveFiles    bool `yaml:"preserve_files"`
	DefaultInherited bool `yaml:"default_inherited"`
	DefaultReplace   bool `yaml:"default_replace"`
}

// WatchConfig controls the change-driven rebuild loop.
type WatchConfig struct {
	// Debounce is the quiet window before a rebuild starts. Zero uses the
	// built-in default.
	Debounce time.Duration `yaml:"debounce,omitempty"`

	// Schedule is an optional cron expression for unconditional periodic
	// rebuilds, e.g. "*/30 * * * *". Empty disables scheduled rebuilds.
	Schedule string `yaml:"schedule,omitempty"`
}

// PreviewConfig controls the local preview server.
type PreviewConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr,omitempty"`
	Metrics bool   `yaml:"metrics,omitempty"`
}

// NotifyConfig controls NATS pass notifications.
type NotifyConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// PassLogConfig controls the SQLite pass history.
type PassLogConfig struct {
	// Path of the database file; empty disables persistence.
	Path string `yaml:"path,omitempty"`
}

// Load reads, expands, parses, defaults, and validates a config file.
// Environment variable references in the YAML ($VAR or ${VAR}) are expanded
// before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "read config file").
			WithContext("path", path).
			Build()
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "parse config file").
			WithContext("path", path).
			Build()
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Input == "" {
		c.Input = "content"
	}
	if c.Output == "" {
		c.Output = "public"
	}
	if c.Preview.Addr == "" {
		c.Preview.Addr = "localhost:8972"
	}
	if c.Notify.Subject == "" {
		c.Notify.Subject = "conveyor.passes"
	}
	c.Logging.Level = NormalizeLogLevel(string(c.Logging.Level))
	c.Logging.Format = NormalizeLogFormat(string(c.Logging.Format))
}

// Validate checks cross-field constraints. Graph-level validation (cycles,
// unknown dependencies) belongs to the engine and is not duplicated here.
func (c *Config) Validate() error {
	if len(c.Pipelines) == 0 {
		return ferrors.ConfigError("at least one pipeline must be configured").Build()
	}

	seen := make(map[string]struct{}, len(c.Pipelines))
	for _, p := range c.Pipelines {
		if p.Name == "" {
			return ferrors.ConfigError("pipeline name must not be empty").Build()
		}
		if _, dup := seen[p.Name]; dup {
			return ferrors.ConfigError("duplicate pipeline name").
				WithContext("pipeline", p.Name).
				Build()
		}
		seen[p.Name] = struct{}{}
	}

	if c.Watch.Debounce < 0 {
		return ferrors.ConfigError("watch debounce must not be negative").Build()
	}
	if c.Notify.Enabled && c.Notify.URL == "" {
		return ferrors.ConfigError("notify requires a NATS url when enabled").Build()
	}
	return nil
}
