// Package config loads creo configuration from defaults, the user's XDG
// config file, a project .creo.yaml and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ProjectFile is the project-level override searched from the working
// directory upward.
const ProjectFile = ".creo.yaml"

// EnvPrefix prefixes environment overrides, e.g. CREO_MODEL_PROVIDER.
const EnvPrefix = "CREO"

// Config holds all configuration for creo.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Compaction CompactionConfig `mapstructure:"compaction"`
	Dispatch   DispatchConfig   `mapstructure:"dispatch"`
	Registry   RegistryConfig   `mapstructure:"registry"`
	Store      StoreConfig      `mapstructure:"store"`
	Model      ModelConfig      `mapstructure:"model"`
	Anthropic  KeyConfig        `mapstructure:"anthropic"`
	OpenAI     KeyConfig        `mapstructure:"openai"`
}

// LogConfig selects level and output format.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CompactionConfig bounds the per-turn input.
type CompactionConfig struct {
	Threshold     int `mapstructure:"threshold"`
	SnippetChars  int `mapstructure:"snippet_chars"`
	OtherSessions int `mapstructure:"other_sessions"`
}

// DispatchConfig configures turn processing.
type DispatchConfig struct {
	PresentationWorker string        `mapstructure:"presentation_worker"`
	CoordinatorWorker  string        `mapstructure:"coordinator_worker"`
	TurnTimeout        time.Duration `mapstructure:"turn_timeout"`
	EventBuffer        int           `mapstructure:"event_buffer"`
	MaxConcurrentRuns  int64         `mapstructure:"max_concurrent_runs"`
	MaxModelCalls      int           `mapstructure:"max_model_calls"`
}

// RegistryConfig configures idle eviction. A zero IdleTTL keeps users forever.
type RegistryConfig struct {
	IdleTTL       time.Duration `mapstructure:"idle_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// StoreConfig selects the persistence driver. SQLite stores default to
// creo.db in the user config directory.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// ModelConfig selects the LLM provider.
type ModelConfig struct {
	Provider    string  `mapstructure:"provider"`
	Name        string  `mapstructure:"name"`
	MaxTokens   int64   `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
	AWSRegion   string  `mapstructure:"aws_region"`
	AWSProfile  string  `mapstructure:"aws_profile"`
}

// KeyConfig holds a provider API key.
type KeyConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// Load loads configuration. Precedence (highest to lowest):
//  1. Environment variables (CREO_*, ANTHROPIC_API_KEY, OPENAI_API_KEY)
//  2. Project config (.creo.yaml in the current directory or a parent)
//  3. User config ($XDG_CONFIG_HOME/creo/config.yaml)
//  4. Built-in defaults
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(UserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if project := findProjectConfig(); project != "" {
		pv := viper.New()
		pv.SetConfigFile(project)
		if err := pv.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading project config %s: %w", project, err)
		}
		if err := v.MergeConfigMap(pv.AllSettings()); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	return decode(v)
}

// LoadFromPath loads defaults overlaid with a single file and the environment.
func LoadFromPath(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return decode(v)
}

// Default returns a Config with default values.
func Default() *Config {
	cfg, err := decode(defaultsOnly())
	if err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return cfg
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	var errs []error
	if !oneOf(c.Log.Format, "json", "text") {
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", c.Log.Format))
	}
	if !oneOf(c.Store.Driver, "memory", "sqlite", "sqlite3") {
		errs = append(errs, fmt.Errorf("store.driver must be memory, sqlite or sqlite3, got %q", c.Store.Driver))
	}
	if !oneOf(c.Model.Provider, "mock", "anthropic", "bedrock", "openai") {
		errs = append(errs, fmt.Errorf("model.provider must be mock, anthropic, bedrock or openai, got %q", c.Model.Provider))
	}
	if c.Compaction.Threshold <= 0 {
		errs = append(errs, fmt.Errorf("compaction.threshold must be positive, got %d", c.Compaction.Threshold))
	}
	if c.Dispatch.TurnTimeout < 0 {
		errs = append(errs, errors.New("dispatch.turn_timeout must not be negative"))
	}
	return errors.Join(errs...)
}

// APIKey returns the key for the configured provider.
func (c *Config) APIKey() string {
	switch c.Model.Provider {
	case "anthropic":
		return c.Anthropic.APIKey
	case "openai":
		return c.OpenAI.APIKey
	default:
		return ""
	}
}

// UserConfigPath returns the path to the user config file.
func UserConfigPath() string {
	return filepath.Join(UserConfigDir(), "config.yaml")
}

// ProjectConfigPath returns the project config file, or "" when none exists.
func ProjectConfigPath() string {
	return findProjectConfig()
}

// UserConfigDir returns the XDG config directory for creo.
func UserConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "creo")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "creo")
	}
	return filepath.Join(home, ".config", "creo")
}

func newViper() *viper.Viper {
	v := defaultsOnly()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("anthropic.api_key", "CREO_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("openai.api_key", "CREO_OPENAI_API_KEY", "OPENAI_API_KEY")

	return v
}

func defaultsOnly() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("compaction.threshold", 20)
	v.SetDefault("compaction.snippet_chars", 200)
	v.SetDefault("compaction.other_sessions", 4)

	v.SetDefault("dispatch.presentation_worker", "presenter")
	v.SetDefault("dispatch.coordinator_worker", "coordinator")
	v.SetDefault("dispatch.turn_timeout", "2m")
	v.SetDefault("dispatch.event_buffer", 100)
	v.SetDefault("dispatch.max_concurrent_runs", 4)
	v.SetDefault("dispatch.max_model_calls", 25)

	v.SetDefault("registry.idle_ttl", "0s")
	v.SetDefault("registry.sweep_interval", "5m")

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.dsn", "")

	v.SetDefault("model.provider", "mock")
	v.SetDefault("model.name", "")
	v.SetDefault("model.max_tokens", 1024)
	v.SetDefault("model.temperature", 0.7)
	v.SetDefault("model.aws_region", "")
	v.SetDefault("model.aws_profile", "")

	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("openai.api_key", "")
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	cfg.OpenAI.APIKey = os.ExpandEnv(cfg.OpenAI.APIKey)
	cfg.Store.DSN = os.ExpandEnv(cfg.Store.DSN)
	if cfg.Store.DSN == "" && cfg.Store.Driver != "memory" {
		cfg.Store.DSN = filepath.Join(UserConfigDir(), "creo.db")
	}
	return cfg, nil
}

// findProjectConfig searches for ProjectFile in the working directory and
// its parents.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		path := filepath.Join(dir, ProjectFile)
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func oneOf(s string, options ...string) bool {
	for _, o := range options {
		if s == o {
			return true
		}
	}
	return false
}
