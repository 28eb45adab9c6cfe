package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Settings renders the configuration as nested maps keyed like the config
// file. Durations are rendered as strings. API keys are masked unless
// withSecrets is set.
func (c *Config) Settings(withSecrets bool) map[string]any {
	secret := func(s string) string {
		if withSecrets || s == "" {
			return s
		}
		return "********"
	}

	return map[string]any{
		"log": map[string]any{
			"level":  c.Log.Level,
			"format": c.Log.Format,
		},
		"compaction": map[string]any{
			"threshold":      c.Compaction.Threshold,
			"snippet_chars":  c.Compaction.SnippetChars,
			"other_sessions": c.Compaction.OtherSessions,
		},
		"dispatch": map[string]any{
			"presentation_worker": c.Dispatch.PresentationWorker,
			"coordinator_worker":  c.Dispatch.CoordinatorWorker,
			"turn_timeout":        c.Dispatch.TurnTimeout.String(),
			"event_buffer":        c.Dispatch.EventBuffer,
			"max_concurrent_runs": c.Dispatch.MaxConcurrentRuns,
			"max_model_calls":     c.Dispatch.MaxModelCalls,
		},
		"registry": map[string]any{
			"idle_ttl":       c.Registry.IdleTTL.String(),
			"sweep_interval": c.Registry.SweepInterval.String(),
		},
		"store": map[string]any{
			"driver": c.Store.Driver,
			"dsn":    c.Store.DSN,
		},
		"model": map[string]any{
			"provider":    c.Model.Provider,
			"name":        c.Model.Name,
			"max_tokens":  c.Model.MaxTokens,
			"temperature": c.Model.Temperature,
			"aws_region":  c.Model.AWSRegion,
			"aws_profile": c.Model.AWSProfile,
		},
		"anthropic": map[string]any{"api_key": secret(c.Anthropic.APIKey)},
		"openai":    map[string]any{"api_key": secret(c.OpenAI.APIKey)},
	}
}

// Encode renders the configuration as "yaml" or "toml" with secrets masked.
func Encode(c *Config, format string) ([]byte, error) {
	settings := c.Settings(false)
	switch format {
	case "yaml", "yml", "":
		return yaml.Marshal(settings)
	case "toml":
		return toml.Marshal(settings)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// Save writes the configuration, secrets included, to path. The file type
// follows the extension.
func Save(c *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	if err := v.MergeConfigMap(c.Settings(true)); err != nil {
		return fmt.Errorf("building config: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}
