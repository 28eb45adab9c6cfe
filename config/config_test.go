package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 20, cfg.Compaction.Threshold)
	assert.Equal(t, 200, cfg.Compaction.SnippetChars)
	assert.Equal(t, 4, cfg.Compaction.OtherSessions)
	assert.Equal(t, "presenter", cfg.Dispatch.PresentationWorker)
	assert.Equal(t, "coordinator", cfg.Dispatch.CoordinatorWorker)
	assert.Equal(t, 2*time.Minute, cfg.Dispatch.TurnTimeout)
	assert.Equal(t, int64(4), cfg.Dispatch.MaxConcurrentRuns)
	assert.Zero(t, cfg.Registry.IdleTTL)
	assert.Equal(t, 5*time.Minute, cfg.Registry.SweepInterval)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "mock", cfg.Model.Provider)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromPath(t *testing.T) {
	t.Setenv("TEST_CREO_KEY", "sk-from-env")
	path := writeFile(t, t.TempDir(), "config.yaml", `
log:
  level: debug
  format: json
compaction:
  threshold: 10
dispatch:
  turn_timeout: 30s
registry:
  idle_ttl: 1h
store:
  driver: sqlite
  dsn: /tmp/creo.db
model:
  provider: anthropic
  name: claude-sonnet-4-5
anthropic:
  api_key: ${TEST_CREO_KEY}
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 10, cfg.Compaction.Threshold)
	assert.Equal(t, 200, cfg.Compaction.SnippetChars, "unset keys keep defaults")
	assert.Equal(t, 30*time.Second, cfg.Dispatch.TurnTimeout)
	assert.Equal(t, time.Hour, cfg.Registry.IdleTTL)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "sk-from-env", cfg.Anthropic.APIKey)
	assert.Equal(t, "sk-from-env", cfg.APIKey())
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromPath_Missing(t *testing.T) {
	_, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_Precedence(t *testing.T) {
	xdg := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(xdg, "creo"), 0o755))
	writeFile(t, filepath.Join(xdg, "creo"), "config.yaml", `
log:
  level: warn
model:
  provider: openai
  name: from-user
`)
	project := t.TempDir()
	writeFile(t, project, ProjectFile, `
model:
  name: from-project
`)

	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Setenv("CREO_LOG_LEVEL", "error")
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Chdir(project)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Log.Level, "env beats files")
	assert.Equal(t, "from-project", cfg.Model.Name, "project beats user")
	assert.Equal(t, "openai", cfg.Model.Provider, "user beats defaults")
	assert.Equal(t, "sk-openai", cfg.APIKey())
	assert.Equal(t, filepath.Join(xdg, "creo", "config.yaml"), UserConfigPath())
	assert.Equal(t, filepath.Join(project, ProjectFile), ProjectConfigPath())
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Store.Driver = "postgres"
	cfg.Model.Provider = "gemini"
	cfg.Compaction.Threshold = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
	assert.Contains(t, err.Error(), "model.provider")
	assert.Contains(t, err.Error(), "compaction.threshold")
}

func TestEncode(t *testing.T) {
	cfg := Default()
	cfg.Anthropic.APIKey = "sk-secret"

	out, err := Encode(cfg, "yaml")
	require.NoError(t, err)
	var asYAML map[string]any
	require.NoError(t, yaml.Unmarshal(out, &asYAML))
	assert.Equal(t, "2m0s", asYAML["dispatch"].(map[string]any)["turn_timeout"])
	assert.NotContains(t, string(out), "sk-secret")

	out, err = Encode(cfg, "toml")
	require.NoError(t, err)
	var asTOML map[string]any
	require.NoError(t, toml.Unmarshal(out, &asTOML))
	assert.Equal(t, "mock", asTOML["model"].(map[string]any)["provider"])

	_, err = Encode(cfg, "xml")
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Model.Provider = "bedrock"
	cfg.Model.AWSRegion = "us-east-1"
	cfg.Dispatch.TurnTimeout = 45 * time.Second

	for _, name := range []string{"config.yaml", "config.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			require.NoError(t, Save(cfg, path))

			loaded, err := LoadFromPath(path)
			require.NoError(t, err)
			assert.Equal(t, "bedrock", loaded.Model.Provider)
			assert.Equal(t, "us-east-1", loaded.Model.AWSRegion)
			assert.Equal(t, 45*time.Second, loaded.Dispatch.TurnTimeout)
		})
	}
}

func TestWatch(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "log:\n  level: info\n")

	var (
		mu     sync.Mutex
		levels []string
	)
	cfg, err := Watch(path, func(c *Config, err error) {
		if err != nil {
			return
		}
		mu.Lock()
		levels = append(levels, c.Log.Level)
		mu.Unlock()
	})
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return strings.Contains(strings.Join(levels, ","), "debug")
	}, 5*time.Second, 20*time.Millisecond)
}
