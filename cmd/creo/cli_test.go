package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))

	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "creo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	stdout, _, err := executeCLI(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", stdout)
}

func TestConfigShow(t *testing.T) {
	path := writeConfig(t, "anthropic:\n  api_key: sk-very-secret\nmodel:\n  provider: anthropic\n")

	stdout, _, err := executeCLI(t, "", "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "provider: anthropic")
	assert.NotContains(t, stdout, "sk-very-secret")

	stdout, _, err = executeCLI(t, "", "--config", path, "config", "show", "--format", "toml")
	require.NoError(t, err)
	assert.Contains(t, stdout, "[model]")
}

func TestConfigRejectsInvalid(t *testing.T) {
	path := writeConfig(t, "store:\n  driver: postgres\n")

	_, _, err := executeCLI(t, "", "--config", path, "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
}

func TestConfigInit(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	root := newRootCmd()
	root.SetArgs([]string{"config", "init"})
	root.SetOut(&bytes.Buffer{})
	require.NoError(t, root.Execute())
	assert.FileExists(t, filepath.Join(xdg, "creo", "config.yaml"))

	root = newRootCmd()
	root.SetArgs([]string{"config", "init"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	assert.Error(t, root.Execute(), "refuses to overwrite")
}

func TestChat_OneShot(t *testing.T) {
	stdout, _, err := executeCLI(t, "", "chat", "-m", "I run a coffee shop")
	require.NoError(t, err)
	assert.Contains(t, stdout, "creo> ")
	assert.Contains(t, stdout, "Mock response to:")
}

func TestChat_REPLCommands(t *testing.T) {
	input := strings.Join([]string{
		"/status",
		"hello there",
		"/status",
		"/login",
		"/bogus",
		"/reset",
		"/status",
		"/quit",
	}, "\n") + "\n"

	stdout, _, err := executeCLI(t, input, "chat", "--session", "s1")
	require.NoError(t, err)

	assert.Equal(t, 2, strings.Count(stdout, "no conversation yet"))
	assert.Contains(t, stdout, "stage: none")
	assert.Contains(t, stdout, "turns: 2")
	assert.Contains(t, stdout, "signed in")
	assert.Contains(t, stdout, "unknown command")
	assert.Contains(t, stdout, "memory cleared")
}

func TestHistory_SQLite(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "creo.db")
	path := writeConfig(t, "store:\n  driver: sqlite\n  dsn: "+dsn+"\n")

	_, _, err := executeCLI(t, "", "--config", path, "chat", "-s", "shop", "-m", "We sell espresso")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, "", "--config", path, "history", "-s", "shop")
	require.NoError(t, err)
	assert.Contains(t, stdout, "We sell espresso")
	assert.Contains(t, stdout, "assistant")
}
