package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	xdg.Reload()
	t.Cleanup(xdg.Reload)

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigPathCommand(t *testing.T) {
	out, err := execute(t, "config", "path")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join("vaultmcp", "config.yaml"))
	assert.Contains(t, out, "missing")
}

func TestConfigPathCommand_ExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o600))

	out, err := execute(t, "--config", path, "config", "path")
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.Contains(t, out, "exists")
}

func TestConfigShowCommand(t *testing.T) {
	vaultDir := t.TempDir()

	out, err := execute(t, "config", "show", "--vault-path", vaultDir)
	require.NoError(t, err)

	assert.Contains(t, out, "Effective configuration")
	assert.Contains(t, out, "target_directory: Tips")
	assert.Contains(t, out, "name: obsidian-vault")
	assert.True(t, strings.Contains(out, vaultDir), "expected vault path in output: %s", out)
}

func TestConfigShowCommand_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0o600))

	_, err := execute(t, "-c", path, "config", "show")
	assert.Error(t, err)
}

func TestRootCommand_RejectsArgs(t *testing.T) {
	_, err := execute(t, "unexpected")
	assert.Error(t, err)
}
