package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xbuild/internal/config"
	"xbuild/internal/diag"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, config.FileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDiscover_WalksUp(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
[tool]
path = "/opt/openjml/openjml-builder"
timeout = "90s"

[markers]
type = "openjml.problem"
store = "state/markers.mp"
`)
	nested := filepath.Join(root, "proj", "src")
	require.NoError(t, os.MkdirAll(nested, 0o750))

	cfg, err := config.Discover(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, config.FileName), cfg.Path)
	assert.Equal(t, "/opt/openjml/openjml-builder", cfg.ToolPath)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.Equal(t, "openjml.problem", cfg.MarkerType)
	assert.Equal(t, filepath.Join(root, "state", "markers.mp"), cfg.MarkerStore)
	assert.Equal(t, filepath.Join(root, ".xbuild"), cfg.StateDir)
	require.NoError(t, cfg.Validate())
}

func TestDiscover_DefaultsWithoutFile(t *testing.T) {
	root := t.TempDir()
	cfg, err := config.Discover(root)
	require.NoError(t, err)
	assert.Empty(t, cfg.Path)
	assert.Equal(t, config.DefaultTimeout, cfg.Timeout)
	assert.Equal(t, diag.DefaultMarkerType, cfg.MarkerType)
	require.Error(t, cfg.Validate())
}

func TestLoad_Errors(t *testing.T) {
	tests := map[string]string{
		"syntax":        "[tool\npath = 1",
		"unknown key":   "[tool]\npaht = \"/x\"\n",
		"bad timeout":   "[tool]\ntimeout = \"soon\"\n",
		"empty markers": "[markers]\ntype = \"\"\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, t.TempDir(), body))
			require.Error(t, err)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := config.Default("/ws")
	env := map[string]string{config.EnvTool: "/usr/local/bin/builder", config.EnvTimeout: "0"}
	require.NoError(t, cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}))
	assert.Equal(t, "/usr/local/bin/builder", cfg.ToolPath)
	assert.Zero(t, cfg.Timeout)

	env[config.EnvTimeout] = "-1s"
	require.Error(t, cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}))
}

func TestValidate_RelativeTool(t *testing.T) {
	cfg := config.Default("/ws")
	cfg.ToolPath = "openjml-builder"
	require.ErrorContains(t, cfg.Validate(), "absolute")
}
