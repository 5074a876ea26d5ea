package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Oracle, cfg.Oracle)
	assert.True(t, cfg.Journal.Enabled)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
log_level: debug
oracle: builtin
python_version: "3.9"
journal:
  enabled: false
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "builtin", cfg.Oracle)
	assert.Equal(t, "3.9", cfg.PythonVersion)
	assert.False(t, cfg.Journal.Enabled)
	assert.Equal(t, "rpm", cfg.RPMBinary)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "config.toml", `
oracle = "none"
info_file = "/srv/rdoinfo/rdo.yml"

[journal]
path = "/tmp/journal"
cache_size = 8
keep = 5
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "none", cfg.Oracle)
	assert.Equal(t, "/srv/rdoinfo/rdo.yml", cfg.InfoFile)
	assert.Equal(t, "/tmp/journal", cfg.Journal.Path)
	assert.Equal(t, 8, cfg.Journal.CacheSize)
	assert.Equal(t, 5, cfg.Journal.Keep)
}

func TestJournalKeep(t *testing.T) {
	assert.Equal(t, 50, Default().Journal.Keep)

	path := writeFile(t, "config.yaml", "journal:\n  keep: -1\n")
	_, err := Load(path)
	assert.ErrorContains(t, err, "journal.keep")
}

func TestLoadRejectsUnknownOracle(t *testing.T) {
	path := writeFile(t, "config.yaml", "oracle: crystal-ball\n")
	_, err := Load(path)
	assert.ErrorContains(t, err, "unknown oracle")
}

func TestPathFromEnv(t *testing.T) {
	t.Setenv("RDOPKG_CONFIG", "/etc/rdopkg.yaml")
	assert.Equal(t, "/etc/rdopkg.yaml", Path())
}
