package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"DEVICE_NAME", "DEVICE_MAC", "DB_PATH", "LOCAL_TIMEZONE", "LOG_LEVEL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.NotContains(t, cfg.DBPath, "~", "home must be expanded")
	assert.True(t, strings.HasSuffix(cfg.DBPath, filepath.Join("Documents", "aranet4.db")))
	assert.Empty(t, cfg.DeviceName)
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"device_name: office\ndevice_mac: C7:18:1A:22:3B:01\ndb_path: /tmp/a4.db\nlocal_timezone: Europe/Rome\n",
	), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "office", cfg.DeviceName)
	assert.Equal(t, "C7:18:1A:22:3B:01", cfg.DeviceMAC)
	assert.Equal(t, "/tmp/a4.db", cfg.DBPath)
	assert.Equal(t, "Europe/Rome", cfg.LocalTimezone)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("device_name: office\ndb_path: /tmp/a4.db\n"), 0o600))

	t.Setenv("DEVICE_NAME", "bedroom")
	t.Setenv("DB_PATH", "/tmp/other.db")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "bedroom", cfg.DeviceName)
	assert.Equal(t, "/tmp/other.db", cfg.DBPath)
}

func TestLoad_MissingFileIsFine(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.NoError(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("device_name: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	assert.Error(t, Config{}.Validate())
	assert.Error(t, Config{DeviceName: "XXX", DeviceMAC: "XXX"}.Validate(), "placeholder values rejected")
	assert.Error(t, Config{DeviceName: "office"}.Validate())
	assert.NoError(t, Config{DeviceName: "office", DeviceMAC: "C7:18:1A:22:3B:01"}.Validate())
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := ExpandHome("~/x/y.db")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x", "y.db"), got)

	got, err = ExpandHome("/abs/path.db")
	require.NoError(t, err)
	assert.Equal(t, "/abs/path.db", got)
}
