package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rescp17/nearbyExchanger/pkg/nearby"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, nearby.StrategyPointToPoint, cfg.StrategyValue())
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty service id", func(c *Config) { c.ServiceID = "" }, "service_id must not be empty"},
		{"port too large", func(c *Config) { c.Port = 70000 }, "port 70000 is out of range"},
		{"bad strategy", func(c *Config) { c.Strategy = "mesh" }, `unknown strategy "mesh"`},
		{"bad store", func(c *Config) { c.Store = "bolt" }, `got "bolt"`},
		{"zero timeout", func(c *Config) { c.ConnectTimeout = 0 }, "connect_timeout must be positive"},
		{"zero buffer", func(c *Config) { c.EventBufferSize = 0 }, "event_buffer_size must be positive"},
		{"bad chunk", func(c *Config) { c.Transfer.ChunkSize = 0 }, "transfer: chunk_size must be positive"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := "device_name: kitchen\nport: 8090\nstore: sqlite\nconnect_timeout: 5s\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "kitchen", cfg.DeviceName)
	assert.Equal(t, 8090, cfg.Port)
	assert.Equal(t, "sqlite", cfg.Store)
	assert.Equal(t, 5*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, Default().ServiceID, cfg.ServiceID)
	assert.Equal(t, Default().Transfer, cfg.Transfer)
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [1, 2"), 0o600))
	_, err := Load(path)
	assert.ErrorContains(t, err, "parse config")
}

func TestSaveLoad(t *testing.T) {
	path := Path(filepath.Join(t.TempDir(), "nested"))
	cfg := Default()
	cfg.DeviceName = "desk"
	cfg.ConnectTimeout = 3 * time.Second
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestResolveDataDir_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(DataDirEnv, dir)
	got, err := ResolveDataDir()
	require.NoError(t, err)
	assert.Equal(t, dir, got)
}
