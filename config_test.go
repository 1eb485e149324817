package lemonkv_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lemon-mint/lemonkv"
)

func TestDefaultConfig(t *testing.T) {
	cfg := lemonkv.DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":5555", cfg.Addr)
	assert.Equal(t, lemonkv.Duration(15*time.Second), cfg.ConnTimeout)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lemonkv.jsonc")
	content := `{
	// listen on loopback only
	"addr": "127.0.0.1:7000",
	"conn_timeout": "2m",
	"max_entries": 1000,
	"log_level": "debug",
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := lemonkv.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", cfg.Addr)
	assert.Equal(t, lemonkv.Duration(2*time.Minute), cfg.ConnTimeout)
	assert.Equal(t, lemonkv.Duration(10*time.Second), cfg.StatsInterval, "unset fields keep defaults")
	assert.Equal(t, 1000, cfg.MaxEntries)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := lemonkv.LoadConfig(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	tests := map[string]string{
		"syntax":       `{"addr": }`,
		"duration":     `{"conn_timeout": 15}`,
		"bad duration": `{"conn_timeout": "soon"}`,
		"level":        `{"log_level": "loud"}`,
		"negative":     `{"max_entries": -1}`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".json")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
			_, err := lemonkv.LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestConfigMerge(t *testing.T) {
	cfg := lemonkv.DefaultConfig()
	cfg.Merge(&lemonkv.Config{StatsInterval: lemonkv.Duration(time.Second)})
	assert.Equal(t, ":5555", cfg.Addr)
	assert.Equal(t, lemonkv.Duration(time.Second), cfg.StatsInterval)
}

func TestLoadConfig_ZeroDurations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lemonkv.json")
	content := `{"conn_timeout": "0s", "stats_interval": "0s"}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := lemonkv.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, lemonkv.Duration(0), cfg.ConnTimeout)
	assert.Equal(t, lemonkv.Duration(0), cfg.StatsInterval)
	assert.Equal(t, ":5555", cfg.Addr, "absent keys keep defaults")
}

func TestLoadConfig_ExplicitEmptyAddr(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lemonkv.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"addr": ""}`), 0o644))

	_, err := lemonkv.LoadConfig(path)
	assert.ErrorIs(t, err, lemonkv.ErrConfigInvalid)
}
