package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodeadmin/tableau/tableau"
)

func clearEnv(t *testing.T) {
	t.Setenv("TABLEAU_LOG_LEVEL", "")
	t.Setenv("TABLEAU_TIMEOUT", "")
	t.Setenv("TABLEAU_MAX_NODES", "")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	opts, err := cfg.EngineOptions()
	require.NoError(t, err)
	if diff := cmp.Diff(tableau.DefaultOptions(), opts); diff != "" {
		t.Errorf("engine options mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, cfg.HasAbsorption('C'))
	assert.True(t, cfg.HasAbsorption('E'))
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "tableau.yaml")

	cfg := DefaultConfig()
	cfg.Engine.Logic = "SHIQ"
	cfg.Engine.Priorities = "0123456"
	cfg.Query.Timeout = "1500ms"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1500*time.Millisecond, loaded.GetTimeout())

	opts, err := loaded.EngineOptions()
	require.NoError(t, err)
	assert.Equal(t, tableau.LogicSHIQ, opts.Logic)
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_BadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine: [unclosed"), 0644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("TABLEAU_LOG_LEVEL", "debug")
	t.Setenv("TABLEAU_TIMEOUT", "2s")
	t.Setenv("TABLEAU_MAX_NODES", "5000")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 2*time.Second, cfg.GetTimeout())
	assert.Equal(t, 5000, cfg.Query.MaxNodes)

	t.Setenv("TABLEAU_MAX_NODES", "lots")
	_, err = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	cases := map[string]func(*Config){
		"logic":      func(c *Config) { c.Engine.Logic = "ALC" },
		"priorities": func(c *Config) { c.Engine.Priorities = "12" },
		"absorption": func(c *Config) { c.Engine.Absorption = "BXZ" },
		"timeout":    func(c *Config) { c.Query.Timeout = "soon" },
		"max nodes":  func(c *Config) { c.Query.MaxNodes = -1 },
		"level":      func(c *Config) { c.Logging.Level = "loud" },
		"encoding":   func(c *Config) { c.Logging.Encoding = "xml" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := DefaultConfig()
	cfg.Engine.Absorption = ""
	assert.NoError(t, cfg.Validate())
	assert.False(t, cfg.HasAbsorption('C'))
}

func TestNewLogger(t *testing.T) {
	for _, lc := range []LoggingConfig{
		{Level: "info", Encoding: "console"},
		{Level: "debug", Encoding: "json", Development: true},
	} {
		log, err := lc.NewLogger()
		require.NoError(t, err)
		assert.NotNil(t, log)
	}
	_, err := LoggingConfig{Level: "loud", Encoding: "json"}.NewLogger()
	assert.Error(t, err)
}
