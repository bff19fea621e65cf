package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeFile(t, "config.yaml", `
app:
  log_level: debug
database:
  path: /tmp/test.db
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
	assert.Equal(t, "trader_audit.db", cfg.Database.AuditPath)
	assert.Equal(t, 15*time.Second, cfg.Exchange.HTTPTimeout)
	assert.Equal(t, "gemini-2.0-flash", cfg.Oracle.Model)
	assert.Equal(t, "4h", cfg.Agent.CycleInterval)
	assert.Equal(t, 4*time.Hour, cfg.Agent.CycleEvery())
	assert.Equal(t, 5, cfg.Agent.RequestsPerSecond)
}

func TestLoadRejectsBadInterval(t *testing.T) {
	path := writeFile(t, "config.yaml", `
agent:
  sweep_interval: soon
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sweep_interval")
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TRADER_ORACLE_MODEL", "gemini-2.5-pro")
	path := writeFile(t, "config.yaml", `
oracle:
  model: gemini-2.0-flash
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", cfg.Oracle.Model)
}

func TestLoadAssets(t *testing.T) {
	path := writeFile(t, "assets.yaml", `
assets:
  - symbol: btc
    name: Bitcoin
  - symbol: ETH
    name: Ethereum
    quote: busd
  - symbol: ""
    name: dropped
`)
	assets, err := LoadAssets(path)
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, "BTC", assets[0].Symbol)
	assert.Equal(t, "USDT", assets[0].Quote)
	assert.Equal(t, "BUSD", assets[1].Quote)
}
