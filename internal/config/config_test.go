package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
app:
  log_level: debug
instrument:
  underlying_key: "NSE_INDEX|Nifty Bank"
  quantity: 15
risk:
  stop_loss: 1000
  take_profit: 2000
  max_trades_per_day: 5
  max_daily_loss: 3000
  max_runtime_seconds: 21600
  tick_interval_seconds: 60
`

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("valid config with defaults", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "config.yaml", validYAML)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "debug", cfg.App.LogLevel)
		assert.Equal(t, 1000.0, cfg.Risk.StopLoss)
		assert.Equal(t, int64(15), cfg.Instrument.Quantity)

		// Operational knobs come from defaults when absent.
		assert.Equal(t, "paper", cfg.Broker.Mode)
		assert.Equal(t, 3, cfg.Risk.AuthAttempts)
		assert.Equal(t, 5, cfg.Risk.FlattenAttempts)
		assert.Equal(t, 9, cfg.Strategy.FastPeriod)
		assert.Equal(t, 21, cfg.Strategy.SlowPeriod)
		assert.Equal(t, "minutes", cfg.Instrument.Unit)
		assert.Equal(t, 50.0, cfg.Instrument.StrikeStep)
	})

	t.Run("missing risk section fails schema", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "config.yaml", `
instrument:
  underlying_key: "NSE_INDEX|Nifty Bank"
  quantity: 15
`)
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "schema")
	})

	t.Run("missing stop_loss fails schema", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "config.yaml", `
instrument:
  underlying_key: "NSE_INDEX|Nifty Bank"
  quantity: 15
risk:
  take_profit: 2000
  max_trades_per_day: 5
  max_daily_loss: 3000
  max_runtime_seconds: 21600
  tick_interval_seconds: 60
`)
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("non-positive limit fails validation", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "config.yaml", `
instrument:
  underlying_key: "NSE_INDEX|Nifty Bank"
  quantity: 15
risk:
  stop_loss: 1000
  take_profit: 2000
  max_trades_per_day: 5
  max_daily_loss: 0
  max_runtime_seconds: 21600
  tick_interval_seconds: 60
`)
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_daily_loss")
	})

	t.Run("explicitly zero knob is not defaulted away", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "config.yaml", validYAML+`
strategy:
  fast_period: 0
  slow_period: 21
`)
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "strategy")
	})

	t.Run("live mode requires token path", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "config.yaml", validYAML+`
broker:
  mode: live
`)
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "token_path")
	})

	t.Run("invalid broker mode fails schema", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "config.yaml", validYAML+`
broker:
  mode: dryrun
`)
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestLoadIncludes(t *testing.T) {
	t.Run("included file merges under the main one", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "base.yaml", validYAML)
		main := writeConfig(t, dir, "config.yaml", `
include:
  - base.yaml
risk:
  take_profit: 5000
`)
		cfg, err := Load(main)
		require.NoError(t, err)
		// Base supplies the rest, the main file wins on overlap.
		assert.Equal(t, 5000.0, cfg.Risk.TakeProfit)
		assert.Equal(t, 1000.0, cfg.Risk.StopLoss)
	})

	t.Run("include cycle is rejected", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "a.yaml", "include:\n  - b.yaml\n")
		writeConfig(t, dir, "b.yaml", "include:\n  - a.yaml\n")
		_, err := Load(filepath.Join(dir, "a.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cycle")
	})
}
