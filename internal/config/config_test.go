package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"curtailwatch/internal/curtailment"
	"curtailwatch/internal/series"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  timezone: UTC\n"))
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, cfg.Scheduler.Interval)
	assert.Equal(t, 24*time.Hour, cfg.Scheduler.Lookback)
	assert.Equal(t, curtailment.DefaultThresholds(), cfg.Thresholds())
	assert.Equal(t, ":3001", cfg.Server.Addr)
	assert.Equal(t, "#ff4646", cfg.Export.CurtailmentColor)

	opts := cfg.EngineOptions()
	assert.Equal(t, series.GranularityPoint, opts.Granularity)
	assert.Equal(t, 1.0, opts.Axis.ScaleFactor)
	assert.True(t, opts.Axis.UseDefaultLimits)
	assert.Equal(t, 23, opts.Window.Hour.End)
}

func TestLoadUnparsableThresholdFallsBack(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
app:
  timezone: UTC
analysis:
  irradiance_threshold: "abc"
  diff_threshold: "5"
  granularity: day
axis:
  scale_factor: 0
  overrides:
    实际功率:
      max: 120
`))
	require.NoError(t, err)

	th := cfg.Thresholds()
	assert.Equal(t, curtailment.DefaultIrradianceThreshold, th.Irradiance)
	assert.Equal(t, 5.0, th.Diff)

	opts := cfg.EngineOptions()
	assert.Equal(t, series.GranularityDay, opts.Granularity)
	assert.Equal(t, 1.0, opts.Axis.ScaleFactor)
	require.Contains(t, opts.AxisOverrides, "实际功率")
	require.NotNil(t, opts.AxisOverrides["实际功率"].Max)
	assert.Equal(t, 120.0, *opts.AxisOverrides["实际功率"].Max)
	assert.Nil(t, opts.AxisOverrides["实际功率"].Min)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CURTAILWATCH_SERVER_ADDR", ":8080")
	t.Setenv("CURTAILWATCH_ANALYSIS_DIFF_THRESHOLD", "7.5")

	cfg, err := Load(writeConfig(t, "app:\n  timezone: UTC\n"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 7.5, cfg.Thresholds().Diff)
}

func TestValidateRejectsBadValues(t *testing.T) {
	_, err := Load(writeConfig(t, "app:\n  timezone: UTC\nanalysis:\n  granularity: week\n"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "app:\n  timezone: Mars/Olympus\n"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "app:\n  timezone: UTC\nalerting:\n  telegram:\n    enabled: true\n"))
	require.Error(t, err)
}

func TestResolveMaxPoints(t *testing.T) {
	cfg := &Config{Export: ExportConfig{MaxDataPoints: 100}}
	assert.Equal(t, 100, cfg.ResolveMaxPoints(0))
	assert.Equal(t, 5, cfg.ResolveMaxPoints(5))
}
