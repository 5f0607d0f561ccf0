package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"curtailwatch/internal/alerting"
	"curtailwatch/internal/config"
)

const samples = "时间,指标,数值,单位,场站名称\n" +
	"2024-05-01 10:00,辐照度,50,W/m²,峙书\n" +
	"2024-05-01 10:15,辐照度,60,W/m²,峙书\n" +
	"2024-05-01 10:30,辐照度,55,W/m²,峙书\n" +
	"2024-05-01 10:45,辐照度,40,W/m²,峙书\n" +
	"2024-05-01 11:00,辐照度,45,W/m²,峙书\n" +
	"2024-05-01 10:00,AGC远方指令,10,MW,峙书\n" +
	"2024-05-01 10:15,AGC远方指令,10,MW,峙书\n" +
	"2024-05-01 10:30,AGC远方指令,10,MW,峙书\n" +
	"2024-05-01 10:45,AGC远方指令,10,MW,峙书\n" +
	"2024-05-01 11:00,AGC远方指令,10,MW,峙书\n" +
	"2024-05-01 10:00,实际功率,10,MW,峙书\n" +
	"2024-05-01 10:15,实际功率,10,MW,峙书\n" +
	"2024-05-01 10:30,实际功率,5,MW,峙书\n" +
	"2024-05-01 10:45,实际功率,10,MW,峙书\n" +
	"2024-05-01 11:00,实际功率,10,MW,峙书\n"

func newTestApp(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Database.DSN = ""

	var out bytes.Buffer
	a := NewApp(cfg, zerolog.Nop())
	a.Out = &out
	return a, &out
}

func writeSamples(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "samples.csv")
	require.NoError(t, os.WriteFile(path, []byte(samples), 0o600))
	return path
}

func TestAnalyzeTable(t *testing.T) {
	a, out := newTestApp(t)
	require.NoError(t, a.Analyze(context.Background(), AnalyzeOptions{Files: []string{writeSamples(t)}}))

	text := out.String()
	assert.Contains(t, text, "2024-05-01_峙书")
	assert.Contains(t, text, "80.0")
	assert.Contains(t, text, "2024-05-01 10:00")
	assert.Contains(t, text, "11:00 (incl.)")
}

func TestAnalyzeJSONWithOverrides(t *testing.T) {
	a, out := newTestApp(t)
	diff := 1.0
	require.NoError(t, a.Analyze(context.Background(), AnalyzeOptions{
		Files:     []string{writeSamples(t)},
		JSON:      true,
		Overrides: AnalysisOverrides{DiffThreshold: &diff, Granularity: "day"},
	}))

	var res struct {
		Groups []struct {
			Curtailed int `json:"curtailed"`
		} `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	require.Len(t, res.Groups, 1)
	assert.Equal(t, 4, res.Groups[0].Curtailed)
}

func TestAnalyzeErrors(t *testing.T) {
	a, _ := newTestApp(t)
	assert.Error(t, a.Analyze(context.Background(), AnalyzeOptions{}))
	assert.Error(t, a.Analyze(context.Background(), AnalyzeOptions{Files: []string{writeSamples(t)}, Dates: []string{"2030-01-01"}}))
	assert.Error(t, a.Analyze(context.Background(), AnalyzeOptions{Files: []string{writeSamples(t)}, Overrides: AnalysisOverrides{Granularity: "week"}}))
	assert.Error(t, a.Analyze(context.Background(), AnalyzeOptions{Files: []string{writeSamples(t)}, Save: true}), "saving needs a database")
}

func TestExportFromFiles(t *testing.T) {
	a, _ := newTestApp(t)
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "out", "intervals.csv")
	pngPath := filepath.Join(dir, "out", "chart.png")

	require.NoError(t, a.Export(context.Background(), ExportOptions{
		Files:   []string{writeSamples(t)},
		CSVPath: csvPath,
		PNGPath: pngPath,
		Title:   "峙书",
	}))

	file, err := os.Open(csvPath)
	require.NoError(t, err)
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"group_key", "station", "date", "start", "end", "end_inclusive", "duration_minutes"}, rows[0])
	assert.Equal(t, "30.0", rows[1][6])
	assert.Equal(t, "true", rows[2][5])

	png, err := os.ReadFile(pngPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestExportRequiresTarget(t *testing.T) {
	a, _ := newTestApp(t)
	assert.Error(t, a.Export(context.Background(), ExportOptions{Files: []string{writeSamples(t)}}))
}

func TestDownsamplePoints(t *testing.T) {
	a, _ := newTestApp(t)
	list, err := a.newLoader().LoadFiles([]string{writeSamples(t)})
	require.NoError(t, err)
	points := list[0].Points
	require.Len(t, points, 5)

	reduced := downsamplePoints(points, 3)
	require.Len(t, reduced, 3)
	assert.Equal(t, points[0], reduced[0])
	assert.Equal(t, points[4], reduced[2])
	assert.Len(t, downsamplePoints(points, 10), 5)
}

func TestStationsWithoutDatabase(t *testing.T) {
	a, out := newTestApp(t)
	require.NoError(t, a.ListStations(context.Background()))
	assert.Contains(t, out.String(), "峙书")
	assert.Contains(t, out.String(), "107.2879")

	out.Reset()
	require.NoError(t, a.ExportStations(context.Background(), "-"))
	assert.True(t, strings.HasPrefix(out.String(), "\ufeff场站,方位角,倾角,经度,纬度,区域"))

	assert.Error(t, a.ImportStations(context.Background(), filepath.Join(t.TempDir(), "missing.csv")))
}

func TestNewNotifierChannels(t *testing.T) {
	a, _ := newTestApp(t)
	a.Config.Alerting.Channels = []string{"telegram"}
	assert.Nil(t, a.newNotifier(), "telegram disabled leaves no channel")

	a.Config.Alerting.Channels = []string{"log", "telegram", "pager"}
	a.Config.Alerting.Telegram.Enabled = true
	n := a.newNotifier()
	require.NotNil(t, n)
	multi, ok := n.(alerting.Multi)
	require.True(t, ok)
	assert.Len(t, multi, 2)
}

func TestSimulateAlertRequiresAlerting(t *testing.T) {
	a, _ := newTestApp(t)
	assert.Error(t, a.SimulateAlert(context.Background(), SimulateOptions{Station: "峙书"}))

	a.Config.Alerting.Enabled = true
	a.Config.Alerting.Channels = []string{"log"}
	assert.NoError(t, a.SimulateAlert(context.Background(), SimulateOptions{Station: "峙书"}))
}

func TestCommandsNeedingDatabase(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()
	assert.Error(t, a.Show(ctx, ShowOptions{Limit: 5}))
	assert.Error(t, a.Migrate(ctx))
	assert.Error(t, a.Watch(ctx))
}
