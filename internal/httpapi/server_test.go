package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"curtailwatch/internal/config"
	"curtailwatch/internal/engine"
	"curtailwatch/internal/fetcher"
	"curtailwatch/internal/series"
	"curtailwatch/internal/storage"
)

var cst = time.FixedZone("CST", 8*3600)

type stubIrradiance struct {
	err   error
	calls int
}

func (s *stubIrradiance) FetchIrradiance(_ context.Context, st storage.Station, date string) (series.TimeSeries, error) {
	s.calls++
	if s.err != nil {
		return series.TimeSeries{}, s.err
	}
	return series.TimeSeries{
		ID:         "irr",
		MetricKey:  fetcher.IrradianceMetric,
		Date:       date,
		Dimensions: series.Dimensions{{Key: "场站名称", Value: st.Name}},
		Points:     []series.Point{{Time: time.Date(2024, 5, 1, 0, 0, 0, 0, cst), Value: 1.5}},
	}, nil
}

func newTestServer(irr fetcher.IrradianceFetcher) *Server {
	cfg := config.ServerConfig{AllowedOrigins: []string{"*"}, MaxBodyBytes: 1 << 20}
	return NewServer(cfg, Deps{
		Engine:     engine.New(zerolog.Nop()),
		Defaults:   engine.DefaultOptions(),
		Stations:   storage.NewMemoryStations(storage.SeedStations()),
		Irradiance: irr,
		Now:        func() time.Time { return time.Date(2024, 5, 1, 2, 0, 0, 0, time.UTC) },
	}, zerolog.Nop())
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(nil).Handler(), http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "online", body["status"])
	assert.Equal(t, "2024-05-01T02:00:00Z", body["time"])
}

func analyzePayload(t *testing.T, options string) string {
	t.Helper()
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, cst)
	build := func(metric string, values ...float64) series.TimeSeries {
		points := make([]series.Point, len(values))
		for i, v := range values {
			points[i] = series.Point{Time: start.Add(time.Duration(i) * 15 * time.Minute), Value: v}
		}
		return series.TimeSeries{
			ID:         metric,
			MetricKey:  metric,
			Date:       "2024-05-01",
			Dimensions: series.Dimensions{{Key: "场站名称", Value: "峙书"}},
			Points:     points,
		}
	}
	list := []series.TimeSeries{
		build("辐照度", 50, 60, 55, 40, 45),
		build("AGC远方指令", 10, 10, 10, 10, 10),
		build("实际功率", 10, 10, 5, 10, 10),
	}
	raw, err := json.Marshal(list)
	require.NoError(t, err)
	if options == "" {
		return fmt.Sprintf(`{"series":%s}`, raw)
	}
	return fmt.Sprintf(`{"series":%s,"options":%s}`, raw, options)
}

func TestAnalyzeReturnsIntervalsAndClassification(t *testing.T) {
	rec := do(t, newTestServer(nil).Handler(), http.MethodPost, "/api/analyze", analyzePayload(t, ""))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		GroupDimension string `json:"groupDimension"`
		Groups         []struct {
			Key          string `json:"key"`
			Analyzed     bool   `json:"analyzed"`
			RawIntervals []struct {
				EndInclusive bool `json:"endInclusive"`
			} `json:"rawIntervals"`
		} `json:"groups"`
		Classification map[string][]pointStatus `json:"classification"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "场站名称", body.GroupDimension)
	require.Len(t, body.Groups, 1)
	assert.True(t, body.Groups[0].Analyzed)
	require.Len(t, body.Groups[0].RawIntervals, 2)
	assert.True(t, body.Groups[0].RawIntervals[1].EndInclusive)

	status := body.Classification["2024-05-01_峙书"]
	require.Len(t, status, 5)
	assert.True(t, status[0].Time.Before(status[1].Time))
	assert.False(t, status[2].Curtailed)
}

func TestAnalyzeRejectsBadInput(t *testing.T) {
	h := newTestServer(nil).Handler()

	rec := do(t, h, http.MethodPost, "/api/analyze", `{"series":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)

	rec = do(t, h, http.MethodPost, "/api/analyze", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/analyze", analyzePayload(t, `{"granularity":"week"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeBodyLimit(t *testing.T) {
	srv := NewServer(config.ServerConfig{MaxBodyBytes: 16}, Deps{Defaults: engine.DefaultOptions()}, zerolog.Nop())
	rec := do(t, srv.Handler(), http.MethodPost, "/api/analyze", analyzePayload(t, ""))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestStationsCRUD(t *testing.T) {
	h := newTestServer(nil).Handler()

	rec := do(t, h, http.MethodGet, "/api/stations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []stationBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 13)

	rec = do(t, h, http.MethodPost, "/api/stations", `[{"name":"新站","lon":108.1,"lat":22.5,"region":"南宁"},{"name":"峙书","lon":1,"lat":2}]`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/stations", `{"name":"  ","lon":1,"lat":2}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/stations", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 14)

	rec = do(t, h, http.MethodDelete, "/api/stations/"+urlEscape("新站"), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodDelete, "/api/stations/"+urlEscape("新站"), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStationsUnavailableWithoutRegistry(t *testing.T) {
	srv := NewServer(config.ServerConfig{}, Deps{}, zerolog.Nop())
	rec := do(t, srv.Handler(), http.MethodGet, "/api/stations", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestIrradianceEndpoint(t *testing.T) {
	stub := &stubIrradiance{}
	h := newTestServer(stub).Handler()

	rec := do(t, h, http.MethodGet, "/api/weather/irradiance?stationName="+urlEscape("峙书")+"&date=2024-05-01", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var curve series.TimeSeries
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &curve))
	assert.Equal(t, fetcher.IrradianceMetric, curve.MetricKey)
	require.Len(t, curve.Points, 1)
	assert.Equal(t, 1.5, curve.Points[0].Value)

	rec = do(t, h, http.MethodGet, "/api/weather/irradiance?date=2024-05-01", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/weather/irradiance?stationName=nowhere&date=2024-05-01", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1, stub.calls)
}

func TestIrradianceEndpointUpstreamErrors(t *testing.T) {
	query := "/api/weather/irradiance?stationName=" + urlEscape("峙书") + "&date=2024-05-01"

	rec := do(t, newTestServer(&stubIrradiance{err: fmt.Errorf("%w: %q", fetcher.ErrInvalidDate, "x")}).Handler(), http.MethodGet, query, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, newTestServer(&stubIrradiance{err: fetcher.ErrNoData}).Handler(), http.MethodGet, query, "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/stations", bytes.NewReader(nil))
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	newTestServer(nil).Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func urlEscape(s string) string {
	return url.PathEscape(s)
}
