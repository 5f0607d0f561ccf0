package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"curtailwatch/internal/engine"
	"curtailwatch/internal/fetcher"
	"curtailwatch/internal/series"
	"curtailwatch/internal/storage"
)

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorBody{Error: msg})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		s.writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return false
	}
	return true
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"status": "online",
		"time":   s.deps.Now().UTC().Format(time.RFC3339),
	})
}

type analyzeRequest struct {
	Series  []series.TimeSeries `json:"series"`
	Options json.RawMessage     `json:"options,omitempty"`
}

type pointStatus struct {
	Time      time.Time `json:"time"`
	Curtailed bool      `json:"curtailed"`
}

type analyzeResponse struct {
	engine.Result
	Classification map[string][]pointStatus `json:"classification"`
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.Series) == 0 {
		s.writeError(w, http.StatusBadRequest, "series is required")
		return
	}

	opts := s.deps.Defaults
	if len(req.Options) > 0 {
		if err := json.Unmarshal(req.Options, &opts); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid options: "+err.Error())
			return
		}
	}
	granularity, err := series.ParseGranularity(string(opts.Granularity))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts.Granularity = granularity

	for i := range req.Series {
		req.Series[i].Points = series.Normalize(req.Series[i].Points)
	}

	res, err := s.deps.Engine.Run(req.Series, opts)
	if err != nil {
		s.logger.Error().Err(err).Msg("analysis failed")
		s.writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	s.writeJSON(w, http.StatusOK, analyzeResponse{Result: res, Classification: flattenClassification(res)})
}

func flattenClassification(res engine.Result) map[string][]pointStatus {
	out := make(map[string][]pointStatus, len(res.Classification))
	for group, status := range res.Classification {
		points := make([]pointStatus, 0, len(status))
		for nanos, curtailed := range status {
			points = append(points, pointStatus{Time: time.Unix(0, nanos).UTC(), Curtailed: curtailed})
		}
		sort.Slice(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
		out[group] = points
	}
	return out
}

type stationBody struct {
	Name    string  `json:"name"`
	Lon     float64 `json:"lon"`
	Lat     float64 `json:"lat"`
	Region  string  `json:"region"`
	Azimuth float64 `json:"azimuth"`
	Tilt    float64 `json:"tilt"`
}

func toBody(st storage.Station) stationBody {
	return stationBody{Name: st.Name, Lon: st.Lon, Lat: st.Lat, Region: st.Region, Azimuth: st.Azimuth, Tilt: st.Tilt}
}

func (b stationBody) station() storage.Station {
	return storage.Station{Name: strings.TrimSpace(b.Name), Lon: b.Lon, Lat: b.Lat, Region: b.Region, Azimuth: b.Azimuth, Tilt: b.Tilt}
}

func (s *Server) stations(w http.ResponseWriter) (storage.StationStore, bool) {
	if s.deps.Stations == nil {
		s.writeError(w, http.StatusServiceUnavailable, "station registry not configured")
		return nil, false
	}
	return s.deps.Stations, true
}

func (s *Server) listStations(w http.ResponseWriter, r *http.Request) {
	store, ok := s.stations(w)
	if !ok {
		return
	}
	list, err := store.ListStations(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list stations failed")
		s.writeError(w, http.StatusInternalServerError, "failed to list stations")
		return
	}
	out := make([]stationBody, 0, len(list))
	for _, st := range list {
		out = append(out, toBody(st))
	}
	s.writeJSON(w, http.StatusOK, out)
}

// upsertStation accepts one station object or an array of them.
func (s *Server) upsertStation(w http.ResponseWriter, r *http.Request) {
	store, ok := s.stations(w)
	if !ok {
		return
	}
	var raw json.RawMessage
	if !s.decode(w, r, &raw) {
		return
	}

	var bodies []stationBody
	if trimmed := strings.TrimSpace(string(raw)); strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(raw, &bodies); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid stations: "+err.Error())
			return
		}
	} else {
		var one stationBody
		if err := json.Unmarshal(raw, &one); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid station: "+err.Error())
			return
		}
		bodies = []stationBody{one}
	}

	list := make([]storage.Station, 0, len(bodies))
	for _, b := range bodies {
		st := b.station()
		if st.Name == "" {
			s.writeError(w, http.StatusBadRequest, "station name is required")
			return
		}
		list = append(list, st)
	}
	if err := store.UpsertStations(r.Context(), list); err != nil {
		s.logger.Error().Err(err).Msg("upsert stations failed")
		s.writeError(w, http.StatusInternalServerError, "failed to save stations")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "count": len(list)})
}

func (s *Server) deleteStation(w http.ResponseWriter, r *http.Request) {
	store, ok := s.stations(w)
	if !ok {
		return
	}
	name := mux.Vars(r)["name"]
	err := store.DeleteStation(r.Context(), name)
	switch {
	case errors.Is(err, storage.ErrStationNotFound):
		s.writeError(w, http.StatusNotFound, "station not found: "+name)
	case err != nil:
		s.logger.Error().Err(err).Str("station", name).Msg("delete station failed")
		s.writeError(w, http.StatusInternalServerError, "failed to delete station")
	default:
		s.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

func (s *Server) irradiance(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("stationName"))
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if name == "" || date == "" {
		s.writeError(w, http.StatusBadRequest, "stationName and date are required")
		return
	}
	if s.deps.Irradiance == nil {
		s.writeError(w, http.StatusServiceUnavailable, "irradiance archive not configured")
		return
	}
	store, ok := s.stations(w)
	if !ok {
		return
	}

	station, err := store.GetStation(r.Context(), name)
	if errors.Is(err, storage.ErrStationNotFound) {
		s.writeError(w, http.StatusNotFound, "station not found: "+name)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to look up station")
		return
	}

	curve, err := s.deps.Irradiance.FetchIrradiance(r.Context(), station, date)
	switch {
	case errors.Is(err, fetcher.ErrInvalidDate):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		s.logger.Warn().Err(err).Str("station", name).Str("date", date).Msg("irradiance fetch failed")
		s.writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.writeJSON(w, http.StatusOK, curve)
	}
}
