package storage

import (
	"context"
	"sort"
	"sync"
)

// SeedStations returns the registry shipped with a fresh install. The
// initial migration inserts the same rows.
func SeedStations() []Station {
	return []Station{
		{Name: "峙书", Lon: 107.2879, Lat: 22.1235, Region: "崇左宁明"},
		{Name: "守旗", Lon: 107.6518, Lat: 22.4539, Region: "崇左扶绥"},
		{Name: "弄滩", Lon: 107.2668, Lat: 22.2477, Region: "崇左江州"},
		{Name: "派岸", Lon: 107.272, Lat: 22.3027, Region: "崇左江州"},
		{Name: "寨安", Lon: 107.0092, Lat: 22.0386, Region: "崇左宁明"},
		{Name: "强胜", Lon: 107.5495, Lat: 22.3185, Region: "崇左江州"},
		{Name: "康宁", Lon: 107.2714, Lat: 22.087, Region: "崇左宁明"},
		{Name: "驮堪", Lon: 107.2574, Lat: 23.1326, Region: "崇左天等"},
		{Name: "浦峙", Lon: 107.3855, Lat: 22.1573, Region: "崇左宁明"},
		{Name: "岑凡", Lon: 107.8472, Lat: 22.3392, Region: "崇左扶绥"},
		{Name: "樟木", Lon: 109.3785, Lat: 23.379, Region: "贵港"},
		{Name: "榕木", Lon: 109.494, Lat: 22.9408, Region: "贵港"},
		{Name: "那小", Lon: 107.4159, Lat: 22.1853, Region: "崇左"},
	}
}

// MemoryStations is a process-local station registry used when no database
// is configured.
type MemoryStations struct {
	mu       sync.RWMutex
	stations map[string]Station
}

// NewMemoryStations builds a registry holding seed.
func NewMemoryStations(seed []Station) *MemoryStations {
	m := &MemoryStations{stations: make(map[string]Station, len(seed))}
	for _, st := range seed {
		m.stations[st.Name] = st
	}
	return m
}

// UpsertStations inserts or replaces entries by name.
func (m *MemoryStations) UpsertStations(_ context.Context, stations []Station) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, st := range stations {
		m.stations[st.Name] = st
	}
	return nil
}

// ListStations returns every entry ordered by name.
func (m *MemoryStations) ListStations(context.Context) ([]Station, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Station, 0, len(m.stations))
	for _, st := range m.stations {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetStation looks up one entry.
func (m *MemoryStations) GetStation(_ context.Context, name string) (Station, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.stations[name]
	if !ok {
		return Station{}, ErrStationNotFound
	}
	return st, nil
}

// DeleteStation removes an entry; unknown names report ErrStationNotFound.
func (m *MemoryStations) DeleteStation(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stations[name]; !ok {
		return ErrStationNotFound
	}
	delete(m.stations, name)
	return nil
}

var _ StationStore = (*MemoryStations)(nil)
