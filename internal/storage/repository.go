package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
	// ErrStationNotFound is returned when a station name is not registered.
	ErrStationNotFound = errors.New("storage: station not found")
)

const (
	upsertStationSQL = `INSERT INTO stations (name, lon, lat, region, azimuth, tilt)
    VALUES ($1,$2,$3,$4,$5,$6)
    ON CONFLICT (name) DO UPDATE
    SET lon     = EXCLUDED.lon,
        lat     = EXCLUDED.lat,
        region  = EXCLUDED.region,
        azimuth = EXCLUDED.azimuth,
        tilt    = EXCLUDED.tilt;`

	listStationsSQL = `SELECT name, lon, lat, region, azimuth, tilt
    FROM stations
    ORDER BY name;`

	deleteStationSQL = `DELETE FROM stations WHERE name = $1;`

	getStationSQL = `SELECT name, lon, lat, region, azimuth, tilt
    FROM stations
    WHERE name = $1;`

	upsertMeasurementSQL = `INSERT INTO measurements (metric, station, ts, value, unit)
    VALUES ($1,$2,$3,$4,$5)
    ON CONFLICT (metric, station, ts) DO UPDATE
    SET value = EXCLUDED.value,
        unit  = EXCLUDED.unit;`

	listMeasurementsBetweenSQL = `SELECT metric, station, ts, value, unit
    FROM measurements
    WHERE ts >= $1
      AND ts < $2
    ORDER BY metric, station, ts;`

	upsertIntervalSQL = `INSERT INTO curtailment_intervals (
        group_key,
        start_ts,
        end_ts,
        end_inclusive,
        station,
        day,
        run_id
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    )
    ON CONFLICT (group_key, start_ts) DO UPDATE
    SET end_ts        = EXCLUDED.end_ts,
        end_inclusive = EXCLUDED.end_inclusive,
        run_id        = EXCLUDED.run_id
    RETURNING (xmax = 0) AS inserted, notified_at, created_at;`

	listRecentIntervalsSQL = `SELECT
        group_key,
        start_ts,
        end_ts,
        end_inclusive,
        station,
        day,
        run_id,
        notified_at,
        created_at
    FROM curtailment_intervals
    ORDER BY start_ts DESC
    LIMIT $1;`

	listUnnotifiedIntervalsSQL = `SELECT
        group_key,
        start_ts,
        end_ts,
        end_inclusive,
        station,
        day,
        run_id,
        notified_at,
        created_at
    FROM curtailment_intervals
    WHERE notified_at IS NULL
    ORDER BY start_ts;`

	markIntervalNotifiedSQL = `UPDATE curtailment_intervals
    SET notified_at = $3
    WHERE group_key = $1 AND start_ts = $2;`

	deleteIntervalsBeforeSQL = `DELETE FROM curtailment_intervals WHERE start_ts < $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// StationStore defines operations for the station registry.
type StationStore interface {
	UpsertStations(ctx context.Context, stations []Station) error
	ListStations(ctx context.Context) ([]Station, error)
	GetStation(ctx context.Context, name string) (Station, error)
	DeleteStation(ctx context.Context, name string) error
}

// MeasurementStore defines operations for raw sample persistence.
type MeasurementStore interface {
	UpsertMeasurements(ctx context.Context, rows []Measurement) (int, error)
	ListMeasurementsBetween(ctx context.Context, from, to time.Time) ([]Measurement, error)
}

// IntervalStore defines operations for detected curtailment intervals.
type IntervalStore interface {
	// UpsertIntervals stores the records and returns the ones that did not
	// exist before.
	UpsertIntervals(ctx context.Context, records []IntervalRecord) ([]IntervalRecord, error)
	ListRecentIntervals(ctx context.Context, limit int) ([]IntervalRecord, error)
	ListUnnotifiedIntervals(ctx context.Context) ([]IntervalRecord, error)
	MarkNotified(ctx context.Context, groupKey string, start, at time.Time) error
	DeleteIntervalsBefore(ctx context.Context, olderThan time.Time) error
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to stations, measurements, and intervals.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// the session lock dies with the connection if this fails
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// UpsertStations inserts or replaces registry entries.
func (s *Store) UpsertStations(ctx context.Context, stations []Station) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if len(stations) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, st := range stations {
		batch.Queue(upsertStationSQL, st.Name, st.Lon, st.Lat, st.Region, st.Azimuth, st.Tilt)
	}
	results := pool.SendBatch(ctx, batch)
	defer results.Close()

	for _, st := range stations {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert station %s: %w", st.Name, err)
		}
	}
	return nil
}

// ListStations lists the registry ordered by name.
func (s *Store) ListStations(ctx context.Context) ([]Station, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listStationsSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list stations: %w", queryErr)
	}
	defer rows.Close()

	stations := make([]Station, 0)
	for rows.Next() {
		st, scanErr := scanStation(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		stations = append(stations, st)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return stations, nil
}

// GetStation looks up one station by name.
func (s *Store) GetStation(ctx context.Context, name string) (Station, error) {
	pool, err := s.getPool()
	if err != nil {
		return Station{}, err
	}

	st, scanErr := scanStation(pool.QueryRow(ctx, getStationSQL, name))
	if errors.Is(scanErr, pgx.ErrNoRows) {
		return Station{}, ErrStationNotFound
	}
	if scanErr != nil {
		return Station{}, fmt.Errorf("get station: %w", scanErr)
	}
	return st, nil
}

// DeleteStation removes a station from the registry.
func (s *Store) DeleteStation(ctx context.Context, name string) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	cmdTag, execErr := pool.Exec(ctx, deleteStationSQL, name)
	if execErr != nil {
		return fmt.Errorf("delete station: %w", execErr)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrStationNotFound
	}
	return nil
}

// UpsertMeasurements persists samples; a repeated (metric, station, ts)
// replaces the stored value.
func (s *Store) UpsertMeasurements(ctx context.Context, rows []Measurement) (int, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, m := range rows {
		var value interface{}
		if !math.IsNaN(m.Value) && !math.IsInf(m.Value, 0) {
			value = m.Value
		}
		batch.Queue(upsertMeasurementSQL, m.Metric, m.Station, m.TS, value, m.Unit)
	}
	results := pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := range rows {
		if _, err := results.Exec(); err != nil {
			return i, fmt.Errorf("upsert measurement: %w", err)
		}
	}
	return len(rows), nil
}

// ListMeasurementsBetween lists samples with from <= ts < to.
func (s *Store) ListMeasurementsBetween(ctx context.Context, from, to time.Time) ([]Measurement, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listMeasurementsBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list measurements between: %w", queryErr)
	}
	defer rows.Close()

	out := make([]Measurement, 0)
	for rows.Next() {
		var (
			m     Measurement
			value *float64
		)
		if err := rows.Scan(&m.Metric, &m.Station, &m.TS, &value, &m.Unit); err != nil {
			return nil, err
		}
		m.Value = math.NaN()
		if value != nil {
			m.Value = *value
		}
		out = append(out, m)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// UpsertIntervals persists interval records and returns those newly created.
func (s *Store) UpsertIntervals(ctx context.Context, records []IntervalRecord) ([]IntervalRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(upsertIntervalSQL,
			rec.GroupKey,
			rec.Start,
			rec.End,
			rec.EndInclusive,
			rec.Station,
			rec.Day,
			rec.RunID,
		)
	}
	results := pool.SendBatch(ctx, batch)
	defer results.Close()

	created := make([]IntervalRecord, 0)
	for _, rec := range records {
		var inserted bool
		if err := results.QueryRow().Scan(&inserted, &rec.NotifiedAt, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("upsert interval %s: %w", rec.GroupKey, err)
		}
		if inserted {
			created = append(created, rec)
		}
	}
	return created, nil
}

// ListRecentIntervals lists intervals ordered by descending start.
func (s *Store) ListRecentIntervals(ctx context.Context, limit int) ([]IntervalRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentIntervalsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent intervals: %w", queryErr)
	}
	defer rows.Close()

	return collectIntervals(rows, limit)
}

// ListUnnotifiedIntervals lists intervals no alert has been sent for.
func (s *Store) ListUnnotifiedIntervals(ctx context.Context) ([]IntervalRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listUnnotifiedIntervalsSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list unnotified intervals: %w", queryErr)
	}
	defer rows.Close()

	return collectIntervals(rows, 0)
}

// MarkNotified records that an alert went out for an interval.
func (s *Store) MarkNotified(ctx context.Context, groupKey string, start, at time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	cmdTag, execErr := pool.Exec(ctx, markIntervalNotifiedSQL, groupKey, start, at)
	if execErr != nil {
		return fmt.Errorf("mark interval notified: %w", execErr)
	}
	if cmdTag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DeleteIntervalsBefore prunes intervals that started before olderThan.
func (s *Store) DeleteIntervalsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteIntervalsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete intervals before: %w", execErr)
	}
	return nil
}

func scanStation(row pgx.Row) (Station, error) {
	var st Station
	if err := row.Scan(&st.Name, &st.Lon, &st.Lat, &st.Region, &st.Azimuth, &st.Tilt); err != nil {
		return Station{}, err
	}
	return st, nil
}

func collectIntervals(rows pgx.Rows, capacity int) ([]IntervalRecord, error) {
	out := make([]IntervalRecord, 0, capacity)
	for rows.Next() {
		var rec IntervalRecord
		if err := rows.Scan(
			&rec.GroupKey,
			&rec.Start,
			&rec.End,
			&rec.EndInclusive,
			&rec.Station,
			&rec.Day,
			&rec.RunID,
			&rec.NotifiedAt,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

var (
	_ StationStore     = (*Store)(nil)
	_ MeasurementStore = (*Store)(nil)
	_ IntervalStore    = (*Store)(nil)
	_ AdvisoryLocker   = (*Store)(nil)
)
