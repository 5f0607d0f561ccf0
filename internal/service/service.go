package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"curtailwatch/internal/alerting"
	"curtailwatch/internal/engine"
	"curtailwatch/internal/ingest"
	"curtailwatch/internal/scheduler"
	"curtailwatch/internal/storage"
)

// Options configure the watch service.
type Options struct {
	Engine          engine.Options
	Lookback        time.Duration
	Location        *time.Location
	AlertsEnabled   bool
	Channels        []string
	AdvisoryLockKey int64
}

// PassSummary describes one analysis pass.
type PassSummary struct {
	RunID        uuid.UUID
	From         time.Time
	To           time.Time
	Measurements int
	Groups       int
	Intervals    int
	Created      int
	Notified     int
}

// Service re-analyses stored measurements, persists intervals, and alerts
// on intervals not yet reported.
type Service struct {
	scheduler    *scheduler.Scheduler
	engine       *engine.Engine
	measurements storage.MeasurementStore
	intervals    storage.IntervalStore
	notifier     alerting.Notifier
	logger       zerolog.Logger

	opts   Options
	locker storage.AdvisoryLocker
	newID  func() uuid.UUID
}

// New constructs the watch service.
func New(opts Options, sched *scheduler.Scheduler, eng *engine.Engine, measurements storage.MeasurementStore, intervals storage.IntervalStore, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Engine.GroupDimension == "" {
		opts.Engine.GroupDimension = ingest.StationDimension
	}

	var locker storage.AdvisoryLocker
	if l, ok := measurements.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		scheduler:    sched,
		engine:       eng,
		measurements: measurements,
		intervals:    intervals,
		notifier:     notifier,
		logger:       logger.With().Str("component", "service").Logger(),
		opts:         opts,
		locker:       locker,
		newID:        uuid.New,
	}
}

// Run begins the periodic re-analysis loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	if s.measurements == nil {
		return fmt.Errorf("measurement store not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessBucket)
}

// ProcessBucket analyses the lookback window ending at bucket, widened to
// whole local days.
func (s *Service) ProcessBucket(ctx context.Context, bucket time.Time) error {
	_, err := s.ProcessWindow(ctx, WindowStart(bucket, s.opts.Lookback, s.opts.Location), bucket)
	return err
}

// WindowStart returns local midnight of the day containing to-lookback.
// Date groups are keyed by calendar day, so a window starting mid-day would
// cut an interval short and give it a new start on every pass.
func WindowStart(to time.Time, lookback time.Duration, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := to.Add(-lookback).In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// ProcessWindow analyses measurements with from <= ts < to under the
// advisory lock. A pass skipped because another instance holds the lock
// returns a zero summary and no error.
func (s *Service) ProcessWindow(ctx context.Context, from, to time.Time) (PassSummary, error) {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return PassSummary{}, err
	}
	if !proceed {
		s.logger.Debug().Time("to", to).Msg("skip pass because advisory lock held elsewhere")
		return PassSummary{}, nil
	}
	if unlock != nil {
		defer unlock()
	}

	return s.executeWindow(ctx, from, to)
}

func (s *Service) executeWindow(ctx context.Context, from, to time.Time) (PassSummary, error) {
	summary := PassSummary{RunID: s.newID(), From: from, To: to}

	rows, err := s.measurements.ListMeasurementsBetween(ctx, from, to)
	if err != nil {
		return summary, fmt.Errorf("load measurements: %w", err)
	}
	summary.Measurements = len(rows)
	if len(rows) == 0 {
		s.logger.Info().Time("from", from).Time("to", to).Msg("no measurements in window")
		return summary, nil
	}

	list := ingest.FromMeasurements(rows, s.opts.Location)
	res, err := s.engine.Run(list, s.opts.Engine)
	if err != nil {
		return summary, fmt.Errorf("run analysis: %w", err)
	}
	summary.Groups = len(res.Groups)

	created, err := s.Persist(ctx, res, summary.RunID)
	if err != nil {
		return summary, err
	}
	summary.Intervals = len(IntervalRecords(res, summary.RunID))
	summary.Created = len(created)

	summary.Notified = s.notifyPending(ctx)

	s.logger.Info().Str("run_id", summary.RunID.String()).
		Int("measurements", summary.Measurements).
		Int("groups", summary.Groups).
		Int("intervals", summary.Intervals).
		Int("created", summary.Created).
		Int("notified", summary.Notified).
		Msg("analysis pass recorded")
	return summary, nil
}

// Persist stores the raw intervals of res and returns the newly created ones.
func (s *Service) Persist(ctx context.Context, res engine.Result, runID uuid.UUID) ([]storage.IntervalRecord, error) {
	if s.intervals == nil {
		return nil, nil
	}
	created, err := s.intervals.UpsertIntervals(ctx, IntervalRecords(res, runID))
	if err != nil {
		return nil, fmt.Errorf("persist intervals: %w", err)
	}
	return created, nil
}

// notifyPending sends every interval without a recorded notification.
// Failures leave the interval pending for the next pass.
func (s *Service) notifyPending(ctx context.Context) int {
	if !s.opts.AlertsEnabled || s.notifier == nil || s.intervals == nil {
		return 0
	}

	pending, err := s.intervals.ListUnnotifiedIntervals(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list pending intervals")
		return 0
	}

	sent := 0
	for _, rec := range pending {
		note := s.notification(rec)
		if err := s.notifier.Notify(ctx, note); err != nil {
			s.logger.Error().Err(err).Str("group", rec.GroupKey).Time("start", rec.Start).Msg("failed to dispatch alert")
			continue
		}
		if err := s.intervals.MarkNotified(ctx, rec.GroupKey, rec.Start, time.Now().UTC()); err != nil {
			s.logger.Error().Err(err).Str("group", rec.GroupKey).Msg("failed to mark interval notified")
			continue
		}
		sent++
	}
	return sent
}

func (s *Service) notification(rec storage.IntervalRecord) alerting.Notification {
	th := s.opts.Engine.Thresholds.Normalize()
	return alerting.Notification{
		GroupKey:            rec.GroupKey,
		Station:             rec.Station,
		Day:                 rec.Day,
		Start:               rec.Start.In(s.opts.Location),
		End:                 rec.End.In(s.opts.Location),
		EndInclusive:        rec.EndInclusive,
		Ongoing:             rec.EndInclusive,
		IrradianceThreshold: th.Irradiance,
		DiffThreshold:       th.Diff,
		RunID:               rec.RunID.String(),
		Channels:            s.opts.Channels,
	}
}

// IntervalRecords flattens the real-time intervals of every analysed group.
func IntervalRecords(res engine.Result, runID uuid.UUID) []storage.IntervalRecord {
	out := make([]storage.IntervalRecord, 0)
	for _, g := range res.Groups {
		for _, iv := range g.RawIntervals {
			out = append(out, storage.IntervalRecord{
				GroupKey:     g.Key,
				Start:        iv.Start,
				End:          iv.End,
				EndInclusive: iv.EndInclusive,
				Station:      g.Station,
				Day:          g.Date,
				RunID:        runID,
			})
		}
	}
	return out
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.opts.AdvisoryLockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.opts.AdvisoryLockKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotConfigured) {
			return nil, true, nil
		}
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
