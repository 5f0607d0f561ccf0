package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Job is invoked once per tick with the start of the bucket it covers.
type Job func(ctx context.Context, bucket time.Time) error

// Options tune scheduler behaviour.
type Options struct {
	Interval     time.Duration
	AlignToStart bool
	StartupDelay time.Duration
	// RunOnStart fires one pass immediately after the startup delay instead
	// of waiting for the first boundary.
	RunOnStart bool
	// MaxTicks stops Run after that many passes; zero runs until cancelled.
	MaxTicks int
}

// Scheduler drives periodic re-analysis passes.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
	now    func() time.Time
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		panic("scheduler interval must be positive")
	}
	return &Scheduler{
		opts:   opts,
		logger: logger.With().Str("component", "scheduler").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Run blocks, invoking job at each interval until ctx is cancelled or
// MaxTicks passes have run. A failing job is logged and does not stop the loop.
func (s *Scheduler) Run(ctx context.Context, job Job) error {
	if s.opts.StartupDelay > 0 {
		if err := sleep(ctx, s.opts.StartupDelay); err != nil {
			return err
		}
	}

	ticks := 0
	if s.opts.RunOnStart {
		s.fire(ctx, job, s.bucketStart(s.now()))
		ticks++
		if s.done(ticks) {
			return nil
		}
	}

	next := s.nextTick(s.now())
	for {
		delay := next.Sub(s.now())
		if delay < 0 {
			next = s.nextTick(s.now())
			delay = next.Sub(s.now())
		}

		s.logger.Debug().Time("next_bucket", next).Msg("waiting for next bucket")
		if err := sleep(ctx, delay); err != nil {
			return err
		}

		s.fire(ctx, job, s.bucketStart(next))
		ticks++
		if s.done(ticks) {
			return nil
		}
		next = next.Add(s.opts.Interval)
	}
}

func (s *Scheduler) fire(ctx context.Context, job Job, bucket time.Time) {
	s.logger.Info().Time("bucket", bucket).Msg("executing scheduled pass")
	if err := job(ctx, bucket); err != nil {
		s.logger.Error().Err(err).Time("bucket", bucket).Msg("scheduled pass failed")
	}
}

func (s *Scheduler) done(ticks int) bool {
	return s.opts.MaxTicks > 0 && ticks >= s.opts.MaxTicks
}

func (s *Scheduler) nextTick(now time.Time) time.Time {
	if !s.opts.AlignToStart {
		return now.Add(s.opts.Interval)
	}
	bucket := now.Truncate(s.opts.Interval)
	if !bucket.After(now) {
		bucket = bucket.Add(s.opts.Interval)
	}
	return bucket
}

func (s *Scheduler) bucketStart(t time.Time) time.Time {
	if !s.opts.AlignToStart {
		return t
	}
	return t.Truncate(s.opts.Interval)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
