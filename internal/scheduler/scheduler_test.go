package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNextTickAligned(t *testing.T) {
	s := New(Options{Interval: 15 * time.Minute, AlignToStart: true}, zerolog.Nop())
	now := time.Date(2024, 5, 1, 10, 7, 30, 0, time.UTC)

	if got := s.nextTick(now); !got.Equal(time.Date(2024, 5, 1, 10, 15, 0, 0, time.UTC)) {
		t.Fatalf("下一个对齐时间不正确: %s", got)
	}
	onBoundary := time.Date(2024, 5, 1, 10, 15, 0, 0, time.UTC)
	if got := s.nextTick(onBoundary); !got.Equal(onBoundary.Add(15 * time.Minute)) {
		t.Fatalf("边界上应跳到下一个桶: %s", got)
	}
	if got := s.bucketStart(now); !got.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("桶起点不正确: %s", got)
	}
}

func TestNextTickUnaligned(t *testing.T) {
	s := New(Options{Interval: time.Minute}, zerolog.Nop())
	now := time.Date(2024, 5, 1, 10, 7, 30, 0, time.UTC)
	if got := s.nextTick(now); !got.Equal(now.Add(time.Minute)) {
		t.Fatalf("未对齐时应为 now+interval: %s", got)
	}
	if got := s.bucketStart(now); !got.Equal(now) {
		t.Fatalf("未对齐时桶起点应为原时间: %s", got)
	}
}

func TestRunStopsAfterMaxTicks(t *testing.T) {
	s := New(Options{Interval: 5 * time.Millisecond, RunOnStart: true, MaxTicks: 3}, zerolog.Nop())

	calls := 0
	err := s.Run(context.Background(), func(ctx context.Context, bucket time.Time) error {
		calls++
		if calls == 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("达到 MaxTicks 应正常返回: %v", err)
	}
	if calls != 3 {
		t.Fatalf("期望执行 3 次, 实际 %d", calls)
	}
}

func TestRunHonoursCancel(t *testing.T) {
	s := New(Options{Interval: time.Hour, StartupDelay: time.Hour}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Run(ctx, func(context.Context, time.Time) error { return nil }); !errors.Is(err, context.Canceled) {
		t.Fatalf("取消后应返回 context.Canceled, 实际 %v", err)
	}
}

func TestNewPanicsOnZeroInterval(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("interval 为 0 时应 panic")
		}
	}()
	New(Options{}, zerolog.Nop())
}
