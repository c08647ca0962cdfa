package schedule

import (
	"context"
	"time"
)

// Schedule is a fixed period anchored to a reference start instant.
type Schedule struct {
	clock  Clock
	start  time.Time
	period time.Duration
}

// New creates a Schedule. start should come from clock.Now() so that
// elapsed time is measured on the monotonic clock.
func New(clock Clock, start time.Time, period time.Duration) *Schedule {
	return &Schedule{clock: clock, start: start, period: period}
}

// Period returns the schedule period.
func (s *Schedule) Period() time.Duration {
	return s.period
}

// Remaining returns the time left until the next period boundary.
func (s *Schedule) Remaining() time.Duration {
	return Remaining(s.period, s.clock.Now().Sub(s.start))
}

// Wait sleeps until the next period boundary or until ctx is done.
func (s *Schedule) Wait(ctx context.Context) error {
	return s.clock.Sleep(ctx, s.Remaining())
}

// Remaining returns period − (elapsed mod period).
// On an exact boundary a full period is returned, never zero.
func Remaining(period, elapsed time.Duration) time.Duration {
	if period <= 0 {
		return 0
	}
	if elapsed < 0 {
		elapsed = 0
	}
	return period - elapsed%period
}
