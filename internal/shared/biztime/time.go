// Package biztime provides the clock used by billing decisions. All storage
// and transport use UTC; resolution correctness depends on "now", so every
// time-sensitive component takes a Clock instead of calling time.Now.
package biztime

import (
	"math"
	"time"
)

// Clock returns the current instant.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return NowUTC() }

// FixedClock always returns T. Useful for deterministic tests and replays.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T.UTC() }

// NowUTC returns current time in UTC.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// MinutesBetween returns the whole minutes elapsed from start to end, never negative.
func MinutesBetween(start, end time.Time) int {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	return int(math.Floor(d.Minutes()))
}

// LaterOf returns the later of a and b.
func LaterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

// ToUTCPtr normalizes an optional time to UTC.
func ToUTCPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
