// Package clock simulates a synchronized clock subject to bounded drift and
// periodic resynchronization, so that timing-sensitive tests can run against
// realistically imperfect timestamps.
//
// Units:
//
//	drift rate   μs per real second; the clock gains (+) or loses (−) this much
//	uncertainty  ±ε μs; true time lies within [Time()−ε, Time()+ε]
//	sync freq    Hz; resync interval is 1/freq seconds
//	Time()       logical microseconds
package clock

import (
	"time"
)

// Simulator is a drifting clock that is periodically corrected, NTP-like.
// The modeled sync is idealized: it restores the offset exactly but does not
// probe round-trip times or grow the uncertainty with time since last sync.
//
// A Simulator is driven from a single goroutine; callers that share one must
// serialize access externally.
type Simulator struct {
	src          TimeSource
	startInstant time.Time
	baseOffset   int64 // logical μs at last sync
	driftRate    float64
	uncertainty  float64
	syncInterval time.Duration
	lastSync     time.Time
	lastReturned int64
}

// New creates a simulator over the system clock. syncFreq must be positive;
// a non-positive value is a configuration error and panics.
func New(driftRate, uncertainty, syncFreq float64) *Simulator {
	return NewWithSource(driftRate, uncertainty, syncFreq, RealClock{})
}

// NewWithSource is New with an explicit time source, for tests.
func NewWithSource(driftRate, uncertainty, syncFreq float64, src TimeSource) *Simulator {
	if syncFreq <= 0 {
		panic("clock: sync frequency must be > 0")
	}
	now := src.Now()
	return &Simulator{
		src:          src,
		startInstant: now,
		driftRate:    driftRate,
		uncertainty:  uncertainty,
		syncInterval: time.Duration(float64(time.Second) / syncFreq),
		lastSync:     now,
	}
}

// Time returns the current logical time in microseconds. If a sync interval
// has elapsed since the last resync, the clock resynchronizes first, so
// reading the time mutates internal state. Within a sync period the returned
// value never decreases, regardless of how negative the drift rate is; a
// resync may still snap the clock backwards, which is the correction being
// modeled.
func (s *Simulator) Time() int64 {
	now := s.src.Now()
	if now.Sub(s.lastSync) >= s.syncInterval {
		s.synchronize(now)
	}

	elapsed := float64(now.Sub(s.lastSync).Microseconds())
	drift := elapsed / 1e6 * s.driftRate
	t := int64(float64(s.baseOffset) + elapsed + drift)
	if t < s.lastReturned {
		t = s.lastReturned
	}
	s.lastReturned = t
	return t
}

// synchronize resets the logical time to the undrifted real elapsed time
// since start. At the instant of a resync, Time() equals baseOffset.
func (s *Simulator) synchronize(now time.Time) {
	s.baseOffset = now.Sub(s.startInstant).Microseconds()
	s.lastSync = now
	// New sync period, new monotonicity floor.
	s.lastReturned = s.baseOffset
}

// Uncertainty returns the configured ±ε bound in microseconds.
func (s *Simulator) Uncertainty() float64 { return s.uncertainty }
