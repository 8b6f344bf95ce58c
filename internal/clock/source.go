package clock

import (
	"sync"
	"time"
)

// TimeSource provides the current time. It exists so tests can drive the
// simulator deterministically instead of sleeping.
type TimeSource interface {
	Now() time.Time
}

// RealClock implements TimeSource using the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// MockClock is a threadsafe controllable time source for tests.
type MockClock struct {
	mu       sync.RWMutex
	CurrTime time.Time
}

func (m *MockClock) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.CurrTime
}

// SetTime sets the current time of the mock clock.
func (m *MockClock) SetTime(t time.Time) {
	m.mu.Lock()
	m.CurrTime = t
	m.mu.Unlock()
}

// Advance moves the mock clock forward. Negative durations are ignored.
func (m *MockClock) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	m.CurrTime = m.CurrTime.Add(d)
	m.mu.Unlock()
}
