package clock

import (
	"testing"
	"time"
)

func TestTimeIsMonotonicRealClock(t *testing.T) {
	// drift 0, sync every 100μs
	sim := New(0, 10, 10000)
	t1 := sim.Time()
	time.Sleep(2 * time.Millisecond)
	t2 := sim.Time()
	if t2 < t1 {
		t.Fatalf("time went backwards: %d then %d", t1, t2)
	}
}

func TestSynchronizationReducesLargeDriftError(t *testing.T) {
	mock := &MockClock{CurrTime: time.Unix(0, 0)}
	// 100 ms/s drift, resync every 500ms
	sim := NewWithSource(100_000, 0, 2, mock)

	mock.Advance(300 * time.Millisecond)
	beforeSync := sim.Time()

	mock.Advance(350 * time.Millisecond)
	afterSync := sim.Time()

	// Without a resync the clock runs ~100ms/s fast; the forced resync at the
	// second read corrects back to real time, so the delta stays well under
	// 500_000 μs.
	delta := afterSync - beforeSync
	if delta >= 500_000 {
		t.Fatalf("resync did not correct drift: delta=%d μs", delta)
	}
}

func TestResyncRestoresRealTime(t *testing.T) {
	mock := &MockClock{CurrTime: time.Unix(100, 0)}
	sim := NewWithSource(50_000, 0, 1, mock) // resync every second

	mock.Advance(1500 * time.Millisecond)
	got := sim.Time()
	// The read crosses the sync boundary: base offset snaps to the undrifted
	// elapsed 1_500_000 μs and the drift term restarts from zero.
	if got != 1_500_000 {
		t.Fatalf("expected logical time 1500000 at resync, got %d", got)
	}
}

func TestDriftAccruesWithinSyncPeriod(t *testing.T) {
	mock := &MockClock{CurrTime: time.Unix(0, 0)}
	sim := NewWithSource(1000, 0, 0.1, mock) // +1ms per second, resync every 10s

	mock.Advance(2 * time.Second)
	got := sim.Time()
	want := int64(2_000_000 + 2_000) // elapsed + drift_rate * elapsed_seconds
	if got != want {
		t.Fatalf("expected %d μs, got %d", want, got)
	}
}

func TestNegativeDriftStaysMonotonic(t *testing.T) {
	mock := &MockClock{CurrTime: time.Unix(0, 0)}
	// Losing more than a full second per second: the naive formula would run
	// backwards within a sync window. The simulator clamps instead.
	sim := NewWithSource(-1_500_000, 0, 0.5, mock)

	prev := sim.Time()
	for i := 0; i < 20; i++ {
		mock.Advance(50 * time.Millisecond)
		cur := sim.Time()
		if cur < prev {
			t.Fatalf("clock went backwards under negative drift: %d then %d", prev, cur)
		}
		prev = cur
	}
}

func TestZeroSyncFrequencyPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for sync frequency 0")
		}
	}()
	New(50, 100, 0)
}

func TestUncertaintyIsConfiguredBound(t *testing.T) {
	sim := New(25, 50, 200)
	if got := sim.Uncertainty(); got != 50 {
		t.Fatalf("expected uncertainty 50, got %v", got)
	}
}
