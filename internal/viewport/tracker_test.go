package viewport

import (
	"testing"
	"time"

	"github.com/abelbrown/reel/internal/loop"
)

func TestTrackerMountEmitsImmediately(t *testing.T) {
	m := loop.NewManual()
	var got []Sample
	tr := NewTracker(m, 0, func(s Sample) { got = append(got, s) })

	tr.Mount(Sample{ScrollOffset: 0, ViewportHeight: 40})
	if len(got) != 1 {
		t.Fatalf("expected initial sample, got %d", len(got))
	}
	if tr.Pending() {
		t.Error("mount should not leave a timer")
	}
}

func TestTrackerDebouncesToLastSample(t *testing.T) {
	m := loop.NewManual()
	var got []Sample
	tr := NewTracker(m, 100*time.Millisecond, func(s Sample) { got = append(got, s) })

	for i := 1; i <= 10; i++ {
		if i > 1 {
			m.Advance(20 * time.Millisecond)
		}
		tr.Observe(Sample{ScrollOffset: float64(i * 10), ViewportHeight: 100})
	}
	if len(got) != 0 {
		t.Fatalf("emitted %d samples during a burst", len(got))
	}
	if m.Pending() != 1 {
		t.Errorf("expected exactly one outstanding timer, got %d", m.Pending())
	}

	m.Advance(99 * time.Millisecond)
	if len(got) != 0 {
		t.Fatal("emitted before the quiet period elapsed")
	}
	m.Advance(time.Millisecond)
	if len(got) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(got))
	}
	if got[0].ScrollOffset != 100 {
		t.Errorf("emitted offset %v, want last observed 100", got[0].ScrollOffset)
	}
	if tr.Pending() {
		t.Error("timer still pending after firing")
	}
}

func TestTrackerCloseCancelsTimer(t *testing.T) {
	m := loop.NewManual()
	fired := 0
	tr := NewTracker(m, 100*time.Millisecond, func(Sample) { fired++ })

	tr.Observe(Sample{ScrollOffset: 5, ViewportHeight: 10})
	tr.Close()
	m.Advance(time.Second)
	if fired != 0 {
		t.Errorf("timer fired after Close")
	}

	tr.Observe(Sample{ScrollOffset: 6, ViewportHeight: 10})
	m.Advance(time.Second)
	if fired != 0 {
		t.Errorf("closed tracker emitted %d samples", fired)
	}
}

func TestTrackerMountRearmsAfterClose(t *testing.T) {
	m := loop.NewManual()
	var got []Sample
	tr := NewTracker(m, 100*time.Millisecond, func(s Sample) { got = append(got, s) })

	tr.Mount(Sample{ScrollOffset: 0, ViewportHeight: 10})
	tr.Close()
	tr.Mount(Sample{ScrollOffset: 20, ViewportHeight: 10})
	if len(got) != 2 || got[1].ScrollOffset != 20 {
		t.Fatalf("remount samples = %+v", got)
	}

	tr.Observe(Sample{ScrollOffset: 35, ViewportHeight: 10})
	m.Advance(100 * time.Millisecond)
	if len(got) != 3 || got[2].ScrollOffset != 35 {
		t.Errorf("scroll after remount = %+v", got)
	}
}

func TestTrackerClampsNegative(t *testing.T) {
	m := loop.NewManual()
	var got Sample
	tr := NewTracker(m, 10*time.Millisecond, func(s Sample) { got = s })
	tr.Observe(Sample{ScrollOffset: -40, ViewportHeight: 10})
	m.Advance(10 * time.Millisecond)
	if got.ScrollOffset != 0 {
		t.Errorf("offset = %v, want 0", got.ScrollOffset)
	}
}
