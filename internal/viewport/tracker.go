package viewport

import (
	"time"

	"github.com/abelbrown/reel/internal/loop"
)

// DefaultQuiet is the debounce quiet period.
const DefaultQuiet = 100 * time.Millisecond

// Tracker debounces raw scroll events. At most one timer is outstanding;
// every Observe replaces it, and only the last sample is emitted once the
// quiet period passes without another event.
//
// Not goroutine-safe. All methods run on the event loop.
type Tracker struct {
	sched  loop.Scheduler
	quiet  time.Duration
	emit   func(Sample)
	latest Sample
	cancel func()
	closed bool
}

// NewTracker creates a tracker that delivers samples to emit.
// A non-positive quiet period uses DefaultQuiet.
func NewTracker(sched loop.Scheduler, quiet time.Duration, emit func(Sample)) *Tracker {
	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	return &Tracker{sched: sched, quiet: quiet, emit: emit}
}

// Mount emits the initial sample immediately, bypassing the debounce.
// A closed tracker is re-armed.
func (t *Tracker) Mount(initial Sample) {
	t.closed = false
	t.stop()
	t.latest = normalize(initial)
	t.emit(t.latest)
}

// Observe records a raw scroll event.
func (t *Tracker) Observe(s Sample) {
	if t.closed {
		return
	}
	t.latest = normalize(s)
	t.stop()
	t.cancel = t.sched.After(t.quiet, t.fire)
}

func (t *Tracker) fire() {
	t.cancel = nil
	if t.closed {
		return
	}
	t.emit(t.latest)
}

func (t *Tracker) stop() {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

// Pending reports whether a debounce timer is outstanding.
func (t *Tracker) Pending() bool {
	return t.cancel != nil
}

// Latest returns the most recent observed sample, emitted or not.
func (t *Tracker) Latest() Sample {
	return t.latest
}

// Close cancels any pending timer. Events are ignored until the next Mount.
func (t *Tracker) Close() {
	t.stop()
	t.closed = true
}
