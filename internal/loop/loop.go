// Package loop serializes all feed-runtime mutation onto one event loop.
//
// Timers and off-loop results (media resolution, buffering progress) never
// touch runtime state directly. They re-enter through a Scheduler, which
// runs the callback on the loop goroutine. In the TUI that goroutine is the
// bubbletea Update loop; in tests it is the test goroutine driving Manual.
package loop

import "time"

// Scheduler runs callbacks on the event loop.
//
// After schedules fn once after d. The returned cancel func is safe to call
// more than once and after the timer fired; a cancelled callback never runs.
// Post enqueues fn to run on the loop as soon as possible, in FIFO order.
// Post is safe from any goroutine and never blocks.
type Scheduler interface {
	After(d time.Duration, fn func()) (cancel func())
	Post(fn func())
}

// Call is the message that carries a scheduled callback into the bubbletea
// Update loop. The model runs it with Run.
type Call struct {
	fn func()
}

// Run executes the callback. A zero Call is a no-op.
func (c Call) Run() {
	if c.fn != nil {
		c.fn()
	}
}
