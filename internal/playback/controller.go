// Package playback drives the play state of the active feed item.
package playback

import (
	"errors"
	"fmt"
	"time"

	"github.com/abelbrown/reel/internal/loop"
	"github.com/abelbrown/reel/internal/media"
	"github.com/abelbrown/reel/internal/otel"
)

// ErrRejected wraps a refused play command, e.g. blocked autoplay.
var ErrRejected = errors.New("playback: play rejected")

// State is the controller state of the active item.
type State int

const (
	Idle State = iota
	Loading
	Buffered
	Playing
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Buffered:
		return "buffered"
	case Playing:
		return "playing"
	default:
		return "idle"
	}
}

const (
	DefaultLookAhead = 3 * time.Second
	DefaultNudge     = 150 * time.Millisecond
)

// Config tunes look-ahead buffering of the next item.
type Config struct {
	// LookAhead is the remaining play time below which the next item is nudged.
	LookAhead time.Duration
	// Nudge is how long the next item plays before it is paused and rewound.
	Nudge time.Duration
}

// Cache is the part of media.Cache the controller needs.
type Cache interface {
	Get(id string) (*media.Entry, bool)
	SetPlaying(id string, playing bool)
}

// Transition is reported to the OnTransition hook.
type Transition struct {
	ItemID   string
	From, To State
}

// Controller owns the play state of exactly one active item at a time.
// Runs on the event loop; not goroutine-safe.
type Controller struct {
	cache Cache
	sched loop.Scheduler
	log   *otel.Logger
	cfg   Config

	activeID string
	nextID   string
	state    State
	lastErr  error

	// One-shot readiness listener for the active item.
	waiting    bool
	waitingGen uint64

	nudged      bool
	nudgeID     string
	nudgeGen    uint64
	nudgeCancel func()

	onTransition func(Transition)
}

// New creates a controller. Zero config fields take defaults. log may be nil.
func New(cache Cache, sched loop.Scheduler, cfg Config, log *otel.Logger) *Controller {
	if cfg.LookAhead <= 0 {
		cfg.LookAhead = DefaultLookAhead
	}
	if cfg.Nudge <= 0 {
		cfg.Nudge = DefaultNudge
	}
	return &Controller{cache: cache, sched: sched, cfg: cfg, log: log}
}

// OnTransition registers fn to observe every state change.
func (c *Controller) OnTransition(fn func(Transition)) { c.onTransition = fn }

// ActiveID returns the active item id, or "".
func (c *Controller) ActiveID() string { return c.activeID }

// State returns the active item's state.
func (c *Controller) State() State { return c.state }

// StateOf returns the state for id. Anything but the active item is Idle.
func (c *Controller) StateOf(id string) State {
	if id != "" && id == c.activeID {
		return c.state
	}
	return Idle
}

// Err returns the last play rejection for the active item, if any.
func (c *Controller) Err() error { return c.lastErr }

func (c *Controller) set(to State) {
	from := c.state
	if from == to {
		return
	}
	c.state = to
	c.log.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindPlayState, Comp: "playback",
		ItemID: c.activeID, State: to.String(), Msg: from.String() + "->" + to.String()})
	if c.onTransition != nil {
		c.onTransition(Transition{ItemID: c.activeID, From: from, To: to})
	}
}

// Activate makes id the active item and remembers nextID for look-ahead
// buffering. The previous active item is forced to Idle first.
func (c *Controller) Activate(id, nextID string) {
	if id == c.activeID && id != "" {
		if nextID != c.nextID {
			c.cancelNudge(true)
			c.nextID = nextID
			c.nudged = false
		}
		return
	}

	c.Deactivate()
	c.cancelNudge(true)
	c.activeID = id
	c.nextID = nextID
	c.nudged = false
	c.lastErr = nil
	if id == "" {
		return
	}

	e, ok := c.cache.Get(id)
	if !ok || e.Failed || e.Handle == nil {
		// Unavailable items stay visible but never play.
		return
	}
	c.set(Loading)
	c.tryPlay(e)
}

// tryPlay plays when the entry is buffered enough, otherwise arms the
// one-shot listener. Never polls.
func (c *Controller) tryPlay(e *media.Entry) {
	if e.Ready < media.PlayableState {
		c.waiting = true
		c.waitingGen = e.Gen
		return
	}
	c.waiting = false
	c.set(Buffered)
	c.play(e)
}

func (c *Controller) play(e *media.Entry) {
	if err := e.Handle.Play(); err != nil {
		c.lastErr = fmt.Errorf("%w: %s: %v", ErrRejected, e.ItemID, err)
		c.log.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindPlayRejected, Comp: "playback",
			ItemID: e.ItemID, Err: err.Error()})
		return
	}
	c.lastErr = nil
	c.cache.SetPlaying(e.ItemID, true)
	c.set(Playing)
}

// Retry re-issues play after a rejection, e.g. on user interaction.
// Reports whether a play command was issued.
func (c *Controller) Retry() bool {
	if c.state != Buffered || c.lastErr == nil {
		return false
	}
	e, ok := c.cache.Get(c.activeID)
	if !ok || e.Handle == nil {
		return false
	}
	c.play(e)
	return true
}

// Deactivate returns the active item to Idle. A playing or buffered handle
// is paused and rewound; a Loading item goes straight to Idle.
func (c *Controller) Deactivate() {
	if c.activeID == "" {
		return
	}
	c.waiting = false
	if c.state == Playing || c.state == Buffered {
		if e, ok := c.cache.Get(c.activeID); ok && e.Handle != nil {
			e.Handle.Pause()
			e.Handle.SeekToStart()
		}
		c.cache.SetPlaying(c.activeID, false)
	}
	c.set(Idle)
	c.activeID = ""
	c.nextID = ""
	c.lastErr = nil
}

// Forget drops every reference to id. Called before its entry is torn down.
func (c *Controller) Forget(id string) {
	if id == "" {
		return
	}
	if id == c.nudgeID {
		c.cancelNudge(false)
	}
	if id == c.activeID {
		c.Deactivate()
	}
	if id == c.nextID {
		c.nextID = ""
	}
}

// HandleSignal is the cache's OnSignal hook. It fires the pending play for
// the active item and starts look-ahead buffering near the end of a clip.
// Signals for anything else are ignored.
func (c *Controller) HandleSignal(e *media.Entry, sig media.Signal) {
	if e.ItemID != c.activeID {
		return
	}
	if e.Failed {
		c.waiting = false
		c.set(Idle)
		return
	}
	if c.waiting && e.Gen == c.waitingGen && e.Ready >= media.PlayableState {
		c.waiting = false
		c.set(Buffered)
		c.play(e)
		return
	}
	if c.state == Playing && !c.nudged && sig.Remaining > 0 && sig.Remaining < c.cfg.LookAhead {
		c.nudge()
	}
}

// nudge briefly plays the next item at position zero so it buffers before
// it becomes active. A timer pauses and rewinds it again.
func (c *Controller) nudge() {
	c.nudged = true
	if c.nextID == "" {
		return
	}
	e, ok := c.cache.Get(c.nextID)
	if !ok || e.Failed || e.Handle == nil {
		return
	}
	if err := e.Handle.Play(); err != nil {
		c.log.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindPlayNudge, Comp: "playback",
			ItemID: e.ItemID, Err: err.Error()})
		return
	}
	c.nudgeID, c.nudgeGen = e.ItemID, e.Gen
	c.log.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindPlayNudge, Comp: "playback", ItemID: e.ItemID})
	c.nudgeCancel = c.sched.After(c.cfg.Nudge, func() {
		c.nudgeCancel = nil
		c.endNudge()
	})
}

// endNudge pauses and rewinds the nudged handle if it is still the same
// incarnation.
func (c *Controller) endNudge() {
	id, gen := c.nudgeID, c.nudgeGen
	c.nudgeID, c.nudgeGen = "", 0
	if id == "" {
		return
	}
	if e, ok := c.cache.Get(id); ok && e.Gen == gen && e.Handle != nil {
		e.Handle.Pause()
		e.Handle.SeekToStart()
	}
}

// cancelNudge stops a pending nudge timer. With rewind the nudged handle is
// paused and rewound immediately instead of waiting for the timer.
func (c *Controller) cancelNudge(rewind bool) {
	if c.nudgeCancel != nil {
		c.nudgeCancel()
		c.nudgeCancel = nil
	}
	if rewind {
		c.endNudge()
		return
	}
	c.nudgeID, c.nudgeGen = "", 0
}

// Nudging reports whether a look-ahead nudge is in flight.
func (c *Controller) Nudging() bool { return c.nudgeCancel != nil }
