// Package player is the terminal's stand-in for a video element.
//
// A Handle resolves its item on the work pool, then simulates buffering in
// fixed steps toward the readiness its priority asks for. Once playing, a
// clip clock loops over the clip length and reports the remaining time on
// every tick. All Handle methods and all signals run on the event loop.
package player

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/abelbrown/reel/internal/feed"
	"github.com/abelbrown/reel/internal/loop"
	"github.com/abelbrown/reel/internal/media"
	"github.com/abelbrown/reel/internal/otel"
	"github.com/abelbrown/reel/internal/resolve"
	"github.com/abelbrown/reel/internal/work"
)

var (
	// ErrAutoplayBlocked is returned by Play until the user interacts.
	ErrAutoplayBlocked = errors.New("player: autoplay blocked")
	// ErrNotBuffered is returned by Play on a handle that cannot start yet.
	ErrNotBuffered = errors.New("player: not buffered")
	errReleased    = errors.New("player: released")
)

// Config tunes the simulation.
type Config struct {
	Clip       time.Duration // clip length; the clock loops
	BufferStep time.Duration // time per ready-state step
	Tick       time.Duration // clip clock resolution
	// Autoplay allows Play before Unlock is called.
	Autoplay bool
	// RejectUnbuffered makes Play fail below media.PlayableState.
	RejectUnbuffered bool
}

// DefaultConfig returns a 15s clip buffering 200ms per step.
func DefaultConfig() Config {
	return Config{
		Clip:       15 * time.Second,
		BufferStep: 200 * time.Millisecond,
		Tick:       250 * time.Millisecond,
		Autoplay:   true,
	}
}

// Executor runs resolution jobs off the loop. *work.Pool implements it.
type Executor interface {
	SubmitFunc(typ work.Type, desc string, prio work.Priority, fn work.Func) string
	UpdatePriority(id string, prio work.Priority) bool
	Cancel(id string) bool
}

// Factory opens simulated handles. It implements media.Factory.
type Factory struct {
	resolver resolve.Resolver
	exec     Executor
	sched    loop.Scheduler
	cfg      Config
	log      *otel.Logger

	unlocked atomic.Bool
	open     atomic.Int64
}

// NewFactory creates a factory. log may be nil.
func NewFactory(r resolve.Resolver, exec Executor, sched loop.Scheduler, cfg Config, log *otel.Logger) *Factory {
	def := DefaultConfig()
	if cfg.Clip <= 0 {
		cfg.Clip = def.Clip
	}
	if cfg.BufferStep <= 0 {
		cfg.BufferStep = def.BufferStep
	}
	if cfg.Tick <= 0 {
		cfg.Tick = def.Tick
	}
	return &Factory{resolver: r, exec: exec, sched: sched, cfg: cfg, log: log}
}

// Unlock records a user interaction. Play is allowed from then on even
// when Autoplay is off.
func (f *Factory) Unlock() { f.unlocked.Store(true) }

// Live returns the number of handles not yet released.
func (f *Factory) Live() int { return int(f.open.Load()) }

// Open implements media.Factory. Resolution starts on the first Load.
func (f *Factory) Open(item feed.Item, gen uint64, notify func(media.Signal)) (media.Handle, error) {
	if _, err := resolve.MediaRef(item); err != nil {
		return nil, fmt.Errorf("%w: %v", media.ErrUnavailable, err)
	}
	f.open.Add(1)
	return &Handle{f: f, item: item, gen: gen, notify: notify}, nil
}

func jobPriority(p media.Priority) work.Priority {
	if p == media.Active {
		return work.PriorityHigh
	}
	return work.PriorityNormal
}
