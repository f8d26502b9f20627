package player

import (
	"context"
	"fmt"
	"time"

	"github.com/abelbrown/reel/internal/feed"
	"github.com/abelbrown/reel/internal/media"
	"github.com/abelbrown/reel/internal/resolve"
	"github.com/abelbrown/reel/internal/work"
)

// Handle simulates one media element. Not goroutine-safe; the loop owns it.
type Handle struct {
	f      *Factory
	item   feed.Item
	gen    uint64
	notify func(media.Signal)

	priority media.Priority
	loading  bool
	jobID    string
	media    resolve.Media
	resolved bool
	failed   bool
	released bool

	ready       media.ReadyState
	bufferTimer func()

	playing   bool
	position  time.Duration
	clockStop func()
}

// Load starts or reprioritizes loading.
func (h *Handle) Load(p media.Priority) {
	if h.released || h.failed {
		return
	}
	h.priority = p
	switch {
	case !h.loading:
		h.loading = true
		h.startResolve()
	case !h.resolved:
		h.f.exec.UpdatePriority(h.jobID, jobPriority(p))
	default:
		h.scheduleBuffer()
	}
}

func (h *Handle) startResolve() {
	item, gen := h.item, h.gen
	h.jobID = h.f.exec.SubmitFunc(work.TypeResolve, "resolve "+item.ID, jobPriority(h.priority),
		func(ctx context.Context) (string, error) {
			m, err := h.f.resolver.Resolve(ctx, item)
			h.f.sched.Post(func() { h.onResolved(gen, m, err) })
			if err != nil {
				return "", err
			}
			return m.MediaURI, nil
		})
}

func (h *Handle) onResolved(gen uint64, m resolve.Media, err error) {
	if h.released || gen != h.gen {
		return
	}
	h.jobID = ""
	if err != nil {
		h.failed = true
		h.notify(media.Signal{
			ItemID: h.item.ID,
			Gen:    h.gen,
			Kind:   media.SignalFailed,
			Err:    fmt.Errorf("%w: %v", media.ErrUnavailable, err),
		})
		return
	}
	h.resolved = true
	h.media = m
	h.ready = media.HaveMetadata
	h.progress()
	h.scheduleBuffer()
}

// bufferGoal is how far buffering continues. A playing handle fills up.
func (h *Handle) bufferGoal() media.ReadyState {
	if h.playing {
		return media.HaveEnoughData
	}
	return media.Target(h.priority)
}

func (h *Handle) scheduleBuffer() {
	if h.bufferTimer != nil || h.released || !h.resolved || h.ready >= h.bufferGoal() {
		return
	}
	h.bufferTimer = h.f.sched.After(h.f.cfg.BufferStep, func() {
		h.bufferTimer = nil
		if h.released || h.ready >= h.bufferGoal() {
			return
		}
		h.ready++
		h.progress()
		h.scheduleBuffer()
	})
}

func (h *Handle) progress() {
	h.notify(media.Signal{
		ItemID:    h.item.ID,
		Gen:       h.gen,
		Kind:      media.SignalProgress,
		Ready:     h.ready,
		Remaining: h.Remaining(),
	})
}

// Play starts the clip clock.
func (h *Handle) Play() error {
	switch {
	case h.released:
		return errReleased
	case h.failed || !h.resolved:
		return ErrNotBuffered
	case !h.f.cfg.Autoplay && !h.f.unlocked.Load():
		return ErrAutoplayBlocked
	case h.f.cfg.RejectUnbuffered && h.ready < media.PlayableState:
		return ErrNotBuffered
	}
	if h.playing {
		return nil
	}
	h.playing = true
	h.scheduleBuffer()
	h.tick()
	return nil
}

func (h *Handle) tick() {
	h.clockStop = h.f.sched.After(h.f.cfg.Tick, func() {
		h.clockStop = nil
		if !h.playing || h.released {
			return
		}
		h.position += h.f.cfg.Tick
		if h.position >= h.f.cfg.Clip {
			h.position = 0
		}
		h.progress()
		h.tick()
	})
}

// Pause stops the clip clock.
func (h *Handle) Pause() {
	h.playing = false
	if h.clockStop != nil {
		h.clockStop()
		h.clockStop = nil
	}
}

// SeekToStart rewinds the clip.
func (h *Handle) SeekToStart() { h.position = 0 }

// Release stops all timers and drops any pending resolution. Signals are
// never sent after Release.
func (h *Handle) Release() {
	if h.released {
		return
	}
	h.Pause()
	if h.bufferTimer != nil {
		h.bufferTimer()
		h.bufferTimer = nil
	}
	if h.jobID != "" {
		h.f.exec.Cancel(h.jobID)
		h.jobID = ""
	}
	h.released = true
	h.ready = media.HaveNothing
	h.f.open.Add(-1)
}

// ReadyState implements media.Handle.
func (h *Handle) ReadyState() media.ReadyState { return h.ready }

// Remaining is the time left in the current loop of the clip.
func (h *Handle) Remaining() time.Duration {
	if !h.resolved {
		return 0
	}
	return h.f.cfg.Clip - h.position
}

// Progress is the clip position in [0, 1).
func (h *Handle) Progress() float64 {
	return float64(h.position) / float64(h.f.cfg.Clip)
}

// Playing reports whether the clip clock runs.
func (h *Handle) Playing() bool { return h.playing }

// MediaURI is the resolved media location, or "" before resolution.
func (h *Handle) MediaURI() string { return h.media.MediaURI }

// PreviewURI is the resolved still, if any.
func (h *Handle) PreviewURI() string { return h.media.PreviewURI }
