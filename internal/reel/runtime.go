// Package reel owns the feed runtime state: the active window and the
// per-item cache entries, plus the components that keep them current as
// the viewport scrolls.
package reel

import (
	"fmt"
	"sort"
	"time"

	"github.com/abelbrown/reel/internal/feed"
	"github.com/abelbrown/reel/internal/loop"
	"github.com/abelbrown/reel/internal/media"
	"github.com/abelbrown/reel/internal/otel"
	"github.com/abelbrown/reel/internal/playback"
	"github.com/abelbrown/reel/internal/viewport"
	"github.com/abelbrown/reel/internal/window"
)

// Config groups the tunables of every runtime component.
type Config struct {
	Window       window.Config
	Quiet        time.Duration // scroll debounce
	SurrenderPct float64
	Playback     playback.Config
}

// DefaultConfig returns the stock sizing.
func DefaultConfig() Config {
	return Config{
		Window:       window.DefaultConfig(),
		Quiet:        viewport.DefaultQuiet,
		SurrenderPct: viewport.DefaultSurrenderPct,
	}
}

// ActiveWindow is the observable window state. ActiveIndex is -1 when
// there is no active item.
type ActiveWindow struct {
	ActiveIndex int
	Loaded      []int
}

// Contains reports whether i is loaded.
func (w ActiveWindow) Contains(i int) bool {
	j := sort.SearchInts(w.Loaded, i)
	return j < len(w.Loaded) && w.Loaded[j] == i
}

// Runtime is the single owner of feed state. Every method runs on the event
// loop; nothing here is goroutine-safe.
type Runtime struct {
	items []feed.Item
	index map[string]int

	log      *otel.Logger
	tracker  *viewport.Tracker
	resolver *viewport.Resolver
	cache    *media.Cache
	window   *window.Manager
	player   *playback.Controller

	mounted  bool
	plan     window.Plan
	onChange func()
}

// New wires a runtime over items. factory supplies concrete handles;
// sched is the event loop. log may be nil.
func New(items []feed.Item, factory media.Factory, sched loop.Scheduler, cfg Config, log *otel.Logger) (*Runtime, error) {
	if err := feed.Validate(items); err != nil {
		return nil, err
	}
	r := &Runtime{log: log, plan: window.Plan{Active: -1}}
	r.setItems(items)

	r.cache = media.NewCache(factory, log)
	wm, err := window.NewManager(cfg.Window, r.cache, log)
	if err != nil {
		return nil, fmt.Errorf("reel: %w", err)
	}
	r.window = wm
	r.player = playback.New(r.cache, sched, cfg.Playback, log)
	r.resolver = viewport.NewResolver(cfg.SurrenderPct)
	r.tracker = viewport.NewTracker(sched, cfg.Quiet, r.onSample)

	r.window.OnEvict(r.player.Forget)
	r.cache.OnSignal(func(e *media.Entry, sig media.Signal) {
		r.player.HandleSignal(e, sig)
		r.changed()
	})
	return r, nil
}

func (r *Runtime) setItems(items []feed.Item) {
	r.items = make([]feed.Item, len(items))
	copy(r.items, items)
	r.index = make(map[string]int, len(items))
	for i, it := range r.items {
		r.index[it.ID] = i
	}
}

// OnChange registers fn to run after any observable state changes.
func (r *Runtime) OnChange(fn func()) { r.onChange = fn }

func (r *Runtime) changed() {
	if r.onChange != nil {
		r.onChange()
	}
}

// Mount starts the runtime with an initial sample, computed immediately.
// A runtime may be mounted again after Unmount.
func (r *Runtime) Mount(initial viewport.Sample) {
	r.mounted = true
	r.tracker.Mount(initial)
}

// Scroll feeds a raw scroll event. It takes effect after the debounce.
func (r *Runtime) Scroll(s viewport.Sample) {
	if !r.mounted {
		return
	}
	r.tracker.Observe(s)
}

// onSample runs for every debounced sample. The window plan is computed
// and applied before playback reacts, and the controller idles the old
// item before playing the new one.
func (r *Runtime) onSample(s viewport.Sample) {
	if !r.mounted {
		return
	}
	idx, changed := r.resolver.Resolve(s, len(r.items))
	if otel.TraceEnabled() {
		r.log.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindScrollSample, Comp: "reel",
			Index: otel.Idx(idx), Extra: map[string]any{"offset": s.ScrollOffset, "height": s.ViewportHeight}})
	}
	if idx < 0 {
		if changed {
			r.player.Activate("", "")
			r.plan = window.Plan{Active: -1}
			r.changed()
		}
		return
	}

	r.plan, _ = r.window.Apply(idx, r.items)

	next := ""
	if idx+1 < len(r.items) {
		next = r.items[idx+1].ID
	}
	r.player.Activate(r.items[idx].ID, next)
	r.changed()
}

// SetItems replaces the feed, e.g. after an import. Entries for vanished
// items are torn down and the active item is recomputed from the last
// sample.
func (r *Runtime) SetItems(items []feed.Item) error {
	if err := feed.Validate(items); err != nil {
		return err
	}
	r.setItems(items)
	if !r.mounted {
		return nil
	}
	if len(r.items) == 0 {
		r.player.Activate("", "")
		r.release()
		r.resolver.Reset()
		r.plan = window.Plan{Active: -1}
		r.changed()
		return nil
	}
	r.resolver.Reset()
	r.onSample(r.tracker.Latest())
	return nil
}

// Unmount cancels pending timers and releases every handle.
func (r *Runtime) Unmount() {
	if !r.mounted {
		return
	}
	r.tracker.Close()
	r.player.Deactivate()
	r.release()
	r.resolver.Reset()
	r.mounted = false
	r.plan = window.Plan{Active: -1}
	r.changed()
}

func (r *Runtime) release() {
	for _, id := range r.cache.IDs() {
		r.player.Forget(id)
		r.cache.Teardown(id)
	}
}

// Retry re-attempts a rejected play on the active item.
func (r *Runtime) Retry() bool {
	ok := r.player.Retry()
	if ok {
		r.changed()
	}
	return ok
}

// Items returns the current feed.
func (r *Runtime) Items() []feed.Item { return r.items }

// ActiveIndex returns the active index, or -1.
func (r *Runtime) ActiveIndex() int { return r.resolver.Active() }

// LoadedIndices returns the ascending indices that have a cache entry.
func (r *Runtime) LoadedIndices() []int {
	out := make([]int, 0, r.cache.Len())
	for _, id := range r.cache.IDs() {
		if i, ok := r.index[id]; ok {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}

// Window returns the observable active window.
func (r *Runtime) Window() ActiveWindow {
	return ActiveWindow{ActiveIndex: r.ActiveIndex(), Loaded: r.LoadedIndices()}
}

// Plan returns the last applied window plan.
func (r *Runtime) Plan() window.Plan { return r.plan }

// Entry returns the cache entry for id. Callers must not modify it.
func (r *Runtime) Entry(id string) (*media.Entry, bool) { return r.cache.Get(id) }

// EntryState returns the cache state for id.
func (r *Runtime) EntryState(id string) media.State { return r.cache.StateOf(id) }

// PlaybackState returns the active item's playback state.
func (r *Runtime) PlaybackState() playback.State { return r.player.State() }

// PlaybackStateOf returns the playback state for id.
func (r *Runtime) PlaybackStateOf(id string) playback.State { return r.player.StateOf(id) }

// PlaybackErr returns the active item's last play rejection.
func (r *Runtime) PlaybackErr() error { return r.player.Err() }

// CacheStats returns the cache counters.
func (r *Runtime) CacheStats() media.Stats { return r.cache.Stats() }

// ScrollPending reports whether a debounced sample is still outstanding.
func (r *Runtime) ScrollPending() bool { return r.tracker.Pending() }
