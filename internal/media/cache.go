package media

import (
	"errors"
	"fmt"
	"sort"

	"github.com/abelbrown/reel/internal/feed"
	"github.com/abelbrown/reel/internal/otel"
)

// State is the lifecycle state of a cache entry.
type State int

const (
	Unloaded State = iota
	Loading
	Ready
	Playing
	Evicted
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Playing:
		return "playing"
	case Evicted:
		return "evicted"
	default:
		return "unloaded"
	}
}

// Entry tracks one item's resources. Failed entries stay Unloaded until
// they are torn down.
type Entry struct {
	ItemID   string
	Item     feed.Item
	State    State
	Priority Priority
	Ready    ReadyState
	Failed   bool
	Err      error
	Gen      uint64
	Handle   Handle
}

// Stats counts cache operations since creation.
type Stats struct {
	Materialized  int
	Reprioritized int
	TornDown      int
	Failed        int
	Stale         int
}

// Cache maps item ids to entries. Not goroutine-safe: it lives on the
// event loop along with everything that calls it.
type Cache struct {
	factory  Factory
	log      *otel.Logger
	entries  map[string]*Entry
	gen      uint64
	stats    Stats
	onSignal func(*Entry, Signal)
}

// NewCache creates an empty cache. log may be nil.
func NewCache(f Factory, log *otel.Logger) *Cache {
	return &Cache{
		factory: f,
		log:     log,
		entries: make(map[string]*Entry),
	}
}

// OnSignal registers fn to see every accepted signal after the entry has
// been updated.
func (c *Cache) OnSignal(fn func(*Entry, Signal)) {
	c.onSignal = fn
}

// Materialize creates an entry for item or reuses the existing one.
// Existing Ready or Playing entries only change priority; a Loading entry
// is re-hinted when the priority changes. Failed entries are left alone.
func (c *Cache) Materialize(item feed.Item, p Priority) *Entry {
	if e, ok := c.entries[item.ID]; ok {
		c.reprioritize(e, p)
		return e
	}

	c.gen++
	e := &Entry{ItemID: item.ID, Item: item, State: Loading, Priority: p, Gen: c.gen}
	c.entries[item.ID] = e
	c.stats.Materialized++

	// Signals sent from inside Open are held until the handle is set.
	gen := e.Gen
	opening := true
	var early []Signal
	h, err := c.factory.Open(item, gen, func(sig Signal) {
		sig.ItemID, sig.Gen = item.ID, gen
		if opening {
			early = append(early, sig)
			return
		}
		c.Apply(sig)
	})
	opening = false
	if err != nil {
		c.fail(e, err)
		return e
	}
	e.Handle = h
	c.log.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindCacheMaterialize, Comp: "cache",
		ItemID: item.ID, State: p.String()})
	for _, sig := range early {
		c.Apply(sig)
	}
	if e.Handle != nil {
		h.Load(p)
	}
	return e
}

func (c *Cache) reprioritize(e *Entry, p Priority) {
	if e.Priority == p {
		return
	}
	e.Priority = p
	c.stats.Reprioritized++
	if e.Failed || e.Handle == nil {
		return
	}
	e.Handle.Load(p)
	if e.State == Loading && e.Ready >= Target(p) {
		e.State = Ready
	}
}

func (c *Cache) fail(e *Entry, err error) {
	if e.Handle != nil {
		e.Handle.Release()
		e.Handle = nil
	}
	e.State = Unloaded
	e.Failed = true
	e.Err = fmt.Errorf("%w: %s: %v", ErrUnavailable, e.ItemID, err)
	c.stats.Failed++
	c.log.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindCacheFailed, Comp: "cache",
		ItemID: e.ItemID, Err: err.Error()})
}

// Teardown releases the entry's handle and removes it. Reports whether an
// entry existed.
func (c *Cache) Teardown(id string) bool {
	e, ok := c.entries[id]
	if !ok {
		return false
	}
	e.State = Evicted
	if e.Handle != nil {
		e.Handle.Release()
		e.Handle = nil
	}
	delete(c.entries, id)
	c.stats.TornDown++
	c.log.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindCacheTeardown, Comp: "cache", ItemID: id})
	return true
}

// Clear tears down every entry.
func (c *Cache) Clear() {
	for _, id := range c.IDs() {
		c.Teardown(id)
	}
}

// Apply feeds a handle signal into the matching entry. Signals for entries
// that no longer exist, or for an older incarnation, are discarded and
// Apply returns false.
func (c *Cache) Apply(sig Signal) bool {
	e, ok := c.entries[sig.ItemID]
	if !ok || e.Gen != sig.Gen || e.Failed {
		c.stats.Stale++
		c.log.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindCacheStale, Comp: "cache", ItemID: sig.ItemID})
		return false
	}

	switch sig.Kind {
	case SignalFailed:
		err := sig.Err
		if err == nil {
			err = errors.New("load failed")
		}
		c.fail(e, err)
	default:
		if sig.Ready > e.Ready {
			e.Ready = sig.Ready
		}
		if e.State == Loading && e.Ready >= Target(e.Priority) {
			e.State = Ready
		}
	}

	if c.onSignal != nil {
		c.onSignal(e, sig)
	}
	return true
}

// SetPlaying moves a live entry between Ready and Playing. Only the
// playback controller calls this.
func (c *Cache) SetPlaying(id string, playing bool) {
	e, ok := c.entries[id]
	if !ok || e.Failed {
		return
	}
	switch {
	case playing:
		e.State = Playing
	case e.State == Playing:
		e.State = Ready
	}
}

// Get returns the entry for id. Callers must not modify it.
func (c *Cache) Get(id string) (*Entry, bool) {
	e, ok := c.entries[id]
	return e, ok
}

// StateOf returns the entry state, or Unloaded when untracked.
func (c *Cache) StateOf(id string) State {
	if e, ok := c.entries[id]; ok {
		return e.State
	}
	return Unloaded
}

// Has reports whether id is tracked.
func (c *Cache) Has(id string) bool {
	_, ok := c.entries[id]
	return ok
}

// IDs returns tracked ids in sorted order.
func (c *Cache) IDs() []string {
	ids := make([]string, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of live entries.
func (c *Cache) Len() int { return len(c.entries) }

// Stats returns operation counters.
func (c *Cache) Stats() Stats { return c.stats }
