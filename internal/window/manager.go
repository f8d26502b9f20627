package window

import (
	"github.com/abelbrown/reel/internal/feed"
	"github.com/abelbrown/reel/internal/media"
	"github.com/abelbrown/reel/internal/otel"
)

// Cache is the part of media.Cache the manager drives.
type Cache interface {
	Materialize(item feed.Item, p media.Priority) *media.Entry
	Teardown(id string) bool
	Get(id string) (*media.Entry, bool)
	IDs() []string
}

// Ops counts the cache calls one Apply issued.
type Ops struct {
	Materialized int
	TornDown     int
}

// Zero reports whether Apply touched the cache at all.
func (o Ops) Zero() bool { return o.Materialized == 0 && o.TornDown == 0 }

// Manager applies window plans to a cache.
type Manager struct {
	cfg     Config
	cache   Cache
	log     *otel.Logger
	onEvict func(id string)
}

// NewManager validates cfg and returns a manager over cache. log may be nil.
func NewManager(cfg Config, cache Cache, log *otel.Logger) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Manager{cfg: cfg, cache: cache, log: log}, nil
}

// Config returns the manager's window sizes.
func (m *Manager) Config() Config { return m.cfg }

// OnEvict registers fn to run just before an entry is torn down.
func (m *Manager) OnEvict(fn func(id string)) { m.onEvict = fn }

// Apply computes the plan for active and brings the cache in line with it.
// The plan is fully computed before the first cache call. Entries that
// already exist with the right priority are left untouched, so applying
// the same active index twice issues no calls the second time.
func (m *Manager) Apply(active int, items []feed.Item) (Plan, Ops) {
	plan := Compute(m.cfg, active, items, m.cache.IDs())
	var ops Ops

	for _, id := range plan.Orphans {
		m.teardown(id, &ops)
	}
	for _, i := range plan.Evict {
		m.teardown(items[i].ID, &ops)
	}
	for _, i := range plan.Load {
		want := media.Adjacent
		if i == plan.Active {
			want = media.Active
		}
		if e, ok := m.cache.Get(items[i].ID); ok && e.Priority == want {
			continue
		}
		m.cache.Materialize(items[i], want)
		ops.Materialized++
	}

	if !ops.Zero() {
		m.log.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindWindowApply, Comp: "window",
			Index: otel.Idx(plan.Active), Count: len(plan.Load),
			Extra: map[string]any{"materialized": ops.Materialized, "torn_down": ops.TornDown}})
	}
	return plan, ops
}

func (m *Manager) teardown(id string, ops *Ops) {
	if m.onEvict != nil {
		m.onEvict(id)
	}
	if m.cache.Teardown(id) {
		ops.TornDown++
	}
}
