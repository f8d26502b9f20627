// Package window decides which feed indices keep live media resources.
package window

import (
	"errors"
	"fmt"
	"sort"

	"github.com/abelbrown/reel/internal/feed"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("window: invalid config")

// Config sizes the load window and the eviction radius around the active
// index. Forward scrolling dominates, so LookAhead is never smaller than
// LookBehind.
type Config struct {
	LookAhead      int `json:"look_ahead"`
	LookBehind     int `json:"look_behind"`
	EvictionRadius int `json:"eviction_radius"`
}

// DefaultConfig returns {LookAhead: 2, LookBehind: 1, EvictionRadius: 3}.
func DefaultConfig() Config {
	return Config{LookAhead: 2, LookBehind: 1, EvictionRadius: 3}
}

// Validate enforces LookAhead >= LookBehind >= 0 and an eviction radius that
// covers the load window, which keeps load and evict sets disjoint.
func (c Config) Validate() error {
	switch {
	case c.LookBehind < 0 || c.LookAhead < 0:
		return fmt.Errorf("%w: negative window size", ErrInvalidConfig)
	case c.LookAhead < c.LookBehind:
		return fmt.Errorf("%w: look_ahead %d < look_behind %d", ErrInvalidConfig, c.LookAhead, c.LookBehind)
	case c.EvictionRadius < max(c.LookAhead, c.LookBehind):
		return fmt.Errorf("%w: eviction_radius %d smaller than window", ErrInvalidConfig, c.EvictionRadius)
	}
	return nil
}

// MaxLive is the most entries that can survive a recomputation.
func (c Config) MaxLive() int {
	return 2*c.EvictionRadius + 1
}

// Plan is the outcome of one window computation.
type Plan struct {
	Active  int
	Load    []int    // ascending, always contains Active
	Evict   []int    // ascending indices of tracked items beyond the radius
	Orphans []string // tracked ids no longer in the feed
}

// InLoad reports whether i is in the load set.
func (p Plan) InLoad(i int) bool {
	if len(p.Load) == 0 {
		return false
	}
	return i >= p.Load[0] && i <= p.Load[len(p.Load)-1]
}

// Compute derives the load and evict sets for active over items, given the
// ids that currently have cache entries. An out-of-range active or empty
// feed yields an empty plan apart from orphans.
func Compute(cfg Config, active int, items []feed.Item, tracked []string) Plan {
	n := len(items)
	plan := Plan{Active: active}

	if active >= 0 && active < n {
		lo := max(active-cfg.LookBehind, 0)
		hi := min(active+cfg.LookAhead, n-1)
		for i := lo; i <= hi; i++ {
			plan.Load = append(plan.Load, i)
		}
	} else {
		plan.Active = -1
	}

	for _, id := range tracked {
		i := locate(items, id, max(plan.Active, 0))
		if i < 0 {
			plan.Orphans = append(plan.Orphans, id)
			continue
		}
		if plan.Active >= 0 && abs(i-active) > cfg.EvictionRadius {
			plan.Evict = append(plan.Evict, i)
		}
	}
	sort.Ints(plan.Evict)
	sort.Strings(plan.Orphans)
	return plan
}

// locate finds id by searching outward from around. Tracked entries sit
// close to the active index, so this rarely walks far.
func locate(items []feed.Item, id string, around int) int {
	n := len(items)
	for d := 0; d < n; d++ {
		if i := around + d; i < n && items[i].ID == id {
			return i
		}
		if i := around - d; d > 0 && i >= 0 && items[i].ID == id {
			return i
		}
		if around+d >= n && around-d < 0 {
			break
		}
	}
	return -1
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
