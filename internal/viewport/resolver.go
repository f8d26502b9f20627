package viewport

import "math"

// DefaultSurrenderPct is how far, in percent of the viewport, the active
// item must be scrolled out of view before the next one takes over.
const DefaultSurrenderPct = 70.0

// TargetIndex maps a sample onto a feed of n items, each one viewport tall.
// ok is false when there is no active item (empty feed or zero height).
func TargetIndex(s Sample, n int, surrenderPct float64) (idx int, ok bool) {
	s = normalize(s)
	if n <= 0 || s.ViewportHeight <= 0 {
		return -1, false
	}
	h := s.ViewportHeight
	current := int(math.Floor(s.ScrollOffset / h))
	visiblePx := float64(current+1)*h - s.ScrollOffset
	// Multiply first so round pixel offsets land on exact percentages.
	currentPct := visiblePx * 100 / h
	nextPct := 100 - currentPct

	target := current
	if nextPct >= surrenderPct {
		target = current + 1
	}
	if target < 0 {
		target = 0
	}
	if target > n-1 {
		target = n - 1
	}
	return target, true
}

// Resolver remembers the current active index and reports changes.
type Resolver struct {
	surrenderPct float64
	active       int
}

// NewResolver creates a resolver with no active item. A pct outside (0,100]
// uses DefaultSurrenderPct.
func NewResolver(surrenderPct float64) *Resolver {
	if surrenderPct <= 0 || surrenderPct > 100 {
		surrenderPct = DefaultSurrenderPct
	}
	return &Resolver{surrenderPct: surrenderPct, active: -1}
}

// Resolve computes the target for s. changed is false when the target equals
// the current active index. With n == 0 the resolver drops to no active item.
func (r *Resolver) Resolve(s Sample, n int) (idx int, changed bool) {
	target, ok := TargetIndex(s, n, r.surrenderPct)
	if !ok {
		if n <= 0 && r.active != -1 {
			r.active = -1
			return -1, true
		}
		return r.active, false
	}
	if target == r.active {
		return target, false
	}
	r.active = target
	return target, true
}

// Active returns the current active index, or -1.
func (r *Resolver) Active() int { return r.active }

// Reset forgets the active index.
func (r *Resolver) Reset() { r.active = -1 }
