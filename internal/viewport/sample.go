// Package viewport turns raw scroll events into stable samples and samples
// into an active feed index.
package viewport

import "math"

// Sample is a stable scroll position. Both fields are non-negative.
type Sample struct {
	ScrollOffset   float64
	ViewportHeight float64
}

// normalize clamps negative and non-finite values to zero.
func normalize(s Sample) Sample {
	clean := func(v float64) float64 {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return 0
		}
		return v
	}
	return Sample{ScrollOffset: clean(s.ScrollOffset), ViewportHeight: clean(s.ViewportHeight)}
}
