package viewport

import (
	"math"
	"testing"
)

func TestTargetIndexBoundary(t *testing.T) {
	tests := []struct {
		name   string
		offset float64
		n      int
		want   int
	}{
		{"top", 0, 8, 0},
		{"699 keeps current", 699, 8, 0},
		{"700 surrenders", 700, 8, 1},
		{"second item 1699", 1699, 8, 1},
		{"second item 1700", 1700, 8, 2},
		{"exactly on item", 3000, 8, 3},
		{"past end clamps", 50000, 8, 7},
		{"last item surrender clamps", 7800, 8, 7},
		{"single item", 900, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := TargetIndex(Sample{ScrollOffset: tt.offset, ViewportHeight: 1000}, tt.n, DefaultSurrenderPct)
			if !ok {
				t.Fatal("expected an active item")
			}
			if got != tt.want {
				t.Errorf("TargetIndex(%v) = %d, want %d", tt.offset, got, tt.want)
			}
		})
	}
}

func TestTargetIndexBoundaryEveryItem(t *testing.T) {
	for k := 0; k < 50; k++ {
		base := float64(k) * 1000
		if got, _ := TargetIndex(Sample{base + 699, 1000}, 100, DefaultSurrenderPct); got != k {
			t.Errorf("k=%d offset +699: got %d", k, got)
		}
		if got, _ := TargetIndex(Sample{base + 700, 1000}, 100, DefaultSurrenderPct); got != k+1 {
			t.Errorf("k=%d offset +700: got %d", k, got)
		}
	}
}

func TestTargetIndexNoActive(t *testing.T) {
	if _, ok := TargetIndex(Sample{0, 1000}, 0, DefaultSurrenderPct); ok {
		t.Error("empty feed should have no active item")
	}
	if _, ok := TargetIndex(Sample{100, 0}, 5, DefaultSurrenderPct); ok {
		t.Error("zero height should have no active item")
	}
}

func TestTargetIndexRangeAndStep(t *testing.T) {
	const n = 20
	const h = 837.0
	prev := 0
	for off := 0.0; off < h*(n+3); off += 37 {
		got, ok := TargetIndex(Sample{off, h}, n, DefaultSurrenderPct)
		if !ok || got < 0 || got > n-1 {
			t.Fatalf("offset %v: index %d out of range", off, got)
		}
		// A 37px step is far less than one item, so the index moves by at most one.
		if d := got - prev; d < 0 || d > 1 {
			t.Fatalf("offset %v: jumped from %d to %d", off, prev, got)
		}
		limit := int(math.Floor(off/h)) + 1
		if got > limit {
			t.Fatalf("offset %v: index %d beyond visible item %d", off, got, limit)
		}
		prev = got
	}
}

func TestResolverReportsChanges(t *testing.T) {
	r := NewResolver(0)
	if r.Active() != -1 {
		t.Fatalf("new resolver active = %d", r.Active())
	}
	steps := []struct {
		offset  float64
		n       int
		want    int
		changed bool
	}{
		{0, 5, 0, true},
		{300, 5, 0, false},
		{700, 5, 1, true},
		{1100, 5, 1, false},
		{1100, 0, -1, true},
		{1100, 0, -1, false},
		{1100, 5, 1, true},
	}
	for i, s := range steps {
		got, changed := r.Resolve(Sample{s.offset, 1000}, s.n)
		if got != s.want || changed != s.changed {
			t.Errorf("step %d: Resolve = (%d, %v), want (%d, %v)", i, got, changed, s.want, s.changed)
		}
	}
}

func TestResolverCustomThreshold(t *testing.T) {
	r := NewResolver(50)
	if got, _ := r.Resolve(Sample{499, 1000}, 3); got != 0 {
		t.Errorf("499 at 50%%: got %d", got)
	}
	if got, _ := r.Resolve(Sample{500, 1000}, 3); got != 1 {
		t.Errorf("500 at 50%%: got %d", got)
	}
}

func TestNormalize(t *testing.T) {
	got := normalize(Sample{ScrollOffset: -5, ViewportHeight: math.NaN()})
	if got.ScrollOffset != 0 || got.ViewportHeight != 0 {
		t.Errorf("normalize = %+v", got)
	}
}
