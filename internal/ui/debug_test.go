package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/abelbrown/reel/internal/otel"
)

func TestDebugOverlayNilRing(t *testing.T) {
	if got := debugOverlay(nil, nil, 80, 24); got != "" {
		t.Errorf("debugOverlay(nil) should return empty string, got %q", got)
	}
}

func TestDebugOverlayRendersStats(t *testing.T) {
	ring := otel.NewRingBuffer(64)
	now := time.Now()
	ring.Push(otel.Event{Kind: otel.KindCacheMaterialize, Time: now})
	ring.Push(otel.Event{Kind: otel.KindCacheMaterialize, Time: now})
	ring.Push(otel.Event{Kind: otel.KindCacheTeardown, Time: now})
	ring.Push(otel.Event{Kind: otel.KindPlayRejected, Time: now})
	ring.Push(otel.Event{Kind: otel.KindResolveOK, Time: now})

	result := debugOverlay(ring, []string{"Work: Active: 1"}, 100, 40)

	for _, want := range []string{
		"Runtime Stats",
		"2 materialized, 1 torn down",
		"1 rejected",
		"1 ok, 0 errors",
		"5 / 64 events",
		"Work: Active: 1",
	} {
		if !strings.Contains(result, want) {
			t.Errorf("overlay missing %q, got:\n%s", want, result)
		}
	}
}

func TestDebugOverlayRecentEvents(t *testing.T) {
	ring := otel.NewRingBuffer(64)
	ring.Push(otel.Event{Kind: otel.KindPlayState, Time: time.Now(), ItemID: "10", State: "playing"})
	ring.Push(otel.Event{Kind: otel.KindCacheFailed, Time: time.Now(), Err: "timeout"})

	result := debugOverlay(ring, nil, 100, 40)
	if !strings.Contains(result, "Recent Events") {
		t.Error("overlay should contain 'Recent Events' header")
	}
	if !strings.Contains(result, "#10") || !strings.Contains(result, "playing") {
		t.Errorf("overlay should show item and state, got:\n%s", result)
	}
	if !strings.Contains(result, "ERR:timeout") {
		t.Errorf("overlay should show error, got:\n%s", result)
	}
	// Newest first.
	if strings.Index(result, "cache.failed") > strings.Index(result, "play.state") {
		t.Error("recent events should be newest first")
	}
}

func TestDebugOverlayFitsHeight(t *testing.T) {
	ring := otel.NewRingBuffer(64)
	for i := 0; i < 30; i++ {
		ring.Push(otel.Event{Kind: otel.KindScrollSample, Time: time.Now()})
	}
	result := debugOverlay(ring, nil, 80, 12)
	if got := strings.Count(result, "\n") + 1; got > 12 {
		t.Errorf("overlay is %d lines, want <= 12", got)
	}
}

func TestFormatAge(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{-time.Second, "0ms"},
		{150 * time.Millisecond, "150ms"},
		{2500 * time.Millisecond, "2.5s"},
		{3 * time.Minute, "3m"},
	}
	for _, tt := range tests {
		if got := formatAge(tt.in); got != tt.want {
			t.Errorf("formatAge(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
