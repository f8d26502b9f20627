package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/abelbrown/reel/internal/otel"
)

// debugPanelChrome is DebugPanel's border plus vertical padding, in lines.
const debugPanelChrome = 4

// debugOverlay renders runtime counters and recent events. extra lines are
// shown under the counters. Returns empty string if ring is nil.
func debugOverlay(ring *otel.RingBuffer, extra []string, width, height int) string {
	if ring == nil {
		return ""
	}

	stats := ring.Stats()
	recent := ring.Last(20)

	var lines []string
	lines = append(lines, DebugHeaderStyle.Render("Runtime Stats"))
	lines = append(lines, fmt.Sprintf("  Window:     %d applied", stats[otel.KindWindowApply]))
	lines = append(lines, fmt.Sprintf("  Cache:      %d materialized, %d torn down, %d failed, %d stale",
		stats[otel.KindCacheMaterialize], stats[otel.KindCacheTeardown],
		stats[otel.KindCacheFailed], stats[otel.KindCacheStale]))
	lines = append(lines, fmt.Sprintf("  Playback:   %d transitions, %d rejected, %d nudges",
		stats[otel.KindPlayState], stats[otel.KindPlayRejected], stats[otel.KindPlayNudge]))
	lines = append(lines, fmt.Sprintf("  Resolve:    %d ok, %d errors",
		stats[otel.KindResolveOK], stats[otel.KindResolveError]))
	lines = append(lines, fmt.Sprintf("  Imports:    %d complete, %d store errors",
		stats[otel.KindImportComplete], stats[otel.KindStoreError]))
	lines = append(lines, fmt.Sprintf("  Buffer:     %d / %d events", ring.Len(), ring.Cap()))
	for _, l := range extra {
		lines = append(lines, "  "+l)
	}
	lines = append(lines, "")

	lines = append(lines, DebugHeaderStyle.Render("Recent Events"))
	now := time.Now()
	for i := len(recent) - 1; i >= 0; i-- {
		e := recent[i]
		line := fmt.Sprintf("  %6s  %-18s", formatAge(now.Sub(e.Time)), string(e.Kind))
		if e.ItemID != "" {
			line += "  #" + truncateRunes(e.ItemID, 12)
		}
		if e.State != "" {
			line += "  " + e.State
		}
		if e.Msg != "" {
			line += "  " + truncateRunes(e.Msg, 30)
		}
		if e.Err != "" {
			line += "  ERR:" + truncateRunes(e.Err, 30)
		}
		lines = append(lines, line)
	}

	if room := max(1, height-debugPanelChrome); len(lines) > room {
		lines = lines[:room]
	}
	panelWidth := max(20, min(84, width-4))
	return DebugPanel.Width(panelWidth).Render(strings.Join(lines, "\n"))
}

// formatAge renders an event age like "250ms", "1.5s" or "3m". Negative
// ages read as zero.
func formatAge(d time.Duration) string {
	switch {
	case d < 0:
		return "0ms"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
}

// truncateRunes cuts s to at most w terminal cells, adding an ellipsis.
func truncateRunes(s string, w int) string {
	return runewidth.Truncate(s, w, "…")
}
