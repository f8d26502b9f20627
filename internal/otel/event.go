// Package otel records structured runtime events for reel.
//
// Events are flat structs written as JSONL. The Logger writes asynchronously
// through a buffered channel drained by one goroutine, and can mirror every
// event into a RingBuffer for the in-app debug overlay.
package otel

import (
	"encoding/json"
	"time"
)

// Level is event severity.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Rank orders levels for filtering. Unknown levels rank as info.
func (l Level) Rank() int {
	switch l {
	case LevelDebug:
		return 0
	case LevelWarn:
		return 2
	case LevelError:
		return 3
	default:
		return 1
	}
}

// EventKind is "<subsystem>.<action>".
type EventKind string

const (
	// Feed runtime
	KindScrollSample EventKind = "scroll.sample"
	KindWindowApply  EventKind = "window.apply"

	// Resource cache
	KindCacheMaterialize EventKind = "cache.materialize"
	KindCacheTeardown    EventKind = "cache.teardown"
	KindCacheFailed      EventKind = "cache.failed"
	KindCacheStale       EventKind = "cache.stale"

	// Playback
	KindPlayState    EventKind = "play.state"
	KindPlayRejected EventKind = "play.rejected"
	KindPlayNudge    EventKind = "play.nudge"

	// Media resolution
	KindResolveOK    EventKind = "resolve.ok"
	KindResolveError EventKind = "resolve.error"

	// Store and import
	KindStoreError     EventKind = "store.error"
	KindImportComplete EventKind = "import.complete"
	KindFeedLoaded     EventKind = "feed.loaded"

	// Redirect service
	KindRedirectServe EventKind = "redirect.serve"

	// Preview extraction
	KindPreviewExtract EventKind = "preview.extract"

	// System
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
	KindError    EventKind = "sys.error"
)

// Event is one observability record. Only Kind is required.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"` // "cache", "playback", "window", "ui", "main"
	SessionID string         `json:"session_id,omitempty"`
	ItemID    string         `json:"item,omitempty"`
	Index     *int           `json:"idx,omitempty"` // pointer so index 0 survives omitempty
	State     string         `json:"state,omitempty"`
	Dur       time.Duration  `json:"-"`
	DurMs     float64        `json:"dur_ms,omitempty"`
	Count     int            `json:"count,omitempty"`
	Source    string         `json:"source,omitempty"`
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// Idx is a helper for setting Event.Index inline.
func Idx(i int) *int { return &i }

// MarshalJSON converts Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type alias Event
	a := alias(e)
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}
