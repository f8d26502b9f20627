// Package media owns live media resource handles for feed items.
//
// The Cache is the single owner of every Handle. It creates handles when an
// item enters the load window and releases them when it leaves, so memory is
// bounded by the window size rather than the feed length.
package media

import (
	"errors"
	"time"

	"github.com/abelbrown/reel/internal/feed"
)

// ErrUnavailable marks a resource that could not be resolved or loaded.
var ErrUnavailable = errors.New("media: resource unavailable")

// Priority is the preload aggressiveness requested for an entry.
type Priority int

const (
	// Adjacent asks for metadata or a preview image only.
	Adjacent Priority = iota
	// Active asks for full buffering toward playback.
	Active
)

func (p Priority) String() string {
	if p == Active {
		return "active"
	}
	return "adjacent"
}

// ReadyState is how much of a resource is available locally.
type ReadyState int

const (
	HaveNothing ReadyState = iota
	HaveMetadata
	HaveCurrentData
	HaveFutureData // enough to start without stalling momentarily
	HaveEnoughData
)

func (r ReadyState) String() string {
	switch r {
	case HaveMetadata:
		return "metadata"
	case HaveCurrentData:
		return "current"
	case HaveFutureData:
		return "future"
	case HaveEnoughData:
		return "enough"
	default:
		return "nothing"
	}
}

// PlayableState is the readiness required before play is issued.
const PlayableState = HaveFutureData

// Target is the readiness at which an entry of priority p counts as Ready.
func Target(p Priority) ReadyState {
	if p == Active {
		return HaveFutureData
	}
	return HaveMetadata
}

// Handle is the capability the runtime needs from a concrete media element.
// Load is an idempotent hint and may be called again with a new priority.
// Release detaches the source and frees buffers; the handle is dead after.
type Handle interface {
	Load(p Priority)
	Play() error
	Pause()
	SeekToStart()
	Release()
	ReadyState() ReadyState
	Remaining() time.Duration
}

// SignalKind distinguishes handle notifications.
type SignalKind int

const (
	SignalProgress SignalKind = iota
	SignalFailed
)

// Signal is an async notification from a handle. Gen identifies the entry
// incarnation that opened the handle.
type Signal struct {
	ItemID    string
	Gen       uint64
	Kind      SignalKind
	Ready     ReadyState
	Remaining time.Duration
	Err       error
}

// Factory opens handles. notify must only be invoked on the event loop; it
// may be called from inside Open.
type Factory interface {
	Open(item feed.Item, gen uint64, notify func(Signal)) (Handle, error)
}
