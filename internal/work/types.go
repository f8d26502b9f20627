// Package work runs background jobs on a fixed set of workers, highest
// priority first. Media resolution, buffering and feed imports all flow
// through one pool so the debug overlay can show what is in flight.
package work

import (
	"context"
	"fmt"
	"time"

	"github.com/abelbrown/reel/internal/logging"
)

func logEvent(event Event) {
	item := event.Item
	switch event.Change {
	case ChangeStarted:
		logging.Debug("Work started", "id", item.ID, "type", item.Type, "desc", item.Description)
	case ChangeCompleted:
		logging.Debug("Work completed",
			"id", item.ID,
			"type", item.Type,
			"result", item.Result,
			"duration", item.Duration())
	case ChangeFailed:
		logging.Warn("Work failed",
			"id", item.ID,
			"type", item.Type,
			"desc", item.Description,
			"error", item.Error,
			"duration", item.Duration())
	case ChangeCancelled:
		logging.Debug("Work cancelled", "id", item.ID, "type", item.Type)
	}
}

// Type categorizes jobs for display.
type Type string

const (
	TypeResolve Type = "resolve" // media URL resolution
	TypeBuffer  Type = "buffer"  // simulated buffering
	TypeImport  Type = "import"  // feed import
	TypeCheck   Type = "check"   // reelctl check
	TypeOther   Type = "other"
)

// Icon returns a display glyph for the type.
func (t Type) Icon() string {
	switch t {
	case TypeResolve:
		return "→"
	case TypeBuffer:
		return "◌"
	case TypeImport:
		return "↓"
	case TypeCheck:
		return "✓"
	default:
		return "○"
	}
}

// Priority orders pending jobs. Higher runs first.
type Priority int

const (
	PriorityLow      Priority = -1
	PriorityNormal   Priority = 0
	PriorityHigh     Priority = 1
	PriorityCritical Priority = 2
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusComplete  Status = "complete"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Func is the body of a job. ctx is cancelled by Cancel or Stop.
type Func func(ctx context.Context) (string, error)

// Item is one unit of work.
type Item struct {
	ID          string
	Type        Type
	Status      Status
	Description string
	Source      string // item id or feed url
	Priority    Priority

	CreatedAt  time.Time
	StartedAt  time.Time
	FinishedAt time.Time

	Result string
	Error  error

	fn        Func
	seq       int64
	heapIndex int
	cancel    context.CancelFunc
}

// Duration returns how long the job ran, or has been running.
func (i *Item) Duration() time.Duration {
	if i.StartedAt.IsZero() {
		return 0
	}
	if i.FinishedAt.IsZero() {
		return time.Since(i.StartedAt)
	}
	return i.FinishedAt.Sub(i.StartedAt)
}

// StatusIcon returns a display glyph for the current status.
func (i *Item) StatusIcon() string {
	switch i.Status {
	case StatusPending:
		return "○"
	case StatusActive:
		return "●"
	case StatusComplete:
		return "✓"
	case StatusFailed:
		return "✗"
	case StatusCancelled:
		return "–"
	default:
		return "?"
	}
}

// copyItem returns a detached copy safe to hand to callers.
func copyItem(i *Item) *Item {
	c := *i
	c.fn = nil
	c.cancel = nil
	c.heapIndex = -1
	return &c
}

// Change names a state change in an Event.
type Change string

const (
	ChangeCreated   Change = "created"
	ChangeStarted   Change = "started"
	ChangeCompleted Change = "completed"
	ChangeFailed    Change = "failed"
	ChangeCancelled Change = "cancelled"
)

// Event is delivered to the OnEvent hook.
type Event struct {
	Item   *Item
	Change Change
}

// Snapshot is the current state of the pool.
type Snapshot struct {
	Pending   []*Item
	Active    []*Item
	Completed []*Item // newest first
	Stats     Stats
}

// Stats tracks pool counters.
type Stats struct {
	TotalCreated   int64
	TotalCompleted int64
	TotalFailed    int64
	TotalCancelled int64
	WorkersActive  int
	WorkersTotal   int
	PendingCount   int
}

func (s Stats) String() string {
	return fmt.Sprintf("Active: %d  Pending: %d  Done: %d  Failed: %d",
		s.WorkersActive, s.PendingCount, s.TotalCompleted, s.TotalFailed)
}
