package work

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abelbrown/reel/internal/logging"
)

// ErrPanic wraps a panic recovered from a job.
var ErrPanic = errors.New("work: job panicked")

// Pool runs jobs on a fixed number of workers.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	workers int

	queue     priorityQueue
	byID      map[string]*Item // pending and active
	active    map[string]*Item
	completed *RingBuffer

	onEvent func(Event)

	totalCreated   atomic.Int64
	totalCompleted atomic.Int64
	totalFailed    atomic.Int64
	totalCancelled atomic.Int64
	nextID         atomic.Int64
	seq            int64

	started  bool
	stopped  bool
	stopOnce sync.Once
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewPool creates a pool. workers <= 0 means runtime.NumCPU().
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	p := &Pool{
		workers:   workers,
		byID:      make(map[string]*Item),
		active:    make(map[string]*Item),
		completed: NewRingBuffer(100),
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// OnEvent registers a hook for job state changes. It runs on the
// goroutine that caused the change and must not block. Set it before Start.
func (p *Pool) OnEvent(fn func(Event)) {
	p.mu.Lock()
	p.onEvent = fn
	p.mu.Unlock()
}

// Start launches the workers. Calling it again is a no-op.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.mu.Unlock()

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	// Wake idle workers when the parent context ends.
	go func() {
		<-p.ctx.Done()
		p.mu.Lock()
		p.stopped = true
		p.cond.Broadcast()
		p.mu.Unlock()
	}()

	logging.Info("Work pool started", "workers", p.workers)
}

// Stop cancels running jobs, drops pending ones and waits for the workers.
// It is safe to call more than once.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		if p.cancel != nil {
			p.cancel()
		}
		var dropped []*Item
		for p.queue.Len() > 0 {
			item := heap.Pop(&p.queue).(*Item)
			p.finishLocked(item, StatusCancelled)
			dropped = append(dropped, item)
		}
		p.cond.Broadcast()
		p.mu.Unlock()

		for _, item := range dropped {
			p.notify(Event{Item: item, Change: ChangeCancelled})
		}
		p.wg.Wait()
		logging.Info("Work pool stopped",
			"created", p.totalCreated.Load(),
			"completed", p.totalCompleted.Load(),
			"failed", p.totalFailed.Load(),
			"cancelled", p.totalCancelled.Load())
	})
}

// Submit queues item and returns its ID. Jobs submitted after Stop are
// cancelled immediately.
func (p *Pool) Submit(item *Item) string {
	item.ID = fmt.Sprintf("w%d", p.nextID.Add(1))
	item.Status = StatusPending
	item.CreatedAt = time.Now()
	p.totalCreated.Add(1)

	p.mu.Lock()
	if p.stopped {
		p.finishLocked(item, StatusCancelled)
		p.mu.Unlock()
		p.notify(Event{Item: item, Change: ChangeCancelled})
		return item.ID
	}
	p.seq++
	item.seq = p.seq
	heap.Push(&p.queue, item)
	p.byID[item.ID] = item
	p.cond.Signal()
	p.mu.Unlock()

	p.notify(Event{Item: item, Change: ChangeCreated})
	return item.ID
}

// SubmitFunc queues fn with the given type, description and priority.
func (p *Pool) SubmitFunc(typ Type, desc string, prio Priority, fn Func) string {
	return p.Submit(&Item{Type: typ, Description: desc, Priority: prio, fn: fn})
}

// UpdatePriority changes the priority of a pending job. It reports false
// when the job is no longer pending.
func (p *Pool) UpdatePriority(id string, prio Priority) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.update(p.byID[id], prio)
}

// Cancel removes a pending job or cancels the context of a running one.
// It reports false for unknown or finished jobs.
func (p *Pool) Cancel(id string) bool {
	p.mu.Lock()
	item, ok := p.byID[id]
	if !ok {
		p.mu.Unlock()
		return false
	}
	if p.queue.remove(item) {
		p.finishLocked(item, StatusCancelled)
		p.mu.Unlock()
		p.notify(Event{Item: item, Change: ChangeCancelled})
		return true
	}
	item.Status = StatusCancelled
	cancel := item.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return true
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for p.queue.Len() == 0 && !p.stopped {
			p.cond.Wait()
		}
		if p.stopped {
			p.mu.Unlock()
			return
		}
		item := heap.Pop(&p.queue).(*Item)
		ctx, cancel := context.WithCancel(p.ctx)
		item.cancel = cancel
		item.Status = StatusActive
		item.StartedAt = time.Now()
		p.active[item.ID] = item
		p.mu.Unlock()

		p.notify(Event{Item: item, Change: ChangeStarted})
		result, err := p.run(ctx, item)
		cancel()
		p.complete(item, result, err)
	}
}

func (p *Pool) run(ctx context.Context, item *Item) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Work panicked", "id", item.ID, "panic", r)
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	if item.fn == nil {
		return "", errors.New("work: no function")
	}
	return item.fn(ctx)
}

func (p *Pool) complete(item *Item, result string, err error) {
	p.mu.Lock()
	item.Result = result
	item.Error = err
	status := StatusComplete
	switch {
	case item.Status == StatusCancelled:
		status = StatusCancelled
	case err != nil:
		status = StatusFailed
	}
	p.finishLocked(item, status)
	p.mu.Unlock()

	change := ChangeCompleted
	switch status {
	case StatusCancelled:
		change = ChangeCancelled
	case StatusFailed:
		change = ChangeFailed
	}
	p.notify(Event{Item: item, Change: change})
}

// finishLocked records a terminal status. p.mu must be held.
func (p *Pool) finishLocked(item *Item, status Status) {
	item.Status = status
	item.FinishedAt = time.Now()
	item.cancel = nil
	delete(p.byID, item.ID)
	delete(p.active, item.ID)
	switch status {
	case StatusComplete:
		p.totalCompleted.Add(1)
	case StatusFailed:
		p.totalFailed.Add(1)
	case StatusCancelled:
		p.totalCancelled.Add(1)
	}
	p.completed.Push(copyItem(item))
}

func (p *Pool) notify(event Event) {
	p.mu.Lock()
	fn := p.onEvent
	event.Item = copyItem(event.Item)
	p.mu.Unlock()
	logEvent(event)
	if fn != nil {
		fn(event)
	}
}

// Snapshot returns copies of the pool state.
func (p *Pool) Snapshot() Snapshot {
	p.mu.Lock()
	pending := make([]*Item, 0, p.queue.Len())
	for _, item := range p.queue {
		pending = append(pending, copyItem(item))
	}
	active := make([]*Item, 0, len(p.active))
	for _, item := range p.active {
		active = append(active, copyItem(item))
	}
	stats := p.statsLocked()
	p.mu.Unlock()

	return Snapshot{
		Pending:   pending,
		Active:    active,
		Completed: p.completed.All(),
		Stats:     stats,
	}
}

// Stats returns the current counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.statsLocked()
}

func (p *Pool) statsLocked() Stats {
	return Stats{
		TotalCreated:   p.totalCreated.Load(),
		TotalCompleted: p.totalCompleted.Load(),
		TotalFailed:    p.totalFailed.Load(),
		TotalCancelled: p.totalCancelled.Load(),
		WorkersActive:  len(p.active),
		WorkersTotal:   p.workers,
		PendingCount:   p.queue.Len(),
	}
}

// ClearHistory drops the finished job history.
func (p *Pool) ClearHistory() {
	p.completed.Clear()
}
