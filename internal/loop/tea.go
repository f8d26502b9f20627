package loop

import (
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Sender is the subset of *tea.Program the scheduler needs.
type Sender interface {
	Send(msg tea.Msg)
}

// TeaScheduler delivers callbacks as Call messages to a bubbletea program.
// A single pump goroutine forwards queued callbacks in order, so Post never
// blocks even when called from inside Update.
type TeaScheduler struct {
	mu     sync.Mutex
	queue  []func()
	sender Sender
	wake   chan struct{}
	done   chan struct{}
	once   sync.Once
}

// NewTeaScheduler creates a scheduler. Nothing is delivered until Attach.
func NewTeaScheduler() *TeaScheduler {
	return &TeaScheduler{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Attach binds the program and starts the pump. Call once, before p.Run.
func (s *TeaScheduler) Attach(p Sender) {
	s.mu.Lock()
	s.sender = p
	s.mu.Unlock()
	go s.pump()
	s.signal()
}

func (s *TeaScheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *TeaScheduler) pump() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			batch := s.queue
			s.queue = nil
			sender := s.sender
			s.mu.Unlock()

			for _, fn := range batch {
				select {
				case <-s.done:
					return
				default:
				}
				sender.Send(Call{fn: fn})
			}
		}
	}
}

// Post queues fn for the loop.
func (s *TeaScheduler) Post(fn func()) {
	s.mu.Lock()
	s.queue = append(s.queue, fn)
	attached := s.sender != nil
	s.mu.Unlock()
	if attached {
		s.signal()
	}
}

// After fires fn on the loop after d unless cancelled first. The cancelled
// flag is checked again on the loop, so a timer that already fired but whose
// Call is still queued is also suppressed.
func (s *TeaScheduler) After(d time.Duration, fn func()) func() {
	var cancelled atomic.Bool
	t := time.AfterFunc(d, func() {
		if cancelled.Load() {
			return
		}
		s.Post(func() {
			if !cancelled.Load() {
				fn()
			}
		})
	})
	return func() {
		cancelled.Store(true)
		t.Stop()
	}
}

// Close stops the pump. Queued callbacks are dropped.
func (s *TeaScheduler) Close() {
	s.once.Do(func() { close(s.done) })
}
