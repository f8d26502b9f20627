package work

import "sync"

// RingBuffer keeps the most recent finished jobs.
type RingBuffer struct {
	mu    sync.Mutex
	items []*Item
	head  int
	count int
}

// NewRingBuffer creates a buffer holding at most size items.
func NewRingBuffer(size int) *RingBuffer {
	if size < 1 {
		size = 1
	}
	return &RingBuffer{items: make([]*Item, size)}
}

// Push adds an item, overwriting the oldest when full.
func (r *RingBuffer) Push(item *Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[r.head] = item
	r.head = (r.head + 1) % len(r.items)
	if r.count < len(r.items) {
		r.count++
	}
}

// All returns copies of the buffered items, newest first.
func (r *RingBuffer) All() []*Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Item, 0, r.count)
	for i := 1; i <= r.count; i++ {
		idx := (r.head - i + len(r.items)) % len(r.items)
		out = append(out, copyItem(r.items[idx]))
	}
	return out
}

// Len returns the number of buffered items.
func (r *RingBuffer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Clear drops all items.
func (r *RingBuffer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.items)
	r.head, r.count = 0, 0
}
