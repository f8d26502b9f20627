package feed

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store. Used for the built-in catalog and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	items []Item
	byID  map[string]int
}

// NewMemoryStore builds a store over a copy of items.
func NewMemoryStore(items []Item) (*MemoryStore, error) {
	if err := Validate(items); err != nil {
		return nil, err
	}
	m := &MemoryStore{}
	m.replace(items)
	return m, nil
}

func (m *MemoryStore) replace(items []Item) {
	cp := make([]Item, len(items))
	copy(cp, items)
	idx := make(map[string]int, len(cp))
	for i, it := range cp {
		idx[it.ID] = i
	}
	m.items = cp
	m.byID = idx
}

// Replace swaps the whole feed. Existing slices returned by List are unaffected.
func (m *MemoryStore) Replace(items []Item) error {
	if err := Validate(items); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replace(items)
	return nil
}

// List returns the items in feed order.
func (m *MemoryStore) List(ctx context.Context) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Item, len(m.items))
	copy(out, m.items)
	return out, nil
}

// Get returns the item with id, or nil when absent.
func (m *MemoryStore) Get(ctx context.Context, id string) (*Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	it := m.items[i]
	return &it, nil
}
