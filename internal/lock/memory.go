package lock

import (
	"context"
	"sync"
)

// Memory is an in-process Locker.
//
// Thread-safety: Memory is safe for concurrent use.
type Memory struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewMemory creates an in-process locker.
func NewMemory() *Memory {
	return &Memory{slots: make(map[string]chan struct{})}
}

func (m *Memory) slot(projectID string) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.slots[projectID]
	if !ok {
		ch = make(chan struct{}, 1)
		m.slots[projectID] = ch
	}
	return ch
}

// Lock implements Locker.
func (m *Memory) Lock(ctx context.Context, projectID string) (func(), error) {
	ch := m.slot(projectID)
	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-ch })
	}, nil
}
