package session

import (
	"context"
	"sync"
)

// MemorySlots keeps slots in process memory.
type MemorySlots struct {
	mu    sync.Mutex
	slots map[string]string
}

func NewMemorySlots() *MemorySlots {
	return &MemorySlots{slots: make(map[string]string)}
}

func (m *MemorySlots) Load(_ context.Context, keys ...string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := m.slots[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *MemorySlots) Save(_ context.Context, slots map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range slots {
		m.slots[k] = v
	}
	return nil
}

func (m *MemorySlots) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.slots, k)
	}
	return nil
}
