package kv

import (
	"context"
	"sync"
)

// MemoryStore keeps values in process memory. Every handle sharing the
// store sees the others' writes through Subscribe.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	hub    *Hub
	closed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
		hub:  NewHub(),
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, false, ErrClosed
	}

	value, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	stored := append([]byte(nil), value...)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.data[key] = stored
	m.mu.Unlock()

	m.hub.Publish(Change{Key: key, Value: append([]byte(nil), stored...), Present: true})
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	_, existed := m.data[key]
	delete(m.data, key)
	m.mu.Unlock()

	if existed {
		m.hub.Publish(Change{Key: key})
	}
	return nil
}

func (m *MemoryStore) Subscribe(key string) (<-chan Change, func()) {
	return m.hub.Subscribe(key)
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.hub.Close()
	return nil
}
