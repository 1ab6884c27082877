package kv

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Hub fans changes out to per-key subscribers. Publishing never blocks: each
// subscriber holds at most one pending change, and a newer change replaces
// it. Subscribers re-read the whole value, so only the latest one matters.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]chan Change
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int]chan Change)}
}

func (h *Hub) Subscribe(key string) (<-chan Change, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Change, 1)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.nextID
	h.nextID++
	if h.subs[key] == nil {
		h.subs[key] = make(map[int]chan Change)
	}
	h.subs[key][id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subs[key][id]; ok {
				delete(h.subs[key], id)
				if len(h.subs[key]) == 0 {
					delete(h.subs, key)
				}
				close(sub)
			}
		})
	}
	return ch, cancel
}

func (h *Hub) Publish(change Change) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs[change.Key] {
		select {
		case ch <- change:
		default:
			// Only Publish sends, under h.mu, so the slot is free after the drain.
			select {
			case <-ch:
				log.Debug().Str("key", change.Key).Msg("kv subscriber is behind, pending change replaced")
			default:
			}
			ch <- change
		}
	}
}

// HasSubscribers reports whether anyone listens on any key.
func (h *Hub) HasSubscribers() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs) > 0
}

func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for key, byID := range h.subs {
		for _, ch := range byID {
			close(ch)
		}
		delete(h.subs, key)
	}
}
