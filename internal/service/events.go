package service

import (
	"sync"

	"refbot/internal/model"
)

const subscriberBuffer = 32

// EventHub fans ledger events out to live subscribers. A subscriber that
// falls behind loses events instead of blocking the ledger.
type EventHub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan model.LedgerEvent
}

func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[int]chan model.LedgerEvent)}
}

func (h *EventHub) Subscribe() (<-chan model.LedgerEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan model.LedgerEvent, subscriberBuffer)
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			close(ch)
			h.mu.Unlock()
		})
	}
}

func (h *EventHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *EventHub) Publish(event model.LedgerEvent) {
	if h == nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
