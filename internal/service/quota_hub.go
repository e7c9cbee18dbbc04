package service

import (
	"sync"

	"meowchi_miniapp/internal/model"
)

const subscriberBuffer = 8

// QuotaHub fans quota changes out to websocket subscribers in this process.
// Slow subscribers miss updates rather than block a claim.
type QuotaHub struct {
	mu   sync.Mutex
	next int
	subs map[int]chan model.QuotaUpdate
}

func NewQuotaHub() *QuotaHub {
	return &QuotaHub{
		subs: make(map[int]chan model.QuotaUpdate),
	}
}

func (h *QuotaHub) Subscribe() (<-chan model.QuotaUpdate, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	ch := make(chan model.QuotaUpdate, subscriberBuffer)
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
}

func (h *QuotaHub) Publish(update model.QuotaUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs {
		select {
		case ch <- update:
		default:
		}
	}
}

func (h *QuotaHub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
