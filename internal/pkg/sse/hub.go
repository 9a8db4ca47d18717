package sse

import (
	"context"
	"sync"

	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/events"
)

const subscriberBuffer = 16

// Hub fans committed domain events out to supervisor screens, keyed by shop.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan events.Event]struct{}
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan events.Event]struct{}),
	}
}

// Subscribe registers a subscriber for shopID and returns its channel and a cleanup func.
func (h *Hub) Subscribe(shopID string) (<-chan events.Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan events.Event, subscriberBuffer)
	if h.subscribers[shopID] == nil {
		h.subscribers[shopID] = make(map[chan events.Event]struct{})
	}
	h.subscribers[shopID][ch] = struct{}{}

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subscribers[shopID], ch)
			close(ch)
			if len(h.subscribers[shopID]) == 0 {
				delete(h.subscribers, shopID)
			}
		})
	}
	return ch, cleanup
}

// Publish delivers event to every subscriber of event.ShopID. Slow subscribers
// drop events rather than block the engine that emitted them.
func (h *Hub) Publish(ctx context.Context, event events.Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[event.ShopID] {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (h *Hub) SubscriberCount(shopID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[shopID])
}

func (h *Hub) TotalSubscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, subs := range h.subscribers {
		total += len(subs)
	}
	return total
}

var _ events.Publisher = (*Hub)(nil)
