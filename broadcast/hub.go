package broadcast

import (
	"sync"

	"go.uber.org/zap"
)

// DefaultBufferSize is the per-subscriber event buffer used when none is
// configured
const DefaultBufferSize = 64

// Subscriber is one registered observer with its own bounded delivery channel
type Subscriber struct {
	ch  chan Event
	hub *Hub

	closeOnce sync.Once
}

// Events returns the channel events are delivered on. The channel is closed
// when the subscriber is unsubscribed.
func (s *Subscriber) Events() <-chan Event {
	return s.ch
}

// Close unregisters the subscriber from its hub
func (s *Subscriber) Close() {
	s.hub.Unsubscribe(s)
}

// Hub fans published events out to every registered subscriber without ever
// blocking the publisher
type Hub struct {
	mu      sync.Mutex
	subs    map[*Subscriber]struct{}
	bufSize int
	logger  *zap.Logger
}

// NewHub creates a hub with the given per-subscriber buffer size; sizes <= 0
// fall back to DefaultBufferSize
func NewHub(bufSize int, logger *zap.Logger) *Hub {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subs:    make(map[*Subscriber]struct{}),
		bufSize: bufSize,
		logger:  logger,
	}
}

// Subscribe registers a new observer and returns its subscriber handle
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{
		ch:  make(chan Event, h.bufSize),
		hub: h,
	}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscriber and closes its event channel. Safe to
// call more than once.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	_, ok := h.subs[sub]
	delete(h.subs, sub)
	h.mu.Unlock()
	if ok {
		sub.closeOnce.Do(func() { close(sub.ch) })
	}
}

// SubscriberCount returns the number of registered observers
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Publish delivers ev to every subscriber. It never blocks: if a
// subscriber's buffer is full, its oldest buffered event is dropped to make
// room, favoring timeliness over completeness.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs {
		select {
		case sub.ch <- ev:
		default:
			select {
			case dropped := <-sub.ch:
				h.logger.Debug("observer buffer full, dropped oldest event",
					zap.String("dropped_type", string(dropped.Type)))
			default:
			}
			select {
			case sub.ch <- ev:
			default:
				// Lost a race with the consumer draining; skip this event
			}
		}
	}
}

// Close unregisters every subscriber and closes their channels
func (h *Hub) Close() {
	h.mu.Lock()
	subs := make([]*Subscriber, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	h.subs = make(map[*Subscriber]struct{})
	h.mu.Unlock()

	for _, sub := range subs {
		sub.closeOnce.Do(func() { close(sub.ch) })
	}
}
