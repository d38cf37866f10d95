// Package hub fans chain lifecycle events out to connected push-stream
// clients. Delivery is best-effort: a subscriber that cannot keep up loses
// events rather than slowing the publisher down, and clients are expected to
// re-fetch authoritative state when they reconnect.
package hub

import (
	"context"
	"sync"
	"time"

	"stockpilot/internal/logger"
	"stockpilot/internal/metrics"
)

// Event type published on the keepalive tick. The stream handler renders it
// as an SSE comment, not a data event.
const EventKeepalive = "keepalive"

// Event is one broadcast message.
type Event struct {
	Type string         `json:"type"`
	Time time.Time      `json:"time"`
	Data map[string]any `json:"data,omitempty"`
}

// Subscriber is one registered event consumer.
type Subscriber struct {
	ID int64
	C  <-chan Event

	ch chan Event
}

// Hub is the broadcast registry.
type Hub struct {
	mu          sync.RWMutex
	logger      *logger.Logger
	buffer      int
	keepalive   time.Duration
	subscribers map[int64]*Subscriber
	nextID      int64
	closed      bool

	cancel context.CancelFunc
}

// New creates a new Hub. buffer is the per-subscriber channel capacity and
// keepalive the interval between keepalive events.
func New(buffer int, keepalive time.Duration, log *logger.Logger) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		logger:      log,
		buffer:      buffer,
		keepalive:   keepalive,
		subscribers: make(map[int64]*Subscriber),
	}
}

// Start launches the keepalive loop. A zero keepalive interval disables it.
func (h *Hub) Start(ctx context.Context) {
	if h.keepalive <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	h.mu.Lock()
	h.cancel = cancel
	h.mu.Unlock()

	go func() {
		ticker := time.NewTicker(h.keepalive)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.Publish(Event{Type: EventKeepalive, Time: time.Now()})
			}
		}
	}()
}

// Subscribe registers a new consumer. The returned subscriber must be given
// back via Unsubscribe when the consumer goes away.
func (h *Hub) Subscribe() *Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		ch := make(chan Event)
		close(ch)
		return &Subscriber{C: ch, ch: ch}
	}

	h.nextID++
	ch := make(chan Event, h.buffer)
	sub := &Subscriber{ID: h.nextID, C: ch, ch: ch}
	h.subscribers[sub.ID] = sub
	metrics.SetSubscribers(len(h.subscribers))

	h.logger.Debug("subscriber added",
		logger.Field{Key: "subscriber_id", Value: sub.ID},
		logger.Field{Key: "subscribers", Value: len(h.subscribers)})
	return sub
}

// Unsubscribe removes a consumer and closes its channel.
func (h *Hub) Unsubscribe(id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.subscribers[id]
	if !ok {
		return
	}
	delete(h.subscribers, id)
	close(sub.ch)
	metrics.SetSubscribers(len(h.subscribers))

	h.logger.Debug("subscriber removed",
		logger.Field{Key: "subscriber_id", Value: id},
		logger.Field{Key: "subscribers", Value: len(h.subscribers)})
}

// Publish sends the event to every subscriber without blocking. A subscriber
// whose buffer is full loses this event.
func (h *Hub) Publish(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}
	if e.Type != EventKeepalive {
		metrics.ObservePublish(e.Type)
	}

	for id, sub := range h.subscribers {
		select {
		case sub.ch <- e:
		default:
			metrics.ObserveDrop()
			h.logger.Warn("subscriber buffer full, dropping event",
				logger.Field{Key: "subscriber_id", Value: id},
				logger.Field{Key: "event", Value: e.Type})
		}
	}
}

// SubscriberCount returns the number of registered subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close stops the keepalive loop and closes every subscriber channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	if h.cancel != nil {
		h.cancel()
	}
	for id, sub := range h.subscribers {
		close(sub.ch)
		delete(h.subscribers, id)
	}
	metrics.SetSubscribers(0)

	h.logger.Info("event hub closed")
}
