// Package notify fans processing events out to currently connected
// listeners. Delivery is fire-and-forget, at most once per listener;
// there is no persistence or replay of missed events.
package notify

import (
	"sync"
	"time"

	"github.com/fairyhunter13/chat-order-service/internal/model"
	"github.com/fairyhunter13/chat-order-service/internal/obs"
)

// Envelope is one broadcast event.
type Envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// MessageProcessed is the payload emitted after each pipeline run.
type MessageProcessed struct {
	Channel         model.Channel    `json:"channel"`
	BusinessAccount string           `json:"businessAccount"`
	SenderRole      model.SenderRole `json:"senderRole"`
	From            string           `json:"from"`
	OrderCreated    bool             `json:"orderCreated"`
	ItemsDetected   int              `json:"itemsDetected"`
	ConfidenceScore float64          `json:"confidenceScore"`
	Timestamp       time.Time        `json:"timestamp"`
}

// Sink receives broadcast events. Implementations must never block the
// pipeline and must swallow their own delivery failures.
type Sink interface {
	Broadcast(event string, payload any)
}

// Hub is an explicitly owned subscriber registry. It is constructed at
// server start and injected into the pipeline; nothing global.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]chan Envelope
	nextID int
	buffer int
}

// NewHub creates a Hub whose subscriber channels buffer the given
// number of events.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{subs: make(map[int]chan Envelope), buffer: buffer}
}

// Subscribe registers a listener and returns its id and event channel.
// The channel is closed by Unsubscribe or by pruning.
func (h *Hub) Subscribe() (int, <-chan Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	ch := make(chan Envelope, h.buffer)
	h.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a listener. Safe to call for an already pruned id.
func (h *Hub) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Broadcast pushes an event to every current subscriber without
// blocking. A subscriber whose buffer is full is treated as gone and
// pruned lazily, at the moment the write would fail.
func (h *Hub) Broadcast(event string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		select {
		case ch <- Envelope{Event: event, Payload: payload}:
		default:
			delete(h.subs, id)
			close(ch)
			obs.Logger.Info("notify_subscriber_pruned", "subscriber_id", id)
		}
	}
}

// SubscriberCount returns the number of connected listeners.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Fanout broadcasts to several sinks in order.
type Fanout []Sink

func (f Fanout) Broadcast(event string, payload any) {
	for _, s := range f {
		s.Broadcast(event, payload)
	}
}
