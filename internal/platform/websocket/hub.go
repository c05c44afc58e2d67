// Package websocket pushes server events to the dashboard. Each connection
// is subscribed to its session topic and its user topic; the inactivity
// countdown, new messages and appointment reminders arrive that way.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Event is one message pushed to subscribers of Topic.
type Event struct {
	Type      string          `json:"type"`
	Topic     string          `json:"topic"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewEvent marshals data into an event for topic.
func NewEvent(topic, eventType string, data interface{}) (Event, error) {
	ev := Event{Type: eventType, Topic: topic, Timestamp: time.Now().UTC()}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return Event{}, fmt.Errorf("encode %s event: %w", eventType, err)
		}
		ev.Data = raw
	}
	return ev, nil
}

func SessionTopic(sessionID string) string { return "session/" + sessionID }
func UserTopic(userID string) string       { return "user/" + userID }

// Publisher is what services depend on to emit events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Client is one websocket connection. Topics is fixed at connect time.
type Client struct {
	ID        string
	UserID    string
	SessionID string
	Topics    []string
	Send      chan []byte
}

// Hub tracks clients by topic.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // topic -> clients
	all     map[*Client]struct{}
	logger  zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		all:     make(map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.all[client] = struct{}{}
	for _, topic := range client.Topics {
		if h.clients[topic] == nil {
			h.clients[topic] = make(map[*Client]struct{})
		}
		h.clients[topic][client] = struct{}{}
	}
}

// Unregister removes client and closes its Send channel. Calling it twice
// is a no-op.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[client]; !ok {
		return
	}
	for _, topic := range client.Topics {
		if subscribers, ok := h.clients[topic]; ok {
			delete(subscribers, client)
			if len(subscribers) == 0 {
				delete(h.clients, topic)
			}
		}
	}
	delete(h.all, client)
	close(client.Send)
}

// Broadcast sends event to every client on topic. Clients whose buffer is
// full miss the event rather than stall the sender.
func (h *Hub) Broadcast(topic string, event Event) int {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("topic", topic).Msg("websocket: marshal event")
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for client := range h.clients[topic] {
		select {
		case client.Send <- data:
			sent++
		default:
			h.logger.Warn().Str("client", client.ID).Str("topic", topic).Msg("websocket: client buffer full, event dropped")
		}
	}
	return sent
}

func (h *Hub) Publish(_ context.Context, event Event) error {
	h.Broadcast(event.Topic, event)
	return nil
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

func (h *Hub) TopicCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}

// Recorder collects published events in memory. Tests use it in place of a
// hub.
type Recorder struct {
	mu     sync.Mutex
	Events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, event)
	return nil
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Events))
	for i, ev := range r.Events {
		out[i] = ev.Type
	}
	return out
}
