package events

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"klunkaz/pkg/registry"
)

// Subscriber is one connected event feed.
type Subscriber struct {
	ID     string
	BikeID registry.BikeID // 0 means every bike
	Conn   *websocket.Conn
	Send   chan registry.Event
	Done   chan struct{}
}

func (s *Subscriber) wants(e registry.Event) bool {
	return s.BikeID == 0 || s.BikeID == e.BikeID
}

// Hub fans committed registry events out to websocket subscribers. It
// implements registry.EventSink.
type Hub struct {
	mu      sync.RWMutex
	subs    map[string]*Subscriber
	dropped int64
	log     registry.Logger
}

func NewHub(log registry.Logger) *Hub {
	return &Hub{
		subs: make(map[string]*Subscriber),
		log:  log,
	}
}

func (h *Hub) AddSubscriber(conn *websocket.Conn, bikeID registry.BikeID) *Subscriber {
	s := &Subscriber{
		ID:     uuid.NewString(),
		BikeID: bikeID,
		Conn:   conn,
		Send:   make(chan registry.Event, 32),
		Done:   make(chan struct{}),
	}

	h.mu.Lock()
	h.subs[s.ID] = s
	h.mu.Unlock()
	return s
}

func (h *Hub) RemoveSubscriber(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s, ok := h.subs[id]; ok {
		close(s.Done)
		delete(h.subs, id)
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped reports how many deliveries were skipped because a subscriber
// was not keeping up.
func (h *Hub) Dropped() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

// Publish never blocks: a subscriber whose queue is full misses the event.
func (h *Hub) Publish(e registry.Event) {
	h.mu.RLock()
	var slow []string
	for _, s := range h.subs {
		if !s.wants(e) {
			continue
		}
		select {
		case s.Send <- e:
		case <-s.Done:
		default:
			slow = append(slow, s.ID)
		}
	}
	h.mu.RUnlock()

	if len(slow) > 0 {
		h.mu.Lock()
		h.dropped += int64(len(slow))
		h.mu.Unlock()
		h.log.Warnf("dropped %s event for %d slow subscribers", e.Type, len(slow))
	}
}

// CloseAll disconnects every subscriber.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, s := range h.subs {
		close(s.Done)
		if s.Conn != nil {
			s.Conn.Close()
		}
		delete(h.subs, id)
	}
}
