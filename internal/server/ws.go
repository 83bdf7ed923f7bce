package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/fingerpaint/internal/app"
)

// eventInterval is how often the latest event is pushed, about 15 Hz.
const eventInterval = 66 * time.Millisecond

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// EventSource provides the outcome of the latest frame.
type EventSource interface {
	LastEvent() app.Event
}

// EventsHandler broadcasts frame events to WebSocket clients.
type EventsHandler struct {
	source  EventSource
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
	stopCh  chan struct{}
	once    sync.Once
}

// NewEventsHandler creates a new EventsHandler and starts broadcasting.
func NewEventsHandler(source EventSource) *EventsHandler {
	h := &EventsHandler{
		source:  source,
		clients: make(map[*websocket.Conn]bool),
		stopCh:  make(chan struct{}),
	}
	go h.broadcast()
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Clients returns the number of connected clients.
func (h *EventsHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops broadcasting and disconnects every client.
func (h *EventsHandler) Close() {
	h.once.Do(func() { close(h.stopCh) })

	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.clients {
		conn.Close()
	}
}

// broadcast sends each new event to all connected clients.
func (h *EventsHandler) broadcast() {
	ticker := time.NewTicker(eventInterval)
	defer ticker.Stop()

	var last time.Time
	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
		}

		if h.Clients() == 0 {
			continue
		}

		ev := h.source.LastEvent()
		if ev.Timestamp.IsZero() || ev.Timestamp.Equal(last) {
			continue
		}
		last = ev.Timestamp

		msg, err := json.Marshal(ev)
		if err != nil {
			log.Printf("Error encoding event: %v", err)
			continue
		}

		h.mu.RLock()
		for conn := range h.clients {
			conn.WriteMessage(websocket.TextMessage, msg)
		}
		h.mu.RUnlock()
	}
}
