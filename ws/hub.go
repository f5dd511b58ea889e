// Package ws is the WebSocket broadcast path: a hub fanning core events
// out to subscriber channels, plus a thin wrapper over the underlying
// websocket connection.
package ws

import (
	"sync"
)

// Hub manages in-process subscribers for websocket clients. Callers
// register a buffered channel to receive broadcast frames; a slow client
// drops frames rather than blocking the hub.
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]chan Message
	register   chan registration
	unregister chan string
	broadcast  chan Message
	shutdown   chan struct{}
}

type registration struct {
	id string
	ch chan Message
}

// NewHub creates and starts a new Hub.
func NewHub() *Hub {
	h := &Hub{
		clients:    make(map[string]chan Message),
		register:   make(chan registration),
		unregister: make(chan string),
		broadcast:  make(chan Message, 100),
		shutdown:   make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case reg := <-h.register:
			h.mu.Lock()
			h.clients[reg.id] = reg.ch
			h.mu.Unlock()
		case id := <-h.unregister:
			h.mu.Lock()
			if ch, ok := h.clients[id]; ok {
				close(ch)
				delete(h.clients, id)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.RLock()
			for _, ch := range h.clients {
				select {
				case ch <- msg:
				default:
					// client buffer full, drop rather than block the hub
				}
			}
			h.mu.RUnlock()
		case <-h.shutdown:
			h.mu.Lock()
			for id, ch := range h.clients {
				close(ch)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Register registers a client channel under an id. The channel should be
// buffered (10 is plenty for the UI cadence).
func (h *Hub) Register(id string, ch chan Message) {
	h.register <- registration{id: id, ch: ch}
}

// Unregister removes the client with the given id and closes its channel.
func (h *Hub) Unregister(id string) {
	h.unregister <- id
}

// Broadcast sends a frame to all registered clients.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		// broadcast queue full, drop
	}
}

// ClientCount returns the number of registered subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop shuts down the hub and closes all client channels.
func (h *Hub) Stop() {
	close(h.shutdown)
}
