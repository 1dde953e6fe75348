package websocket

import (
	"sync"

	"github.com/OldStager01/traffic-autoscaler/internal/logger"
	"github.com/OldStager01/traffic-autoscaler/pkg/config"
)

type broadcastMessage struct {
	topic MessageType
	data  []byte
}

type Hub struct {
	clients    map[*Client]bool
	broadcast  chan broadcastMessage
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
	settings   *WebSocketSettings
	onCount    func(int)
}

func NewHub(cfg *config.WebSocketConfig) *Hub {
	settings := NewWebSocketSettings(cfg)

	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan broadcastMessage, settings.BroadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		settings:   settings,
	}
}

// OnClientCount registers a callback invoked with the client count after
// every connect and disconnect. Call before Run.
func (h *Hub) OnClientCount(fn func(int)) {
	h.onCount = fn
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.notifyCount()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			logger.WithComponent("websocket").Infof("Client connected (total: %d)", h.ClientCount())
			h.notifyCount()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			logger.WithComponent("websocket").Infof("Client disconnected (total: %d)", h.ClientCount())
			h.notifyCount()

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// deliver drops clients whose send buffer is full.
func (h *Hub) deliver(msg broadcastMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	dropped := false
	for client := range h.clients {
		if !client.wants(msg.topic) {
			continue
		}
		select {
		case client.send <- msg.data:
		default:
			delete(h.clients, client)
			close(client.send)
			dropped = true
		}
	}
	if dropped {
		go h.notifyCount()
	}
}

func (h *Hub) notifyCount() {
	if h.onCount != nil {
		h.onCount(h.ClientCount())
	}
}

// Stop disconnects every client and ends Run.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Broadcast queues data for every client subscribed to topic.
func (h *Hub) Broadcast(topic MessageType, data []byte) {
	select {
	case h.broadcast <- broadcastMessage{topic: topic, data: data}:
	default:
		logger.WithComponent("websocket").Warn("Broadcast channel full, dropping message")
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Full reports whether the connection limit is reached.
func (h *Hub) Full() bool {
	return h.settings.MaxConnections > 0 && h.ClientCount() >= h.settings.MaxConnections
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
