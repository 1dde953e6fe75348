package websocket

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/OldStager01/traffic-autoscaler/internal/logger"
)

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	mu     sync.RWMutex
	topics map[MessageType]bool
}

// IncomingMessage subscribes to or unsubscribes from message types.
// An empty topic list on subscribe means every type.
type IncomingMessage struct {
	Type   string        `json:"type"`
	Topics []MessageType `json:"topics,omitempty"`
}

func NewClient(hub *Hub, conn *websocket.Conn, topics []MessageType) *Client {
	c := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, hub.settings.ClientBuffer),
	}
	c.setTopics(topics)
	return c
}

func (c *Client) setTopics(topics []MessageType) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(topics) == 0 {
		c.topics = nil
		return
	}
	c.topics = make(map[MessageType]bool, len(topics))
	for _, t := range topics {
		c.topics[t] = true
	}
}

func (c *Client) removeTopics(topics []MessageType) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(topics) == 0 || c.topics == nil {
		c.topics = map[MessageType]bool{}
		return
	}
	for _, t := range topics {
		delete(c.topics, t)
	}
}

// wants reports whether the client is subscribed to topic. A nil topic set
// subscribes to everything.
func (c *Client) wants(topic MessageType) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.topics == nil || c.topics[topic] || topic == MessageTypeSubscription
}

func (c *Client) subscriptions() []MessageType {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.topics == nil {
		return nil
	}
	out := make([]MessageType, 0, len(c.topics))
	for t := range c.topics {
		out = append(out, t)
	}
	return out
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	settings := c.hub.settings
	c.conn.SetReadLimit(settings.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(settings.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(settings.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.WithComponent("websocket").Errorf("WebSocket error: %v", err)
			}
			break
		}

		var msg IncomingMessage
		if err := json.Unmarshal(message, &msg); err == nil {
			c.handleMessage(&msg)
		}
	}
}

func (c *Client) WritePump() {
	settings := c.hub.settings
	ticker := time.NewTicker(settings.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(settings.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to current websocket frame
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(settings.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg *IncomingMessage) {
	switch msg.Type {
	case "subscribe":
		c.setTopics(msg.Topics)
		c.sendConfirmation("subscribed")
	case "unsubscribe":
		c.removeTopics(msg.Topics)
		c.sendConfirmation("unsubscribed")
	}
}

func (c *Client) sendConfirmation(action string) {
	msg := NewMessage(MessageTypeSubscription, SubscriptionData{
		Action: action,
		Topics: c.subscriptions(),
	})
	select {
	case c.send <- msg.JSON():
	default:
		logger.WithComponent("websocket").Warn("Client send channel full, dropping confirmation")
	}
}

// parseTopics reads a comma separated topics query value.
func parseTopics(raw string) []MessageType {
	if raw == "" {
		return nil
	}
	var out []MessageType
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, MessageType(part))
		}
	}
	return out
}

func ServeWebSocket(hub *Hub) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  hub.settings.ReadBufferSize,
		WriteBufferSize: hub.settings.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	return func(c *gin.Context) {
		if hub.Full() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "too many websocket connections"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.WithComponent("websocket").Errorf("WebSocket upgrade failed: %v", err)
			return
		}

		client := NewClient(hub, conn, parseTopics(c.Query("topics")))
		hub.Register(client)

		go client.WritePump()
		go client.ReadPump()
	}
}
