package notifyhub

import (
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/moyoez/scandrop/tool"
	"github.com/moyoez/scandrop/types"
)

var (
	WriteTimeout = 5 * time.Second
	// QueueSize bounds notifications waiting for the writer; overflow is dropped.
	QueueSize = 256
)

// client serializes writes; gorilla connections allow one concurrent writer.
type client struct {
	mu sync.Mutex
}

// Hub holds WebSocket connections and broadcasts notifications to all clients.
// Broadcasts are queued and written by one goroutine, so a slow client never
// blocks the caller.
type Hub struct {
	mu        sync.RWMutex
	conns     map[*websocket.Conn]*client
	queue     chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a notify hub and starts its writer. Call Close to stop it.
func New() *Hub {
	h := &Hub{
		conns: make(map[*websocket.Conn]*client),
		queue: make(chan []byte, QueueSize),
		done:  make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case payload := <-h.queue:
			h.Send(payload)
		case <-h.done:
			return
		}
	}
}

// Close stops the writer; queued notifications are discarded.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Register adds a WebSocket connection to the hub.
func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = &client{}
}

// Unregister removes a WebSocket connection from the hub.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Broadcast queues the notification as JSON for all registered connections.
// It never blocks. Implements notify.Hub.
func (h *Hub) Broadcast(notification *types.Notification) {
	if notification == nil {
		return
	}
	payload, err := sonic.Marshal(notification)
	if err != nil {
		tool.DefaultLogger.Errorf("[NotifyHub] failed to marshal notification: %v", err)
		return
	}
	select {
	case <-h.done:
	case h.queue <- payload:
	default:
		tool.DefaultLogger.Warnf("[NotifyHub] queue full, dropping %s notification", notification.Type)
	}
}

// SendTo writes a raw payload to one registered client.
func (h *Hub) SendTo(conn *websocket.Conn, payload []byte) error {
	h.mu.RLock()
	c, ok := h.conns[conn]
	h.mu.RUnlock()
	if !ok {
		return websocket.ErrCloseSent
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

func (h *Hub) ping(conn *websocket.Conn) error {
	h.mu.RLock()
	c, ok := h.conns[conn]
	h.mu.RUnlock()
	if !ok {
		return websocket.ErrCloseSent
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(WriteTimeout))
}

// Send writes a raw payload to every client.
func (h *Hub) Send(payload []byte) {
	h.mu.RLock()
	targets := make(map[*websocket.Conn]*client, len(h.conns))
	for conn, c := range h.conns {
		targets[conn] = c
	}
	h.mu.RUnlock()

	for conn, c := range targets {
		c.mu.Lock()
		_ = conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
		err := conn.WriteMessage(websocket.TextMessage, payload)
		c.mu.Unlock()
		if err != nil {
			tool.DefaultLogger.Debugf("[NotifyHub] dropping client: %v", err)
			h.Unregister(conn)
			_ = conn.Close()
		}
	}
}
