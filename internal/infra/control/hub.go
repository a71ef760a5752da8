package control

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"speak-translate/internal/application"
	"speak-translate/internal/domain"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 512

	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub pushes the controller's visible fields to every connected socket.
// Each client receives the full snapshot on connect and after every change.
type Hub struct {
	logger *slog.Logger

	register   chan *client
	unregister chan *client
	changed    chan struct{}
	done       chan struct{}

	mu       sync.RWMutex
	clients  map[string]*client
	snapshot domain.Snapshot
}

type client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

var _ application.Display = (*Hub)(nil)

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:     logger,
		register:   make(chan *client),
		unregister: make(chan *client),
		changed:    make(chan struct{}, 1),
		done:       make(chan struct{}),
		clients:    make(map[string]*client),
		snapshot:   domain.Snapshot{State: domain.StateIdle.String()},
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, c := range h.clients {
				delete(h.clients, id)
				close(c.send)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.id] = c
			snap := h.snapshot
			h.mu.Unlock()
			h.logger.Debug("display client registered", "client_id", c.id)
			h.deliver(c, snap)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c.id]; ok {
				delete(h.clients, c.id)
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.Debug("display client unregistered", "client_id", c.id)

		case <-h.changed:
			h.mu.RLock()
			snap := h.snapshot
			clients := make([]*client, 0, len(h.clients))
			for _, c := range h.clients {
				clients = append(clients, c)
			}
			h.mu.RUnlock()
			for _, c := range clients {
				h.deliver(c, snap)
			}
		}
	}
}

// deliver never blocks. A client that is not keeping up loses its oldest
// queued snapshot; every message is a full snapshot so the newest wins.
func (h *Hub) deliver(c *client, snap domain.Snapshot) {
	payload, err := json.Marshal(snap)
	if err != nil {
		h.logger.Error("encoding snapshot", "error", err)
		return
	}
	for {
		select {
		case c.send <- payload:
			return
		default:
		}
		select {
		case <-c.send:
			h.logger.Debug("display client behind, replacing queued snapshot", "client_id", c.id)
		default:
		}
	}
}

func (h *Hub) Snapshot() domain.Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snapshot
}

func (h *Hub) SetState(state domain.State) {
	h.update(func(s *domain.Snapshot) { s.State = state.String() })
}

func (h *Hub) SetSourceText(text string) {
	h.update(func(s *domain.Snapshot) { s.SourceText = text })
}

func (h *Hub) SetTranslatedText(text string) {
	h.update(func(s *domain.Snapshot) { s.TranslatedText = text })
}

func (h *Hub) update(apply func(*domain.Snapshot)) {
	h.mu.Lock()
	apply(&h.snapshot)
	h.mu.Unlock()

	// Run reads the latest snapshot, so a pending signal covers this change.
	select {
	case h.changed <- struct{}{}:
	default:
	}
}

// ServeWS upgrades the request and registers the socket with the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump only services control frames; displays never send data.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read error", "client_id", c.id, "error", err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.logger.Debug("websocket write failed", "client_id", c.id, "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
