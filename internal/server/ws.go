package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/san-kum/springsim/internal/dynamo"
	"github.com/san-kum/springsim/internal/params"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Message is a client-to-server control message.
//
//	{"type":"set","field":"amplitude","value":0.3}
//	{"type":"reset"}
//	{"type":"restart"}
type Message struct {
	Type  string   `json:"type"`
	Field string   `json:"field,omitempty"`
	Value *float64 `json:"value,omitempty"`
}

type reply struct {
	Type    string          `json:"type"`
	Message string          `json:"message,omitempty"`
	Params  params.Snapshot `json:"params"`
}

type client struct {
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter
	once    sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub fans telemetry out to every connected websocket and applies their
// control messages to the parameter surface.
type Hub struct {
	srv     *Server
	mu      sync.RWMutex
	clients map[*client]struct{}
}

func newHub(s *Server) *Hub {
	return &Hub{srv: s, clients: make(map[*client]struct{})}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()
}

// Broadcast queues v for every client. Slow clients miss messages rather
// than stall the hub.
func (h *Hub) Broadcast(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.srv.logger.Error("marshal broadcast", "err", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.srv.logger.Debug("websocket send buffer full, dropping telemetry")
		}
	}
}

// run pushes telemetry at the configured rate until ctx ends.
func (h *Hub) run(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(float64(time.Second) / h.srv.cfg.TelemetryHz))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if h.Len() > 0 {
				h.Broadcast(h.srv.snapshot())
			}
		}
	}
}

func (h *Hub) serveWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.srv.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	cl := &client{
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		limiter: rate.NewLimiter(rate.Limit(h.srv.cfg.WriteRate), h.srv.cfg.WriteBurst),
	}
	if data, err := json.Marshal(h.srv.snapshot()); err == nil {
		cl.send <- data
	}
	h.register(cl)
	h.srv.logger.Info("websocket connected", "remote", conn.RemoteAddr().String())

	go h.writePump(cl)
	go h.readPump(cl)
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.srv.logger.Debug("websocket write", "err", err)
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

func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.srv.logger.Warn("websocket closed", "err", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			h.reply(c, reply{Type: "error", Message: "malformed message"})
			continue
		}
		if !c.limiter.Allow() {
			h.reply(c, reply{Type: "error", Message: "rate limited"})
			continue
		}
		h.handle(c, msg)
	}
}

func (h *Hub) handle(c *client, msg Message) {
	surface := h.srv.surface
	switch msg.Type {
	case "set":
		f, err := params.ParseField(msg.Field)
		if err != nil {
			h.reply(c, reply{Type: "error", Message: err.Error()})
			return
		}
		if msg.Value == nil {
			h.reply(c, reply{Type: "error", Message: "set needs a value"})
			return
		}
		if err := surface.Write(f, *msg.Value); err != nil {
			kind := "error"
			if errors.Is(err, dynamo.ErrInvalidParameter) {
				kind = "rejected"
			}
			h.reply(c, reply{Type: kind, Message: err.Error(), Params: surface.Read()})
			return
		}
		h.reply(c, reply{Type: "ack", Params: surface.Read()})
	case "reset":
		h.reply(c, reply{Type: "ack", Params: surface.Reset()})
	case "restart":
		h.reply(c, reply{Type: "ack", Params: surface.Restart()})
	default:
		h.reply(c, reply{Type: "error", Message: "unknown message type " + msg.Type})
	}
}

func (h *Hub) reply(c *client, r reply) {
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
