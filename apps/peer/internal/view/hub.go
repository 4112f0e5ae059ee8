package view

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"google.golang.org/protobuf/encoding/protojson"

	"pong-lite/apps/peer/internal/match"
	"pong-lite/pong"
)

const (
	defaultInterval = time.Second / 60
	sendBuffer      = 8
	readLimit       = 4096
	pongWait        = 60 * time.Second
	pingPeriod      = 30 * time.Second
	writeWait       = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // renderers connect from localhost
	},
}

// FrameSource is polled for the latest frame. *match.Match satisfies it.
type FrameSource interface {
	Frame() *match.Frame
}

// ControlSink receives held input from renderers. *match.Match satisfies it.
type ControlSink interface {
	SetControl(ctrl pong.Control) error
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// Hub streams frames to every connected renderer and forwards their input
// to the match.
type Hub struct {
	source   FrameSource
	controls ControlSink
	interval time.Duration

	mu      sync.RWMutex
	clients map[string]*client
	nextID  uint64
	closed  bool
}

func NewHub(source FrameSource, controls ControlSink, interval time.Duration) *Hub {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Hub{
		source:   source,
		controls: controls,
		interval: interval,
		clients:  make(map[string]*client),
	}
}

// Clients returns the number of connected renderers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", h.HandleWebSocket)
	mux.HandleFunc("/frame", h.HandleFrame)
}

// HandleFrame serves the current frame as JSON for debugging.
func (h *Hub) HandleFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	st, err := FrameToProto(h.source.Frame())
	if err != nil {
		http.Error(w, "no frame", http.StatusServiceUnavailable)
		return
	}
	raw, err := protojson.Marshal(st)
	if err != nil {
		http.Error(w, "encode frame failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// HandleWebSocket upgrades a renderer connection.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[View] Upgrade error: %v", err)
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.nextID++
	c := &client{
		id:   fmt.Sprintf("view_%d", h.nextID),
		conn: conn,
		send: make(chan []byte, sendBuffer),
		hub:  h,
	}
	h.clients[c.id] = c
	total := len(h.clients)
	// New renderers get the current frame right away.
	if data, err := EncodeFrame(h.source.Frame()); err == nil {
		c.send <- data
	}
	h.mu.Unlock()

	log.Printf("[View] Renderer connected: %s, total: %d", c.id, total)
	go c.readPump()
	go c.writePump()
}

// Run pushes a frame to all renderers every interval, skipping unchanged
// frames. On return every renderer connection has been closed.
func (h *Hub) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	defer h.closeAll()

	var lastSeq uint64
	for {
		select {
		case <-ticker.C:
			f := h.source.Frame()
			if f == nil || f.Seq == lastSeq {
				continue
			}
			lastSeq = f.Seq
			data, err := EncodeFrame(f)
			if err != nil {
				log.Printf("[View] Encode frame %d failed: %v", f.Seq, err)
				continue
			}
			h.broadcast(data)
		case <-ctx.Done():
			return nil
		}
	}
}

func (h *Hub) broadcast(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Slow renderer; it picks up the next frame.
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	close(c.send)
	log.Printf("[View] Renderer disconnected: %s, total: %d", c.id, len(h.clients))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.send)
	}
}

func (c *client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[View] Read error: %v", err)
			}
			return
		}
		if messageType != websocket.BinaryMessage || c.hub.controls == nil {
			continue
		}
		ctrl, err := DecodeControl(message)
		if err != nil {
			log.Printf("[View] %s: %v", c.id, err)
			continue
		}
		if err := c.hub.controls.SetControl(ctrl); err != nil {
			log.Printf("[View] %s: set control: %v", c.id, err)
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
			if err := c.conn.WriteMessage(websocket.BinaryMessage, message); err != nil {
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
