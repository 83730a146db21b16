// Package netsink streams the real-time analyzer display and mix-bus
// audio to network clients, grounded on the teacher's websocket
// broadcast idiom (spectrum.go's subscriber-set fan-out, websocket.go's
// non-blocking per-connection writer goroutine).
package netsink

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 65536,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// AnalyzerFrame is one display-ready spectrum column set, broadcast to
// every subscribed monitoring client.
type AnalyzerFrame struct {
	TimestampMs int64     `json:"timestamp_ms"`
	PixelWidth  int       `json:"pixel_width"`
	Columns     []float64 `json:"columns"`
}

// Hub fans out analyzer frames to any number of websocket subscribers.
// Each connection gets a small buffered write channel so one slow
// client can never block the broadcast to the others.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan []byte]struct{}
}

// NewHub builds an empty broadcast hub.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[chan []byte]struct{})}
}

// Broadcast marshals frame to JSON and queues it on every subscriber's
// write channel, dropping it for subscribers whose channel is full.
func (h *Hub) Broadcast(frame AnalyzerFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		log.Printf("netsink: marshaling analyzer frame: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subscribers {
		select {
		case ch <- data:
		default:
			// slow subscriber, drop this frame rather than block the hub
		}
	}
}

// ServeHTTP upgrades the request to a websocket and streams analyzer
// frames to it until the client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("netsink: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	ch := make(chan []byte, 8)
	h.subscribe(ch)
	defer h.unsubscribe(ch)

	// Drain and discard anything the client sends; we only push.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for data := range ch {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

func (h *Hub) subscribe(ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[ch] = struct{}{}
}

func (h *Hub) unsubscribe(ch chan []byte) {
	h.mu.Lock()
	delete(h.subscribers, ch)
	h.mu.Unlock()
	close(ch)
}

// SubscriberCount reports the number of currently connected clients.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
