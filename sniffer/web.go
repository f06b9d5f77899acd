package sniffer

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jdginn/xtouch-gw/logging"
	"github.com/jdginn/xtouch-gw/midi"
)

var log = logging.Get(logging.APP)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// frameEvent is the JSON shape broadcast to every connected browser.
type frameEvent struct {
	PortID    string `json:"port"`
	Status    string `json:"status"`
	Channel   uint8  `json:"channel"`
	Data1     uint8  `json:"data1"`
	Value     uint16 `json:"value"`
	OffsetSec float64 `json:"offsetSec"`
}

// WebHub fans frames out to every connected diagnostics browser over
// WebSocket. One process runs one Hub; each client gets its own send
// buffer so a slow reader can't stall the others.
type WebHub struct {
	mu      sync.RWMutex
	clients map[chan frameEvent]struct{}
	start   time.Time
	armed   bool
}

// NewWebHub constructs an empty hub.
func NewWebHub() *WebHub {
	return &WebHub{clients: make(map[chan frameEvent]struct{})}
}

// Observe is the frame hook the MIDI transport calls for every frame.
func (h *WebHub) Observe(portID string, frame midi.Message, now time.Time) {
	h.mu.Lock()
	if !h.armed {
		h.start = now
		h.armed = true
	}
	offset := now.Sub(h.start).Seconds()
	h.mu.Unlock()

	ev := frameEvent{
		PortID:    portID,
		Status:    statusName(frame.Status),
		Channel:   frame.Channel,
		Data1:     frame.Data1,
		Value:     frame.Value,
		OffsetSec: offset,
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c <- ev:
		default:
		}
	}
}

// ServeHTTP upgrades the request to a WebSocket and streams frameEvents
// until the client disconnects.
func (h *WebHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("web sniffer upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	client := make(chan frameEvent, 64)
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.clients, client)
		h.mu.Unlock()
	}()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	for {
		var ev frameEvent
		select {
		case <-closed:
			return
		case ev = <-client:
		}
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

// Server wraps an http.Server exposing the hub at /ws, the shape
// implied by spec.md's "--web-sniffer --web-port <n>" flag pair.
type Server struct {
	hub  *WebHub
	http *http.Server
}

// NewServer constructs a web sniffer server listening on addr (e.g.
// ":8080"), serving the frame stream at /ws.
func NewServer(addr string) *Server {
	hub := NewWebHub()
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	return &Server{hub: hub, http: &http.Server{Addr: addr, Handler: mux}}
}

// Hub returns the underlying hub so the transport can register it as a
// frame observer.
func (s *Server) Hub() *WebHub { return s.hub }

// ListenAndServe blocks serving the web sniffer until the server is
// shut down or fails.
func (s *Server) ListenAndServe() error {
	return s.http.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown() error {
	return s.http.Close()
}
