package preview

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/msalah0e/canopy/internal/parallel"
)

const writeWait = 5 * time.Second

// Hub accepts renderer connections and fans messages out to all of them.
// It is the Sink of the authoring Session.
type Hub struct {
	origin   string
	limit    int
	upgrader websocket.Upgrader
	onMsg    func(Inbound)

	mu    sync.Mutex
	conns map[*peer]struct{}
	seq   int
}

type peer struct {
	id     int
	origin string
	ws     *websocket.Conn
	wmu    sync.Mutex
}

func (p *peer) write(data []byte) error {
	p.wmu.Lock()
	defer p.wmu.Unlock()
	_ = p.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return p.ws.WriteMessage(websocket.TextMessage, data)
}

// NewHub creates a hub accepting renderers from origin. An empty origin
// accepts any origin.
func NewHub(origin string) *Hub {
	h := &Hub{
		origin: origin,
		limit:  8,
		conns:  make(map[*peer]struct{}),
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

// OnMessage registers the handler for renderer messages.
func (h *Hub) OnMessage(fn func(Inbound)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onMsg = fn
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if h.origin == "" {
		return true
	}
	return Origin(r.Header.Get("Origin")) == h.origin
}

// ServeHTTP upgrades a renderer connection and reads from it until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("preview: upgrade from %q: %v", r.Header.Get("Origin"), err)
		return
	}

	h.mu.Lock()
	h.seq++
	p := &peer{id: h.seq, origin: Origin(r.Header.Get("Origin")), ws: ws}
	h.conns[p] = struct{}{}
	h.mu.Unlock()
	log.Printf("preview: renderer %d connected from %s", p.id, p.origin)

	defer h.remove(p)
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("preview: renderer %d: %v", p.id, err)
			}
			return
		}
		msg, err := Decode(raw)
		if err != nil {
			log.Printf("preview: renderer %d: %v", p.id, err)
			continue
		}
		h.mu.Lock()
		fn := h.onMsg
		h.mu.Unlock()
		if fn != nil {
			fn(Inbound{Origin: p.origin, Message: msg})
		}
	}
}

// Send writes m to every connected renderer concurrently. Renderers that fail
// are dropped; their errors are combined.
func (h *Hub) Send(m Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", m.Type, err)
	}

	peers := h.peers()
	if len(peers) == 0 {
		return ErrNoRenderer
	}

	tasks := make([]parallel.Task, len(peers))
	for i, p := range peers {
		p := p
		tasks[i] = parallel.Task{
			Name: fmt.Sprintf("renderer %d", p.id),
			Fn: func(context.Context) error {
				if err := p.write(data); err != nil {
					h.remove(p)
					return err
				}
				return nil
			},
		}
	}
	results := parallel.Run(context.Background(), tasks, h.limit)
	if dropped := parallel.Failed(results); len(dropped) > 0 {
		log.Printf("preview: dropped %s", strings.Join(dropped, ", "))
	}
	return parallel.Errors(results)
}

// Count returns the number of connected renderers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Close disconnects every renderer.
func (h *Hub) Close() error {
	for _, p := range h.peers() {
		p.wmu.Lock()
		_ = p.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		p.wmu.Unlock()
		h.remove(p)
	}
	return nil
}

func (h *Hub) peers() []*peer {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*peer, 0, len(h.conns))
	for p := range h.conns {
		out = append(out, p)
	}
	return out
}

func (h *Hub) remove(p *peer) {
	h.mu.Lock()
	_, ok := h.conns[p]
	delete(h.conns, p)
	h.mu.Unlock()
	if ok {
		_ = p.ws.Close()
		log.Printf("preview: renderer %d disconnected", p.id)
	}
}
