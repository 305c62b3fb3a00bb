package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-lumizone/internal/event"
	"github.com/coreman2200/funtimes-lumizone/internal/sched"
	"github.com/coreman2200/funtimes-lumizone/internal/supervisor"
	"github.com/coreman2200/funtimes-lumizone/internal/zone"
)

const (
	writeWait  = 200 * time.Millisecond
	sendBuffer = 16
)

// Hub broadcasts status events to websocket subscribers and serves a health
// summary. It implements event.Bus so it can be fanned out alongside the
// log sink. Publish never blocks on a client: each subscriber has a buffered
// send channel drained by its own writer goroutine, and a full buffer drops
// the event for that subscriber.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]bool

	sched *sched.Scheduler
	sup   *supervisor.Supervisor
	start time.Time
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub(s *sched.Scheduler, sup *supervisor.Supervisor) *Hub {
	return &Hub{
		clients: map[*client]bool{},
		sched:   s,
		sup:     sup,
		start:   time.Now(),
	}
}

// Publish implements event.Bus.
func (h *Hub) Publish(e event.Event) {
	b, err := json.Marshal(e)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			// Subscriber can't keep up; drop rather than stall the caller.
		}
	}
}

// HandleEventsWS upgrades the connection and streams status events until the
// client goes away.
func (h *Hub) HandleEventsWS(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	go c.writeLoop()
	go h.readLoop(c)
}

func (c *client) writeLoop() {
	for b := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Debug().Err(err).Msg("write event")
			return
		}
	}
}

// readLoop discards client messages and unregisters on disconnect. Closing
// the send channel under the write lock keeps Publish from sending on it.
func (h *Hub) readLoop(c *client) {
	defer func() {
		h.mu.Lock()
		if h.clients[c] {
			delete(h.clients, c)
			close(c.send)
		}
		h.mu.Unlock()
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

type zoneStatus struct {
	ID       string    `json:"id"`
	Pixels   int       `json:"pixels"`
	Offset   int       `json:"offset"`
	Priority int       `json:"priority"`
	Mode     zone.Mode `json:"mode"`
}

// HandleHealth reports scheduler counters and the configured zones.
func (h *Hub) HandleHealth(w http.ResponseWriter, r *http.Request) {
	zones := h.sup.Zones()
	zs := make([]zoneStatus, 0, len(zones))
	for _, z := range zones {
		zs = append(zs, zoneStatus{ID: z.ID, Pixels: z.Pixels, Offset: z.Offset, Priority: z.Priority, Mode: z.Mode})
	}
	resp := map[string]any{
		"uptime_s": time.Since(h.start).Seconds(),
		"render":   h.sched.Stats(),
		"zones":    zs,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
