// Package live pushes participant counts to websocket clients watching an
// event.
package live

import (
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/iliyamo/eventdesk/internal/logging"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

// Observer is notified when clients come and go.
type Observer interface {
	LiveClientConnected()
	LiveClientDisconnected()
}

type client struct {
	conn    *websocket.Conn
	eventID string
	send    chan []byte
}

// Hub fans messages out to the clients subscribed to each event.
type Hub struct {
	mu       sync.RWMutex
	subs     map[string]map[*client]struct{}
	upgrader websocket.Upgrader
	observer Observer
	log      zerolog.Logger
}

// NewHub returns a hub accepting upgrades from the given origins.  "*"
// allows any origin; requests without an Origin header (non-browser
// clients) are always accepted.
func NewHub(allowedOrigins []string, obs Observer) *Hub {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	h := &Hub{
		subs:     make(map[string]map[*client]struct{}),
		observer: obs,
		log:      logging.WithComponent("live"),
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowed["*"] || allowed[origin]
		},
	}
	return h
}

// Serve upgrades the request and streams messages for eventID until the
// client disconnects.  initial, when non-nil, is sent first.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, eventID string, initial any) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &client{conn: conn, eventID: eventID, send: make(chan []byte, sendBuffer)}
	if initial != nil {
		if b, err := json.Marshal(initial); err == nil {
			c.send <- b
		}
	}
	h.add(c)
	go h.writePump(c)
	h.readPump(c)
	return nil
}

// Broadcast sends payload as JSON to every client watching eventID.  Slow
// clients whose buffer is full miss the message rather than block the
// caller.
func (h *Hub) Broadcast(eventID string, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		h.log.Error().Err(err).Msg("marshal live update")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.subs[eventID] {
		select {
		case c.send <- b:
		default:
			h.log.Debug().Str("event_id", eventID).Msg("dropping live update for slow client")
		}
	}
}

// Clients returns the number of clients watching eventID.
func (h *Hub) Clients(eventID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[eventID])
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, set := range h.subs {
		for c := range set {
			close(c.send)
		}
		delete(h.subs, id)
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	set, ok := h.subs[c.eventID]
	if !ok {
		set = make(map[*client]struct{})
		h.subs[c.eventID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()
	if h.observer != nil {
		h.observer.LiveClientConnected()
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	set, ok := h.subs[c.eventID]
	_, present := set[c]
	if ok && present {
		delete(set, c)
		close(c.send)
		if len(set) == 0 {
			delete(h.subs, c.eventID)
		}
	}
	h.mu.Unlock()
	if present && h.observer != nil {
		h.observer.LiveClientDisconnected()
	}
}

// readPump discards client messages; it exists to process control frames
// and notice disconnects.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn().Err(err).Str("event_id", c.eventID).Msg("websocket read error")
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
