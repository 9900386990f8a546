package collab

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"

	"sdgplan/collab/internal/auth"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
	sendBuffer     = 256
)

// client is one websocket connection joined to a form room.
type client struct {
	id          string
	formID      int64
	participant auth.Participant
	conn        *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(id string, formID int64, p auth.Participant, conn *websocket.Conn) *client {
	return &client{
		id:          id,
		formID:      formID,
		participant: p,
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
	}
}

// enqueue queues payload without blocking. It reports false when the client
// is closed or its buffer is full.
func (c *client) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// writePump drains the send queue to the socket and keeps the peer alive
// with pings. It owns all writes on conn.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				glog.V(1).Infof("session %s: write failed: %v", c.id, err)
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

// fanout delivers room events to every member connection.
type fanout interface {
	join(ctx context.Context, formID int64, c *client) error
	leave(formID int64, c *client)
	publish(ctx context.Context, formID int64, payload []byte) error
}

// hub is the in-process fanout.
type hub struct {
	mu    sync.Mutex
	rooms map[int64]map[*client]struct{}
}

func newHub() *hub {
	return &hub{rooms: make(map[int64]map[*client]struct{})}
}

// subscribe adds c to the room and returns the room's local size.
func (h *hub) subscribe(formID int64, c *client) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[formID]
	if !ok {
		members = make(map[*client]struct{})
		h.rooms[formID] = members
	}
	members[c] = struct{}{}
	return len(members)
}

// unsubscribe removes c and returns the room's remaining local size.
func (h *hub) unsubscribe(formID int64, c *client) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[formID]
	if !ok {
		return 0
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, formID)
	}
	return len(members)
}

// deliver enqueues payload on every member while holding the hub lock so all
// members of a room see events in the same order. Members that cannot keep up
// are dropped and closed.
func (h *hub) deliver(formID int64, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members := h.rooms[formID]
	for c := range members {
		if c.enqueue(payload) {
			continue
		}
		glog.Warningf("session %s: dropping slow consumer from form %d", c.id, formID)
		delete(members, c)
		c.close()
	}
	if members != nil && len(members) == 0 {
		delete(h.rooms, formID)
	}
}

func (h *hub) join(_ context.Context, formID int64, c *client) error {
	h.subscribe(formID, c)
	return nil
}

func (h *hub) leave(formID int64, c *client) {
	h.unsubscribe(formID, c)
}

func (h *hub) publish(_ context.Context, formID int64, payload []byte) error {
	h.deliver(formID, payload)
	return nil
}

func encode(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		glog.Errorf("failed to encode %T: %v", v, err)
		return nil
	}
	return b
}
